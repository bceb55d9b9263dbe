// Package mock provides an offline provider that never touches the network.
//
// It returns the request's fallback text. Streamed requests deliver the text
// word by word with a fixed pause between words, so clients can exercise
// the streaming path deterministically.
package mock
