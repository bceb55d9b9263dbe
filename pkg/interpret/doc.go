// Package interpret turns a birth-chart payload into the prompts sent to a
// text-generation provider and the deterministic text used when no provider
// is available.
//
// BuildPrompt is pure: the same payload always yields the same Prompt, which
// is what allows identical requests to be coalesced.
package interpret
