// Package coalesce merges concurrent identical requests into one execution.
//
// A Cache is not a time-based cache. An entry lives only while its call is
// in flight; the caller that created it clears it after settlement so the
// next distinct request runs fresh.
//
//	call, isNew := cache.GetOrCreate(key, generate)
//	if isNew {
//	    defer cache.Clear(key)
//	}
//	content, err := call.Wait(ctx)
//
// Do wraps that sequence.
package coalesce
