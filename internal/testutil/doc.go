// Package testutil contains helpers shared by tests: transcript builders, a
// loader that serves scripted mock backends, and a compact transcript
// projection for go-cmp diffs. Not intended for production usage.
package testutil
