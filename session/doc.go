// Package session stores conversation transcripts by session ID so that
// multi-turn conversations can resume where the previous loop invocation
// ended. Backends implement Store; InMemoryStore is the built-in one.
package session
