// Package model defines the provider-agnostic abstractions and concrete
// helpers for interacting with language models.
//
// Core goals:
//   - Unify streaming + non-streaming generation behind a single interface
//   - Normalize tool / function call representation (ToolDefinition, core.ActionRequest)
//   - Bind a model to a capability set and collapse its output into one
//     assistant message (Bind, Bound.Complete)
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI and compatible endpoints, Anthropic, Gemini) implement the
// Model interface from this package so the agent loop remains decoupled from
// vendor SDKs. See the provider package for identifier based construction.
package model
