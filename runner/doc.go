// Package runner drives multi-turn conversations on top of the agent loop.
//
// Each Chat call loads the stored transcript of a session, appends the new
// human message, runs the loop and stores the resulting transcript. Runs are
// serialized per session and bounded globally; an active run can be
// cancelled by session ID.
package runner
