// Package decision is the hub's bridge to the external decision service,
// an OpenAI-compatible chat-completions endpoint (DeepSeek by default).
//
// The client sends two kinds of report: an "init" envelope carrying every
// device right after startup, and "trigger" envelopes carrying only the
// devices that fired this cycle. The service replies with a JSON action
// list; anything else it says is discarded. Requests are stateless: the
// latest aggregate state, set via SetContext, is folded into each request
// as conversation context.
//
// When decision.enabled is false in configuration the client degrades to
// a stub that returns empty action lists, which keeps the scheduler and
// reconciler exercising their full path without network access.
package decision
