// Package agentcore implements the turn-oriented task execution engine for a
// browser-resident agent runtime: a cancellable multi-turn loop with
// automatic context compaction, driven by submissions and producing a typed
// event stream.
//
// The six collaborating pieces are Agent (submission queue + dispatcher),
// TaskRunner (the multi-turn loop), TurnManager (one streamed model turn),
// Session (in-memory conversation state bridging to a RolloutStore), the
// rollout subpackage (durable append-only history), and the tool subpackage
// (typed tool registration, validation and dispatch). Concrete model
// transports and tool implementations are left to callers; this package only
// names the interfaces (ModelClient, ToolExecutor, ToolDiscoverer) they must
// satisfy, while individual tools implement tool.Tool.
package agentcore
