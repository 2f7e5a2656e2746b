// Package compaction implements agentcore.Summarizer: turning the
// compactable slice of a Session's history into replacement summary text
// when the conversation approaches its model context window.
//
// Summarize renders items through FormatMessagesAsText and sends them to
// a model behind SummarizationSystemPrompt, a 9-section structured
// summarization prompt. TokenCounter offers a character-based token
// approximation; the compaction trigger does not use it, as TaskRunner
// compares the model-reported token usage with its threshold. Session itself
// decides when to call Summarize and owns the preserved-tail/protected-
// head partitioning (§4.3), so this package has no partitioning logic of
// its own.
package compaction
