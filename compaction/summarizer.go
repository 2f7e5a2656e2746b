package compaction

import (
	"context"
	"strings"

	"github.com/browseragent/agentcore"
)

// Summarizer implements agentcore.Summarizer by sending the compactable
// history through a model as a one-shot request, using the teacher's
// 9-section summarization prompt to keep the result replayable as
// continuation context.
type Summarizer struct {
	model     agentcore.ModelClient
	modelName string
}

// NewSummarizer builds a Summarizer that drives modelName through client.
func NewSummarizer(client agentcore.ModelClient, modelName string) *Summarizer {
	return &Summarizer{model: client, modelName: modelName}
}

// Summarize renders items as text via FormatMessagesAsText, sends them to
// the model behind SummarizationSystemPrompt, and returns the model's
// final text. It never mutates items or Session state; Session.Compact
// owns history replacement.
func (s *Summarizer) Summarize(ctx context.Context, items []agentcore.ResponseItem) (string, error) {
	conversationText := FormatMessagesAsText(toMessagesForSummary(items))
	userPrompt := BuildSummarizationUserPrompt(conversationText)

	req := agentcore.ModelRequest{
		Model:        s.modelName,
		SystemPrompt: SummarizationSystemPrompt,
		Input:        []agentcore.ResponseItem{agentcore.TextContent(agentcore.RoleUser, userPrompt)},
	}

	stream, err := s.model.Stream(ctx, req)
	if err != nil {
		return "", NewCompactionError("Summarize", err)
	}
	defer stream.Close()

	var out strings.Builder
	for ev := range stream.Events() {
		switch ev.Kind {
		case agentcore.ModelEventOutputTextDelta:
			out.WriteString(ev.Delta)
		case agentcore.ModelEventError:
			return "", NewCompactionError("Summarize", ev.Err)
		}
	}

	summary := out.String()
	if summary == "" {
		return "", ErrSummarizationFailed
	}
	return summary, nil
}

// toMessagesForSummary flattens ResponseItems into the plain role/text
// shape FormatMessagesAsText expects, dropping structural detail
// (call ids, schemas) that a 9-section prose summary doesn't need.
func toMessagesForSummary(items []agentcore.ResponseItem) []MessageForSummary {
	out := make([]MessageForSummary, 0, len(items))
	for _, item := range items {
		switch item.Tag {
		case agentcore.ItemMessage:
			out = append(out, MessageForSummary{Role: string(item.Role), Content: item.OutputText()})
		case agentcore.ItemReasoning:
			out = append(out, MessageForSummary{Role: "assistant", Content: item.OutputText()})
		case agentcore.ItemFunctionCall, agentcore.ItemLocalShellCall, agentcore.ItemCustomToolCall:
			out = append(out, MessageForSummary{Role: "assistant", Content: "called tool " + item.Name + " with " + item.Arguments})
		case agentcore.ItemFunctionCallOutput, agentcore.ItemCustomToolCallOutput:
			out = append(out, MessageForSummary{Role: "user", Content: "tool result (" + item.Status + "): " + item.Output})
		case agentcore.ItemWebSearchCall:
			out = append(out, MessageForSummary{Role: "assistant", Content: "searched the web for " + item.WebSearchQuery})
		}
	}
	return out
}
