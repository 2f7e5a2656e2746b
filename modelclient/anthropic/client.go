// Package anthropic is the concrete agentcore.ModelClient implementation
// over github.com/anthropics/anthropic-sdk-go, grounded on the teacher's
// agent.go streamMessage/runWithToolLoopInternal and
// internal/anthropic/converter.go. It is the only package in this module
// that imports the Anthropic SDK, per the ModelClient abstraction boundary.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/browseragent/agentcore"
)

// ErrMaxTokensExceeded is returned by Stream when the model rejects a
// request for exceeding its context window. Callers can match it with
// errors.Is; TurnManager does not retry on it and reports it as a
// ModelError like any other stream error.
var ErrMaxTokensExceeded = errors.New("anthropic: max tokens / context length exceeded")

// extendedContextHeader mirrors the teacher's BuildExtendedContextHeaders.
const extendedContextHeaderKey = "anthropic-beta"
const extendedContextHeaderValue = "context-1m-2025-08-07"

// Client is an agentcore.ModelClient backed by one anthropic.Client.
type Client struct {
	sdk       sdk.Client
	maxTokens int64
}

// New wraps an already-constructed anthropic-sdk-go client. maxTokens
// bounds every request's MaxTokens the way the teacher's Config.maxTokens
// does.
func New(client sdk.Client, maxTokens int64) *Client {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{sdk: client, maxTokens: maxTokens}
}

var _ agentcore.ModelClient = (*Client)(nil)

func (c *Client) Stream(ctx context.Context, req agentcore.ModelRequest) (agentcore.ModelStream, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: c.maxTokens,
		Messages:  convertInput(req.Input),
	}
	if req.SystemPrompt != "" {
		params.System = []sdk.TextBlockParam{{Type: "text", Text: req.SystemPrompt}}
	}
	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
	}

	var opts []option.RequestOption
	if req.ExtendedContext {
		opts = append(opts, option.WithHeader(extendedContextHeaderKey, extendedContextHeaderValue))
	}

	sseStream := c.sdk.Messages.NewStreaming(ctx, params, opts...)

	s := &stream{events: make(chan agentcore.ModelResponseEvent, 32), done: make(chan struct{})}
	go s.pump(sseStream)
	return s, nil
}

func convertInput(items []agentcore.ResponseItem) []sdk.MessageParam {
	params := make([]sdk.MessageParam, 0, len(items))
	for _, item := range items {
		switch item.Tag {
		case agentcore.ItemMessage:
			if item.Role == agentcore.RoleSystem {
				continue
			}
			blocks := make([]sdk.ContentBlockParamUnion, 0, len(item.Content))
			for _, part := range item.Content {
				blocks = append(blocks, sdk.NewTextBlock(part.Text))
			}
			params = append(params, sdk.MessageParam{Role: sdk.MessageParamRole(item.Role), Content: blocks})
		case agentcore.ItemFunctionCall:
			var input any
			if err := json.Unmarshal([]byte(item.Arguments), &input); err != nil {
				input = map[string]any{}
			}
			params = append(params, sdk.MessageParam{
				Role:    sdk.MessageParamRoleAssistant,
				Content: []sdk.ContentBlockParamUnion{sdk.NewToolUseBlock(item.CallID, input, item.Name)},
			})
		case agentcore.ItemFunctionCallOutput:
			params = append(params, sdk.MessageParam{
				Role:    sdk.MessageParamRoleUser,
				Content: []sdk.ContentBlockParamUnion{sdk.NewToolResultBlock(item.CallID, item.Output, item.Status == "error")},
			})
		}
	}
	return params
}

func convertTools(tools []agentcore.ToolDescriptor) []sdk.ToolUnionParam {
	unions := make([]sdk.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		param := sdk.ToolParam{
			Name:        t.Name,
			Description: sdk.String(t.Description),
			InputSchema: sdk.ToolInputSchemaParam{
				Type:       "object",
				Properties: t.InputSchema["properties"],
			},
		}
		if req, ok := t.InputSchema["required"].([]string); ok {
			param.InputSchema.Required = req
		}
		unions = append(unions, sdk.ToolUnionParam{OfTool: &param})
	}
	return unions
}

// sseStreamer is the subset of ssestream.Stream[T] the adapter drives; kept
// as an interface purely so stream.pump's signature does not leak the
// generic SDK type into this file's exported surface.
type sseStreamer interface {
	Next() bool
	Current() sdk.MessageStreamEventUnion
	Err() error
	Close() error
}

type stream struct {
	events chan agentcore.ModelResponseEvent
	done   chan struct{}
	err    error
}

func (s *stream) Events() <-chan agentcore.ModelResponseEvent { return s.events }

func (s *stream) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return nil
}

func (s *stream) pump(sse sseStreamer) {
	defer close(s.events)
	defer sse.Close()

	acc := newRawAccumulator()

	for sse.Next() {
		select {
		case <-s.done:
			return
		default:
		}

		event := sse.Current()
		for _, out := range acc.absorb(event) {
			select {
			case s.events <- out:
			case <-s.done:
				return
			}
		}
	}

	if err := sse.Err(); err != nil {
		if isMaxTokensError(err) {
			err = fmt.Errorf("%w: %v", ErrMaxTokensExceeded, err)
		}
		select {
		case s.events <- agentcore.ModelResponseEvent{Kind: agentcore.ModelEventError, Err: err}:
		case <-s.done:
		}
		return
	}

	for _, out := range acc.finish() {
		select {
		case s.events <- out:
		case <-s.done:
			return
		}
	}
}

func isMaxTokensError(err error) bool {
	var apiErr *sdk.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	msg := strings.ToLower(apiErr.Error())
	return strings.Contains(msg, "max_tokens") || strings.Contains(msg, "context_length") || strings.Contains(msg, "token limit")
}
