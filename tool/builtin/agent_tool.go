// Package builtin holds tools built directly on agentcore rather than an
// external side effect, starting with AgentTool, the nested-delegation
// wrapper.
package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/browseragent/agentcore"
	"github.com/browseragent/agentcore/tool"
)

// AgentTool wraps a dedicated child Session/TurnManager pair behind the
// ordinary tool.Tool interface, so a registered tool call can itself
// drive a full nested task (§ nested agent delegation). From
// TurnManager's perspective this is an ordinary function_call handler:
// it synchronously runs a TaskRunner to completion and returns the
// nested agent's final assistant message as the tool's output.
type AgentTool struct {
	name        string
	description string

	session     *agentcore.Session
	model       agentcore.ModelClient
	executor    agentcore.ToolExecutor
	discoverer  agentcore.ToolDiscoverer
	turnContext agentcore.TurnContext

	nextSubID int
}

// NewAgentTool builds an AgentTool delegating to session. session should
// be a dedicated child session (its own conversation/rollout), not the
// parent task's session: nested delegation must not share history with
// the conversation that invoked it. executor/discoverer may be nil for a
// tool-free nested agent.
func NewAgentTool(name, description string, session *agentcore.Session, model agentcore.ModelClient, executor agentcore.ToolExecutor, discoverer agentcore.ToolDiscoverer, turnContext agentcore.TurnContext) (*AgentTool, error) {
	if session == nil {
		return nil, fmt.Errorf("agent tool %q: session cannot be nil", name)
	}
	if model == nil {
		return nil, fmt.Errorf("agent tool %q: model cannot be nil", name)
	}
	if name == "" {
		return nil, fmt.Errorf("agent tool: name cannot be empty")
	}
	if description == "" {
		description = fmt.Sprintf("Delegate a task to the %s agent", name)
	}
	return &AgentTool{
		name:        name,
		description: description,
		session:     session,
		model:       model,
		executor:    executor,
		discoverer:  discoverer,
		turnContext: turnContext,
	}, nil
}

// Name implements tool.Tool.
func (a *AgentTool) Name() string { return a.name }

// Description implements tool.Tool.
func (a *AgentTool) Description() string { return a.description }

// InputSchema implements tool.Tool.
func (a *AgentTool) InputSchema() tool.ToolSchema {
	return tool.ToolSchema{
		Type: "object",
		Properties: map[string]tool.PropertyDef{
			"task": {
				Type:        "string",
				Description: "The task or question to delegate to this agent",
			},
			"context": {
				Type:        "string",
				Description: "Additional context for the task (optional)",
			},
		},
		Required: []string{"task"},
	}
}

// Execute implements tool.Tool: it drives session's TaskRunner through a
// single task built from task+context and returns the nested agent's
// final assistant message.
func (a *AgentTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var params struct {
		Task    string `json:"task"`
		Context string `json:"context"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	if params.Task == "" {
		return "", fmt.Errorf("task is required")
	}

	prompt := params.Task
	if params.Context != "" {
		prompt = fmt.Sprintf("Context: %s\n\nTask: %s", params.Context, params.Task)
	}

	a.nextSubID++
	subID := fmt.Sprintf("agent-tool-%s-%d", a.name, a.nextSubID)

	tm := agentcore.NewTurnManager(a.model, a.executor, nil, 0)
	runner := agentcore.NewTaskRunner(a.session, tm, a.discoverer, a.turnContext)

	items := []agentcore.InputItem{{Type: agentcore.InputText, Text: prompt}}
	if err := runner.Run(ctx, subID, items, agentcore.TaskRunnerOptions{AutoCompact: true}); err != nil {
		return "", fmt.Errorf("nested agent %q failed: %w", a.name, err)
	}
	if runner.State() != agentcore.RunCompleted {
		return "", fmt.Errorf("nested agent %q did not complete (state: %s)", a.name, runner.State())
	}

	history := a.session.History()
	for i := len(history) - 1; i >= 0; i-- {
		item := history[i]
		if item.Tag == agentcore.ItemMessage && item.Role == agentcore.RoleAssistant {
			return item.OutputText(), nil
		}
	}
	return "", nil
}
