// Package agent drives a language model through the document-editing stage
// machine.
//
// Contains the stage and turn types shared by the orchestrator and callers.
package agent

import (
	"encoding/json"
	"fmt"

	"github.com/kongjiyu/dotivra-sub004/tools"
)

// Stage is one step of the agent's stage machine.
type Stage string

const (
	StagePlanning   Stage = "planning"
	StageReasoning  Stage = "reasoning"
	StageExecuting  Stage = "executing"
	StageToolUsed   Stage = "toolUsed"
	StageToolResult Stage = "toolResult"
	StageSummary    Stage = "summary"
	StageError      Stage = "error"
)

// modelStages are the stages a model reply may carry. toolResult and error
// are produced by the orchestrator only.
var modelStages = []Stage{StagePlanning, StageReasoning, StageExecuting, StageToolUsed, StageSummary}

// Terminal reports whether the stage ends a session.
func (s Stage) Terminal() bool {
	return s == StageSummary || s == StageError
}

func (s Stage) fromModel() bool {
	for _, m := range modelStages {
		if s == m {
			return true
		}
	}
	return false
}

// Turn is one unit of agent output, yielded to the caller as it happens.
type Turn struct {
	Stage     Stage           `json:"stage"`
	Content   string          `json:"content,omitempty"`
	Tool      string          `json:"tool,omitempty"`
	Args      json.RawMessage `json:"args,omitempty"`
	Result    *tools.Result   `json:"result,omitempty"`
	Iteration int             `json:"iteration"`
}

// String renders the turn for terminal output.
func (t Turn) String() string {
	switch t.Stage {
	case StageToolUsed:
		return fmt.Sprintf("[%s] %s %s", t.Stage, t.Tool, string(t.Args))
	case StageToolResult:
		if t.Result != nil {
			return fmt.Sprintf("[%s] %s", t.Stage, t.Result.JSON())
		}
	}
	return fmt.Sprintf("[%s] %s", t.Stage, t.Content)
}

// reply is the structured object a model reply must contain.
type reply struct {
	Stage   Stage           `json:"stage"`
	Content string          `json:"content"`
	Tool    string          `json:"tool"`
	Args    json.RawMessage `json:"args"`
}

func (r reply) turn() Turn {
	return Turn{Stage: r.Stage, Content: r.Content, Tool: r.Tool, Args: r.Args}
}

// hasCall reports whether a toolUsed reply names a tool and carries args.
func (r reply) hasCall() bool {
	if r.Tool == "" || len(r.Args) == 0 {
		return false
	}
	return string(r.Args) != "null"
}
