// Stage machine driver.
//
// Information Hiding:
// - Conversation history and retry bookkeeping hidden
// - Provider calls and reply parsing hidden
// - Tool dispatch goes through the session only

package agent

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	jsonutil "github.com/kongjiyu/dotivra-sub004/internal/json"
	"github.com/kongjiyu/dotivra-sub004/llm"
	"github.com/kongjiyu/dotivra-sub004/tools"
)

// ErrMalformedReply is returned when the model exhausts its parse retries.
var ErrMalformedReply = errors.New("malformed model reply")

// Request starts one session.
type Request struct {
	Prompt     string
	DocumentID string
	History    []llm.ChatMessage
	// RepoLink overrides the document's own repository link.
	RepoLink string
}

// Orchestrator runs sessions against one provider and document store.
// It is safe for concurrent use; each session gets its own engine.
type Orchestrator struct {
	provider  llm.Provider
	workspace Workspace
	config    Config
	logger    *zap.Logger
	sleep     func(context.Context, time.Duration) error
}

// OpenSession creates a session bound to documentID.
func (o *Orchestrator) OpenSession(ctx context.Context, documentID, repoLink string) (*Session, error) {
	return o.workspace.Open(ctx, documentID, repoLink)
}

// ExecuteWithStream runs one session and yields every turn as it is
// produced. The sequence is single-use; ranging it again yields an error
// turn. Breaking out of the range ends the session.
func (o *Orchestrator) ExecuteWithStream(ctx context.Context, req Request) iter.Seq[Turn] {
	var used atomic.Bool
	return func(yield func(Turn) bool) {
		if !used.CompareAndSwap(false, true) {
			yield(Turn{Stage: StageError, Content: "session already consumed; start a new one"})
			return
		}
		session, err := o.OpenSession(ctx, req.DocumentID, req.RepoLink)
		if err != nil {
			yield(Turn{Stage: StageError, Content: fmt.Sprintf("open document: %v", err)})
			return
		}
		o.run(ctx, session, req, yield)
	}
}

// run is the session loop. At most one provider or tool call is in flight.
func (o *Orchestrator) run(ctx context.Context, session *Session, req Request, yield func(Turn) bool) {
	cfg := o.config
	logger := o.logger.With(zap.String("session", session.ID()))

	messages := make([]llm.ChatMessage, 0, len(req.History)+8)
	messages = append(messages, llm.SystemMessage(instructions(cfg, session, cfg.MaxToolCalls)))
	messages = append(messages, req.History...)
	messages = append(messages, llm.UserMessage(req.Prompt))

	var format *llm.ResponseFormat
	if cfg.StructuredOutput {
		format = turnFormat(session)
	}

	toolCalls := 0
	iteration := 0
	emit := func(t Turn) bool {
		t.Iteration = iteration
		session.record(t)
		logger.Debug("stage", zap.String("stage", string(t.Stage)), zap.Int("iteration", iteration), zap.String("tool", t.Tool))
		return yield(t)
	}

	for ; iteration < cfg.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			emit(Turn{Stage: StageError, Content: fmt.Sprintf("cancelled: %v", err)})
			return
		}

		r, raw, err := o.next(ctx, logger, &messages, format)
		if err != nil {
			logger.Warn("session failed", zap.Error(err))
			emit(Turn{Stage: StageError, Content: err.Error()})
			return
		}
		messages = append(messages, llm.AssistantMessage(raw))

		switch r.Stage {
		case StageToolUsed:
			if toolCalls >= cfg.MaxToolCalls {
				emit(Turn{Stage: StageSummary, Content: fmt.Sprintf(
					"I reached the limit of %d tool calls for this request. Ask me to continue and I will pick up where I left off.",
					cfg.MaxToolCalls)})
				return
			}
			if !emit(r.turn()) {
				return
			}

			var result tools.Result
			if !r.hasCall() {
				op := r.Tool
				if op == "" {
					op = string(StageToolUsed)
				}
				result = tools.FailureResultf(op, "toolUsed requires both tool and args")
			} else {
				toolCalls++
				result = session.ExecuteTool(ctx, r.Tool, r.Args)
			}
			if !emit(Turn{Stage: StageToolResult, Tool: r.Tool, Result: &result}) {
				return
			}
			messages = append(messages, llm.UserMessage(toolResultMessage(r.Tool, result.JSON())))

		default:
			if !emit(r.turn()) || r.Stage.Terminal() {
				return
			}
			messages = append(messages, llm.UserMessage(continueMessage))
		}
	}

	logger.Info("iteration limit reached", zap.Int("iterations", cfg.MaxIterations), zap.Int("tool_calls", toolCalls))
	emit(Turn{Stage: StageSummary, Content: fmt.Sprintf(
		"I stopped after %d steps without finishing. Ask me to continue to keep working on the document.",
		cfg.MaxIterations)})
}

// next asks the provider for one parseable stage, retrying malformed or
// empty replies with a corrective message up to MaxParseRetries attempts.
// Other provider errors are returned immediately.
func (o *Orchestrator) next(ctx context.Context, logger *zap.Logger, messages *[]llm.ChatMessage, format *llm.ResponseFormat) (reply, string, error) {
	cfg := o.config
	for attempt := 1; ; attempt++ {
		resp, err := o.call(ctx, *messages, format)
		var perr error
		switch {
		case errors.Is(err, llm.ErrEmptyResponse):
			perr = llm.ErrEmptyResponse
		case err != nil:
			return reply{}, "", fmt.Errorf("model call failed: %w", err)
		default:
			var r reply
			if r, perr = parseReply(resp.Content); perr == nil {
				return r, resp.Content, nil
			}
		}

		logger.Warn("unparseable model reply",
			zap.Int("attempt", attempt),
			zap.Int("budget", cfg.MaxParseRetries),
			zap.Error(perr))
		if attempt >= cfg.MaxParseRetries {
			return reply{}, "", fmt.Errorf("%w after %d attempts: %v", ErrMalformedReply, attempt, perr)
		}

		// providers reject empty assistant turns
		if strings.TrimSpace(resp.Content) != "" {
			*messages = append(*messages, llm.AssistantMessage(resp.Content))
		}
		*messages = append(*messages, llm.UserMessage(correction(perr)))
		if err := o.sleep(ctx, cfg.RetryBackoff*time.Duration(attempt)); err != nil {
			return reply{}, "", fmt.Errorf("retry wait: %w", err)
		}
	}
}

func (o *Orchestrator) call(ctx context.Context, messages []llm.ChatMessage, format *llm.ResponseFormat) (llm.LLMResponse, error) {
	if format != nil {
		return o.provider.ChatWithFormat(ctx, messages, format)
	}
	return o.provider.Chat(ctx, messages)
}

// parseReply extracts the first JSON object from raw and checks its stage.
func parseReply(raw string) (reply, error) {
	r, err := jsonutil.ExtractJSONFromResponse[reply](raw)
	if err != nil {
		return reply{}, err
	}
	if r.Stage == "" {
		return reply{}, errors.New("missing stage")
	}
	if !r.Stage.fromModel() {
		return reply{}, fmt.Errorf("stage %q cannot be sent by the model", r.Stage)
	}
	return r, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
