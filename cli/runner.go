// Command execution for CLI commands.
//
// Information Hiding:
// - Settings, logger and store setup hidden
// - Provider and repository client construction hidden
// - Output formatting hidden

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/kongjiyu/dotivra-sub004/agent"
	"github.com/kongjiyu/dotivra-sub004/config"
	"github.com/kongjiyu/dotivra-sub004/document"
	"github.com/kongjiyu/dotivra-sub004/internal/logging"
	"github.com/kongjiyu/dotivra-sub004/llm"
	"github.com/kongjiyu/dotivra-sub004/repo"
	"github.com/kongjiyu/dotivra-sub004/storage"
)

// Options holds CLI execution options.
type Options struct {
	ConfigPath string
	Provider   string
	Verbose    bool
	Out        io.Writer
}

// store is what the CLI needs from a backend.
type store interface {
	storage.DocumentStore
	storage.Journal
}

// App is a configured command environment. Close releases the store.
type App struct {
	settings config.Settings
	logger   *zap.Logger
	store    store
	close    func() error
	out      io.Writer
	verbose  bool
}

// NewApp loads settings and opens the configured document store.
func NewApp(opts Options) (*App, error) {
	settings, err := config.LoadProvider(opts.ConfigPath, opts.Provider)
	if err != nil {
		return nil, err
	}

	level := settings.Logging.Level
	if opts.Verbose {
		level = "debug"
	}
	logger, err := logging.New(level, settings.Logging.JSON)
	if err != nil {
		return nil, err
	}

	app := &App{
		settings: settings,
		logger:   logger,
		out:      opts.Out,
		verbose:  opts.Verbose,
		close:    func() error { return nil },
	}
	if app.out == nil {
		app.out = os.Stdout
	}

	switch settings.Storage.Driver {
	case config.DriverMemory:
		app.store = storage.NewInMemoryStorage()
	default:
		sqlite, err := storage.OpenSqlite(settings.Storage.Driver, settings.Storage.Path)
		if err != nil {
			return nil, err
		}
		app.store = sqlite
		app.close = sqlite.Close
	}
	return app, nil
}

// Close flushes the logger and closes the store.
func (a *App) Close() error {
	_ = a.logger.Sync()
	return a.close()
}

// Settings returns the loaded settings.
func (a *App) Settings() config.Settings {
	return a.settings
}

func (a *App) workspace() agent.Workspace {
	r := a.settings.Repository
	return agent.Workspace{
		Store:   a.store,
		Journal: a.store,
		Locks:   document.NewLocks(),
		RepoAPI: repo.NewGitHubClient(repo.GitHubOptions{
			BaseURL:           r.BaseURL,
			Token:             r.Token,
			RequestsPerSecond: r.RequestsPerSecond,
			Timeout:           r.Timeout,
			Logger:            a.logger,
		}),
		BranchHint: r.DefaultBranch,
		Logger:     a.logger,
	}
}

// Run streams one agent session over documentID to the output.
func (a *App) Run(ctx context.Context, prompt, documentID, repoLink string, asJSON bool) error {
	provider, err := createProvider(a.settings.LLM)
	if err != nil {
		return err
	}
	return a.runWith(ctx, provider, prompt, documentID, repoLink, asJSON)
}

func (a *App) runWith(ctx context.Context, provider llm.Provider, prompt, documentID, repoLink string, asJSON bool) error {
	ws := a.workspace()
	cfg := a.settings.Agent
	orchestrator, err := agent.NewBuilder(provider, ws.Store).
		Journal(ws.Journal).
		Locks(ws.Locks).
		Repositories(ws.RepoAPI, ws.BranchHint).
		Config(agent.Config{
			MaxIterations:    cfg.MaxIterations,
			MaxToolCalls:     cfg.MaxToolCalls,
			MaxParseRetries:  cfg.MaxParseRetries,
			RetryBackoff:     cfg.RetryBackoff,
			StructuredOutput: cfg.StructuredOutput,
			SystemPrompt:     cfg.SystemPrompt,
		}).
		Logger(a.logger).
		Build()
	if err != nil {
		return err
	}

	start := time.Now()
	var last agent.Turn
	for turn := range orchestrator.ExecuteWithStream(ctx, agent.Request{
		Prompt:     prompt,
		DocumentID: documentID,
		RepoLink:   repoLink,
	}) {
		last = turn
		if asJSON {
			data, _ := json.Marshal(turn)
			fmt.Fprintln(a.out, string(data))
			continue
		}
		printTurn(a.out, turn, a.verbose)
	}

	a.logger.Info("session finished",
		zap.String("provider", provider.Name()),
		zap.String("model", provider.Model()),
		zap.String("final_stage", string(last.Stage)),
		zap.Duration("elapsed", time.Since(start)))
	if last.Stage == agent.StageError {
		return fmt.Errorf("session failed: %s", last.Content)
	}
	return nil
}

// Tool executes one tool against documentID and prints the result.
func (a *App) Tool(ctx context.Context, name, documentID, repoLink, args string) error {
	session, err := a.workspace().Open(ctx, documentID, repoLink)
	if err != nil {
		return err
	}
	if strings.TrimSpace(args) == "" {
		args = "{}"
	}
	result := session.ExecuteTool(ctx, name, json.RawMessage(args))
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, string(data))
	if !result.Success {
		return errors.New(result.Error)
	}
	return nil
}

// ListTools prints the tools a session would have. A repository link adds
// the repository tools.
func (a *App) ListTools(ctx context.Context, repoLink string, asJSON, verbose bool) error {
	session, err := a.workspace().Open(ctx, "", repoLink)
	if err != nil {
		return err
	}
	registry := session.Registry()

	if asJSON {
		data, err := json.MarshalIndent(registry.Definitions(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, string(data))
		return nil
	}

	fmt.Fprintln(a.out, "Available tools:")
	fmt.Fprintln(a.out)
	for _, meta := range registry.List() {
		fmt.Fprintf(a.out, "  %s\n", meta.Name)
		fmt.Fprintf(a.out, "    %s\n", meta.Description)

		if verbose && len(meta.Parameters) > 0 {
			fmt.Fprintln(a.out, "    Parameters:")
			for _, param := range meta.Parameters {
				req := ""
				if param.Required {
					req = "*"
				}
				fmt.Fprintf(a.out, "      %s%s: %s - %s\n", param.Name, req, param.Type, param.Description)
			}
		}
		fmt.Fprintln(a.out)
	}
	return nil
}

// PutDocument creates or replaces a document. content is read from path, or
// from stdin when path is "-".
func (a *App) PutDocument(ctx context.Context, id, name, path, summary, repoLink string) error {
	var content []byte
	var err error
	switch path {
	case "":
	case "-":
		content, err = io.ReadAll(os.Stdin)
	default:
		content, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read content: %w", err)
	}

	doc := storage.Document{
		ID:       id,
		Name:     name,
		Content:  string(content),
		Summary:  summary,
		RepoLink: repoLink,
	}
	if err := a.store.Put(ctx, doc); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "stored %s (%d bytes)\n", id, len(content))
	return nil
}

// GetDocument prints one field of a document.
func (a *App) GetDocument(ctx context.Context, id, field string) error {
	doc, err := a.store.Get(ctx, id)
	if err != nil {
		return err
	}
	switch field {
	case storage.FieldContent, "":
		fmt.Fprintln(a.out, doc.Content)
	case storage.FieldSummary:
		fmt.Fprintln(a.out, doc.Summary)
	default:
		return fmt.Errorf("unknown field %q (want content or summary)", field)
	}
	return nil
}

// History prints the newest revisions of a document.
func (a *App) History(ctx context.Context, id string, limit int) error {
	revisions, err := a.store.History(ctx, id, limit)
	if err != nil {
		return err
	}
	if len(revisions) == 0 {
		fmt.Fprintf(a.out, "no revisions for %s\n", id)
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tOPERATION\tFIELD\tRANGE\tINSERTED\tREMOVED")
	for _, rev := range revisions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d-%d\t%q\t%q\n",
			rev.CreatedAt.Local().Format(time.DateTime),
			rev.Operation,
			rev.Field,
			rev.After.From, rev.After.To,
			truncateString(rev.Inserted, maxHistoryTextLen),
			truncateString(rev.Removed, maxHistoryTextLen))
	}
	return w.Flush()
}

func createProvider(cfg config.LLMConfig) (llm.Provider, error) {
	providerType, err := llm.ParseProviderType(cfg.Provider)
	if err != nil {
		return nil, err
	}

	apiKey, err := config.APIKeyFor(cfg.Provider)
	if err != nil {
		return nil, err
	}

	return providerType.
		Model(cfg.Model).
		BaseURL(cfg.BaseURL).
		MaxTokens(cfg.MaxTokens).
		Temperature(float32(cfg.Temperature)).
		APIKey(apiKey)
}

const (
	maxResultLen      = 400
	maxHistoryTextLen = 40
)

func printTurn(out io.Writer, turn agent.Turn, verbose bool) {
	switch turn.Stage {
	case agent.StageToolUsed:
		fmt.Fprintf(out, "[%d] %s %s %s\n", turn.Iteration, turn.Stage, turn.Tool, string(turn.Args))
	case agent.StageToolResult:
		if turn.Result == nil {
			return
		}
		status := "ok"
		detail := turn.Result.Error
		if turn.Result.Success {
			detail = ""
			if verbose {
				detail = turn.Result.JSON()
			}
		} else {
			status = "failed"
		}
		fmt.Fprintf(out, "[%d] %s %s %s %s\n", turn.Iteration, turn.Stage, turn.Tool, status, truncateString(detail, maxResultLen))
	case agent.StageSummary, agent.StageError:
		fmt.Fprintf(out, "\n%s:\n%s\n", strings.ToUpper(string(turn.Stage)), turn.Content)
	default:
		fmt.Fprintf(out, "[%d] %s %s\n", turn.Iteration, turn.Stage, turn.Content)
	}
}

// truncateString truncates a string to maxLen runes, preserving UTF-8 boundaries.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
