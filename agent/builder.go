// Orchestrator builder for fluent configuration.
//
// Information Hiding:
// - Builder state management hidden
// - Default value application hidden

package agent

import (
	"errors"

	"go.uber.org/zap"

	"github.com/kongjiyu/dotivra-sub004/document"
	"github.com/kongjiyu/dotivra-sub004/internal/logging"
	"github.com/kongjiyu/dotivra-sub004/llm"
	"github.com/kongjiyu/dotivra-sub004/repo"
	"github.com/kongjiyu/dotivra-sub004/storage"
)

// Builder provides fluent configuration for creating orchestrators.
// Usage: agent.NewBuilder(provider, store).Journal(store).Build()
type Builder struct {
	provider   llm.Provider
	store      storage.DocumentStore
	journal    storage.Journal
	locks      *document.Locks
	repoAPI    repo.API
	branchHint string
	config     Config
	logger     *zap.Logger
}

// NewBuilder starts an orchestrator over provider and store with
// DefaultConfig bounds.
func NewBuilder(provider llm.Provider, store storage.DocumentStore) *Builder {
	return &Builder{
		provider: provider,
		store:    store,
		config:   DefaultConfig(),
	}
}

// Journal records every edit so undo works.
func (b *Builder) Journal(journal storage.Journal) *Builder {
	b.journal = journal
	return b
}

// Locks shares a per-document lock table, e.g. with other orchestrators.
func (b *Builder) Locks(locks *document.Locks) *Builder {
	b.locks = locks
	return b
}

// Repositories enables repository tools for documents with a link.
func (b *Builder) Repositories(api repo.API, branchHint string) *Builder {
	b.repoAPI = api
	b.branchHint = branchHint
	return b
}

// Config replaces all bounds.
func (b *Builder) Config(config Config) *Builder {
	b.config = config
	return b
}

// MaxIterations sets the iteration ceiling.
func (b *Builder) MaxIterations(n int) *Builder {
	b.config.MaxIterations = n
	return b
}

// MaxToolCalls sets the tool-call ceiling.
func (b *Builder) MaxToolCalls(n int) *Builder {
	b.config.MaxToolCalls = n
	return b
}

// SystemPrompt sets the role description.
func (b *Builder) SystemPrompt(prompt string) *Builder {
	b.config.SystemPrompt = prompt
	return b
}

// Logger sets the structured logger.
func (b *Builder) Logger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// Build creates the orchestrator.
func (b *Builder) Build() (*Orchestrator, error) {
	if b.provider == nil {
		return nil, errors.New("agent: provider is required")
	}
	if b.store == nil {
		return nil, errors.New("agent: document store is required")
	}
	locks := b.locks
	if locks == nil {
		locks = document.NewLocks()
	}
	logger := logging.OrNop(b.logger)
	return &Orchestrator{
		provider: b.provider,
		workspace: Workspace{
			Store:      b.store,
			Journal:    b.journal,
			Locks:      locks,
			RepoAPI:    b.repoAPI,
			BranchHint: b.branchHint,
			Logger:     logger,
		},
		config: b.config.withDefaults(),
		logger: logger,
		sleep:  sleepContext,
	}, nil
}
