package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kongjiyu/dotivra-sub004/document"
	"github.com/kongjiyu/dotivra-sub004/internal/logging"
	"github.com/kongjiyu/dotivra-sub004/repo"
	"github.com/kongjiyu/dotivra-sub004/storage"
	"github.com/kongjiyu/dotivra-sub004/tools"
)

// Workspace holds what sessions share: the document store, the journal, the
// per-document lock table and the repository client.
type Workspace struct {
	Store      storage.DocumentStore
	Journal    storage.Journal
	Locks      *document.Locks
	RepoAPI    repo.API
	BranchHint string
	Logger     *zap.Logger
}

// Open creates a session bound to documentID (none when empty). The
// repository link is repoLink, or the document's own link when repoLink is
// empty. An unusable link omits repository tools instead of failing.
func (w Workspace) Open(ctx context.Context, documentID, repoLink string) (*Session, error) {
	logger := logging.OrNop(w.Logger)
	engine := document.NewEngine(w.Store,
		document.WithJournal(w.Journal),
		document.WithLocks(w.Locks),
		document.WithLogger(logger))

	session, err := NewSession(engine, nil, logger)
	if err != nil {
		return nil, err
	}
	if w.RepoAPI != nil {
		session.linker = w.linker(session.logger)
	}
	session.pinned = repoLink

	if documentID != "" {
		if _, err := session.SetCurrentDocument(ctx, documentID); err != nil {
			return nil, err
		}
	} else if repoLink != "" && session.linker != nil {
		if err := session.link(repoLink); err != nil {
			return nil, err
		}
	}
	return session, nil
}

// linker returns a function that resolves a link to a repository provider,
// or nil when the link is empty or unusable.
func (w Workspace) linker(logger *zap.Logger) func(string) *repo.Provider {
	return func(link string) *repo.Provider {
		if link == "" {
			return nil
		}
		p, err := repo.NewProvider(w.RepoAPI, link, w.BranchHint, logger)
		if err != nil {
			logger.Warn("repository tools disabled", zap.String("link", link), zap.Error(err))
			return nil
		}
		return p
	}
}

// Session owns the document engine and tool registry of one conversation.
// Sessions are not shared; engines of different sessions serialize edits
// through the lock table they were built with.
type Session struct {
	id     string
	engine *document.Engine
	logger *zap.Logger

	// linker is nil for sessions built with NewSession; their repository
	// tools are fixed at construction.
	linker func(string) *repo.Provider
	pinned string

	mu       sync.Mutex
	repo     *repo.Provider
	registry *tools.Registry
	history  []Turn
}

// NewSession builds a session over engine. Repository tools are registered
// only when provider is non-nil.
func NewSession(engine *document.Engine, provider *repo.Provider, logger *zap.Logger) (*Session, error) {
	id := uuid.NewString()
	s := &Session{
		id:     id,
		engine: engine,
		logger: logging.OrNop(logger).With(zap.String("session", id)),
	}
	if err := s.setRepository(provider); err != nil {
		return nil, err
	}
	return s, nil
}

// setRepository rebuilds the registry with document tools plus, when
// provider is non-nil, its repository tools.
func (s *Session) setRepository(provider *repo.Provider) error {
	all := tools.DocumentTools(s.engine)
	if provider != nil {
		all = append(all, tools.RepositoryTools(provider)...)
	}
	registry, err := tools.NewRegistry(s.logger, all...)
	if err != nil {
		return fmt.Errorf("session registry: %w", err)
	}

	s.mu.Lock()
	s.repo = provider
	s.registry = registry
	s.mu.Unlock()
	return nil
}

// link switches the repository tools to link, keeping the registry when the
// repository is unchanged.
func (s *Session) link(link string) error {
	provider := s.linker(link)
	s.mu.Lock()
	current := s.repo
	s.mu.Unlock()
	if current != nil && provider != nil && current.Ref() == provider.Ref() {
		return nil
	}
	if current == nil && provider == nil {
		return nil
	}
	return s.setRepository(provider)
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// SetCurrentDocument binds the session to document id. An empty id clears
// the binding. For sessions opened from a Workspace, the repository tools
// follow the newly bound document's link unless a link was given to Open.
func (s *Session) SetCurrentDocument(ctx context.Context, id string) (document.BindResult, error) {
	result, err := s.engine.Bind(ctx, id)
	if err != nil {
		return result, err
	}
	if s.linker == nil {
		return result, nil
	}
	link := s.pinned
	if link == "" {
		if doc, ok := s.engine.Current(); ok {
			link = doc.RepoLink
		}
	}
	if err := s.link(link); err != nil {
		return result, err
	}
	return result, nil
}

// Document returns the bound document, if any.
func (s *Session) Document() (document.Handle, bool) {
	return s.engine.Current()
}

// ExecuteTool dispatches one tool call. Failures come back as results.
func (s *Session) ExecuteTool(ctx context.Context, name string, args json.RawMessage) tools.Result {
	return s.Registry().Execute(ctx, name, args)
}

// ToolNames returns the registered tool names, sorted.
func (s *Session) ToolNames() []string {
	return s.Registry().Names()
}

// HasRepository reports whether repository tools are available.
func (s *Session) HasRepository() bool {
	return s.Repository() != nil
}

// Repository returns the linked repository provider, or nil.
func (s *Session) Repository() *repo.Provider {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo
}

// Usage returns the engine's retained usage entries.
func (s *Session) Usage() []document.UsageEntry {
	return s.engine.Usage()
}

// Registry exposes the session's tool registry.
func (s *Session) Registry() *tools.Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry
}

// History returns the turns yielded so far in this session, oldest first.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.history...)
}

func (s *Session) record(t Turn) {
	s.mu.Lock()
	s.history = append(s.history, t)
	s.mu.Unlock()
}
