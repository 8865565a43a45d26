package tools

import (
	"context"
	"fmt"

	"github.com/kongjiyu/dotivra-sub004/repo"
)

// Repository tool names.
const (
	GetRepositoryStructure = "get_repository_structure"
	GetCommitHistory       = "get_commit_history"
)

// StructureArgs are the arguments for get_repository_structure.
type StructureArgs struct {
	Branch     string `json:"branch"`
	Path       string `json:"path"`
	MaxEntries Offset `json:"max_entries"`
}

// HistoryArgs are the arguments for get_commit_history.
type HistoryArgs struct {
	Branch  string `json:"branch"`
	Page    Offset `json:"page"`
	PerPage Offset `json:"per_page"`
}

func checkStructure(a *StructureArgs) error {
	if a.MaxEntries.Value < 0 {
		return fmt.Errorf("max_entries must not be negative")
	}
	return nil
}

func checkHistory(a *HistoryArgs) error {
	if a.Page.Set && a.Page.Value < 1 {
		return fmt.Errorf("page starts at 1")
	}
	if a.PerPage.Value < 0 || a.PerPage.Value > repo.MaxPerPage {
		return fmt.Errorf("per_page must be between 1 and %d", repo.MaxPerPage)
	}
	return nil
}

// RepositoryTools returns the read-only tools for the linked repository.
func RepositoryTools(provider *repo.Provider) []Tool {
	branchParam := Parameter{Name: "branch", Type: "string", Description: "Branch to read; falls back to main, master, then the default branch"}

	return []Tool{
		newTool(Metadata{
			Name:        GetRepositoryStructure,
			Description: fmt.Sprintf("List files and directories (path, type, size) of the linked repository %s.", provider.Ref()),
			Parameters: []Parameter{
				branchParam,
				{Name: "path", Type: "string", Description: "Only list entries under this directory"},
				{Name: "max_entries", Type: "integer", Description: fmt.Sprintf("Maximum entries to return (default %d)", repo.DefaultMaxEntries)},
			},
		}, checkStructure, func(ctx context.Context, a StructureArgs) (any, error) {
			return provider.Structure(ctx, a.Branch, a.Path, a.MaxEntries.Value)
		}),

		newTool(Metadata{
			Name:        GetCommitHistory,
			Description: fmt.Sprintf("Page through commit history (short hash, first message line, author, date) of %s.", provider.Ref()),
			Parameters: []Parameter{
				branchParam,
				{Name: "page", Type: "integer", Description: "Page number starting at 1"},
				{Name: "per_page", Type: "integer", Description: fmt.Sprintf("Commits per page (default %d, max %d)", repo.DefaultPerPage, repo.MaxPerPage)},
			},
		}, checkHistory, func(ctx context.Context, a HistoryArgs) (any, error) {
			return provider.Commits(ctx, a.Branch, a.Page.Value, a.PerPage.Value)
		}),
	}
}
