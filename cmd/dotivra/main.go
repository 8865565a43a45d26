// Package main provides the dotivra CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kongjiyu/dotivra-sub004/cli"
)

var (
	// Global flags
	configPath string
	provider   string
	verbose    bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "dotivra",
		Short: "AI document editing agent",
		Long: `A CLI for an agent that edits documentation through a fixed set of tools.

Every edit goes through the document tools (scan, search, insert, replace,
remove, undo) and is journaled. A linked GitHub repository adds read-only
structure and commit history tools.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML settings file")
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, anthropic, deepseek, gemini)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(toolCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(docCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// withApp opens the application for one command and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *cli.App) error) error {
	app, err := cli.NewApp(cli.Options{
		ConfigPath: configPath,
		Provider:   provider,
		Verbose:    verbose,
		Out:        cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}
	runErr := fn(cmd.Context(), app)
	if err := app.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func runCmd() *cobra.Command {
	var docID string
	var repoLink string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run one agent session against a document",
		Long: `Run one agent session. The agent streams its stages (planning, reasoning,
executing, toolUsed, toolResult) and ends with a summary or an error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				return app.Run(ctx, args[0], docID, repoLink, asJSON)
			})
		},
	}

	cmd.Flags().StringVarP(&docID, "doc", "d", "", "Document ID to edit")
	cmd.Flags().StringVar(&repoLink, "repo", "", "Repository link (overrides the document's link)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print each stage as a JSON line")

	return cmd
}

func toolCmd() *cobra.Command {
	var docID string
	var repoLink string
	var argsJSON string

	cmd := &cobra.Command{
		Use:   "tool [name]",
		Short: "Execute a single tool without a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				return app.Tool(ctx, args[0], docID, repoLink, argsJSON)
			})
		},
	}

	cmd.Flags().StringVarP(&docID, "doc", "d", "", "Document ID the tool acts on")
	cmd.Flags().StringVar(&repoLink, "repo", "", "Repository link for repository tools")
	cmd.Flags().StringVarP(&argsJSON, "args", "a", "{}", "Tool arguments as a JSON object")

	return cmd
}

func toolsCmd() *cobra.Command {
	var repoLink string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				return app.ListTools(ctx, repoLink, asJSON, verbose)
			})
		},
	}

	cmd.Flags().StringVar(&repoLink, "repo", "", "Include repository tools for this link")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print tool definitions as JSON")

	return cmd
}

func docCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Manage stored documents",
	}
	cmd.AddCommand(docPutCmd(), docGetCmd(), docHistoryCmd())
	return cmd
}

func docPutCmd() *cobra.Command {
	var name, file, summary, repoLink string

	cmd := &cobra.Command{
		Use:   "put [id]",
		Short: "Create or replace a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				name = args[0]
			}
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				return app.PutDocument(ctx, args[0], name, file, summary, repoLink)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Document name (defaults to the id)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Content file, or - for stdin")
	cmd.Flags().StringVar(&summary, "summary", "", "Document summary")
	cmd.Flags().StringVar(&repoLink, "repo", "", "Linked repository")

	return cmd
}

func docGetCmd() *cobra.Command {
	var field string

	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Print a document field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				return app.GetDocument(ctx, args[0], field)
			})
		},
	}

	cmd.Flags().StringVar(&field, "field", "content", "Field to print (content or summary)")

	return cmd
}

func docHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: "List recent revisions of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				return app.History(ctx, args[0], limit)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of revisions to show")

	return cmd
}
