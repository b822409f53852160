package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/catalog"
	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/store"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Database string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List catalogued tests and, with --db, stored runs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listTests(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database of stored runs")

	return cmd
}

type testListing struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Workers     int    `json:"workers"`
	Iterations  int    `json:"iterations"`
}

func listTests(opts *ListOptions, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	listings := make([]testListing, 0)
	for _, e := range catalog.All() {
		listings = append(listings, testListing{
			Name:        e.Name,
			Description: e.Test.Description,
			Workers:     len(e.Test.Workers),
			Iterations:  e.Config.Iterations,
		})
	}

	var runs []store.RunSummary
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		runs, err = st.ListRuns(context.Background())
		if err != nil {
			return WrapExitError(ExitCommandError, "list runs", err)
		}
	}

	if opts.Format == "json" {
		payload := map[string]any{"tests": listings}
		if opts.Database != "" {
			payload["runs"] = runs
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	fmt.Fprintln(out, "tests:")
	for _, l := range listings {
		fmt.Fprintf(out, "  %-24s workers=%d iterations=%d  %s\n",
			l.Name, l.Workers, l.Iterations, l.Description)
	}
	if opts.Database != "" {
		fmt.Fprintln(out, "runs:")
		for _, r := range runs {
			fmt.Fprintf(out, "  %s  %-24s %-16s trials=%d forbidden=%d  %s\n",
				r.RunID, r.Test, string(r.Status), r.Trials, r.Forbidden, r.CreatedAt)
		}
	}
	return nil
}
