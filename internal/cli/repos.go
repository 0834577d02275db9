package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lifetime-memories/albumkeeper/internal/app"
	"github.com/lifetime-memories/albumkeeper/internal/catalog"
)

// errCancelled is returned when the user declines a confirmation.
var errCancelled = errors.New("cancelled")

// confirm asks a yes/no question on the terminal. Tests replace it.
var confirm = func(message string) (bool, error) {
	var ok bool
	prompt := &survey.Confirm{Message: message, Default: false}
	if err := survey.AskOne(prompt, &ok); err != nil {
		return false, fmt.Errorf("confirm: %w", err)
	}
	return ok, nil
}

func newReposCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "repos",
		Aliases: []string{"repo"},
		Short:   "List, create and delete gallery repositories",
	}
	cmd.AddCommand(newReposListCommand(g), newReposCreateCommand(g), newReposDeleteCommand(g))
	return cmd
}

func newReposListCommand(g *globals) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List gallery repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				repos, err := a.Repositories(ctx, refresh)
				if err != nil {
					return err
				}
				if len(repos) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No repositories.")
					return nil
				}
				rows := make([][]string, 0, len(repos))
				for _, r := range repos {
					pagesLabel := "-"
					if r.HasPages {
						pagesLabel = "enabled"
					}
					updated := "-"
					if !r.UpdatedAt.IsZero() {
						updated = humanize.Time(r.UpdatedAt)
					}
					rows = append(rows, []string{
						r.Name, r.VisibilityLabel(), pagesLabel,
						humanize.Bytes(uint64(r.SizeKB) * 1024), updated,
					})
				}
				printTable(cmd.OutOrStdout(), []string{"NAME", "VISIBILITY", "PAGES", "SIZE", "UPDATED"}, rows)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache")
	return cmd
}

func newReposCreateCommand(g *globals) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a gallery repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := catalog.ValidateRepoName(args[0]); err != nil {
				return err
			}
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				repo, err := a.CreateRepo(ctx, args[0], description)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", repo.Name)
				if repo.HTMLURL != "" {
					fmt.Fprintln(cmd.OutOrStdout(), repo.HTMLURL)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", fmt.Sprintf("repository description (default %q)", catalog.DefaultDescription))
	return cmd
}

func newReposDeleteCommand(g *globals) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a gallery repository and its photos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !yes {
				ok, err := confirm(fmt.Sprintf("Permanently delete %s, its photos and its gallery?", name))
				if err != nil {
					return err
				}
				if !ok {
					return errCancelled
				}
			}
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.DeleteRepo(ctx, name); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", name)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
