package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lifetime-memories/albumkeeper/internal/app"
	"github.com/lifetime-memories/albumkeeper/internal/pages"
)

func newStatusCommand(g *globals) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "status REPO",
		Short: "Show the GitHub Pages build status of a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := args[0]
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if !watch {
					u, err := a.PagesStatus(ctx, repo)
					if err != nil {
						return err
					}
					printBuild(cmd, u)
					return nil
				}
				if err := a.Watch(ctx, repo, func(u pages.Update) {
					printBuild(cmd, u)
				}); err != nil {
					return err
				}
				return waitForBuild(cmd, a, repo, "")
			})
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "follow the build until it settles")
	return cmd
}
