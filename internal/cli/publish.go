package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lifetime-memories/albumkeeper/internal/app"
	"github.com/lifetime-memories/albumkeeper/internal/pages"
	"github.com/lifetime-memories/albumkeeper/internal/publish"
)

func newPublishCommand(g *globals) *cobra.Command {
	var (
		layout      string
		title       string
		description string
		noWait      bool
	)
	cmd := &cobra.Command{
		Use:   "publish REPO",
		Short: "Publish a repository as a GitHub Pages gallery",
		Long: `Render index.html from the photos in REPO, commit it, enable GitHub Pages
and request a build. By default the command waits until the build completes,
fails or times out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := args[0]
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				opts := publish.Options{Layout: a.Config.Pages.Layout, Title: title, Description: description}
				if layout != "" {
					l, err := publish.ParseLayout(layout)
					if err != nil {
						return err
					}
					opts.Layout = l
				}

				res, err := a.Publish(ctx, repo, opts, func(u pages.Update) {
					printBuild(cmd, u)
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Published %d photos to %s (%s layout)\n", res.Images, repo, opts.Layout)
				if noWait {
					a.StopWatch()
					if res.SiteURL != "" {
						fmt.Fprintln(out, res.SiteURL)
					}
					return nil
				}
				return waitForBuild(cmd, a, repo, res.SiteURL)
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&layout, "layout", "", "gallery layout: justified, masonry or grid (default from config)")
	flags.StringVar(&title, "title", "", "page title (default the repository name)")
	flags.StringVar(&description, "description", "", "text shown under the title")
	flags.BoolVar(&noWait, "no-wait", false, "return once the build is requested")
	return cmd
}

// waitForBuild blocks until the active watch ends and reports its outcome.
func waitForBuild(cmd *cobra.Command, a *app.App, repo, siteURL string) error {
	select {
	case <-a.Poller.Done():
	case <-cmd.Context().Done():
		a.StopWatch()
		return cmd.Context().Err()
	}
	u, ok := a.Store.Snapshot().Build(repo)
	if !ok {
		return fmt.Errorf("no pages status recorded for %s", repo)
	}
	if u.SiteURL != "" {
		siteURL = u.SiteURL
	}
	switch u.Status {
	case pages.Completed:
		if siteURL != "" {
			fmt.Fprintln(cmd.OutOrStdout(), siteURL)
		}
		return nil
	case pages.TimedOut:
		return fmt.Errorf("pages build for %s timed out", repo)
	case pages.Failed:
		if u.Err != nil {
			return fmt.Errorf("pages build for %s failed: %w", repo, u.Err)
		}
		return fmt.Errorf("pages build for %s failed", repo)
	}
	return fmt.Errorf("stopped watching %s while %s", repo, u.Status)
}
