package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lifetime-memories/albumkeeper/internal/app"
	"github.com/lifetime-memories/albumkeeper/internal/upload"
)

func newUploadCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "upload REPO FILE...",
		Short: "Upload photos with generated thumbnails",
		Long: `Upload JPEG and PNG files to REPO. Each photo is committed at the
repository root and a thumbnail under thumbnails/. Files that already exist
in the repository are skipped.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, files := args[0], args[1:]
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				done := 0
				report := a.Upload(ctx, repo, files, func(res upload.Result) {
					done++
					line := fmt.Sprintf("[%d/%d] %-9s %s", done, len(files), res.State, res.Filename)
					if res.Err != nil {
						line += fmt.Sprintf(" (%s: %v)", res.Reason, res.Err)
					}
					fmt.Fprintln(out, line)
				})
				fmt.Fprintf(out, "%d uploaded, %d failed\n", len(report.Succeeded()), len(report.Failed()))
				if err := report.Err(); err != nil {
					return fmt.Errorf("%d of %d files failed", len(report.Failed()), len(report.Results))
				}
				return nil
			})
		},
	}
}
