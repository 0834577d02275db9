package cli

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lifetime-memories/albumkeeper/internal/app"
)

func newImagesCommand(g *globals) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "images REPO",
		Short: "List the photos in a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				images, err := a.Images(ctx, args[0], refresh)
				if err != nil {
					return err
				}
				if len(images) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No photos in %s.\n", args[0])
					return nil
				}
				rows := make([][]string, 0, len(images))
				var total int64
				for _, img := range images {
					thumb := "-"
					if img.HasThumbnail() {
						thumb = humanize.Bytes(uint64(img.ThumbnailSize))
					}
					uploaded := "-"
					if !img.UploadedAt.IsZero() {
						uploaded = img.UploadedAt.Local().Format("2006-01-02 15:04")
					}
					rows = append(rows, []string{img.Name, humanize.Bytes(uint64(img.Size)), thumb, img.ShortSHA(), uploaded})
					total += img.Size
				}
				printTable(cmd.OutOrStdout(), []string{"FILE", "SIZE", "THUMBNAIL", "SHA", "UPLOADED"}, rows)
				noun := "photos"
				if len(images) == 1 {
					noun = "photo"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d %s, %s\n", len(images), noun, humanize.Bytes(uint64(total)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache")
	return cmd
}
