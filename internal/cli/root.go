package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/lifetime-memories/albumkeeper/internal/app"
	"github.com/lifetime-memories/albumkeeper/internal/github"
)

// globals are the persistent flags shared by every command.
type globals struct {
	version    string
	configPath string
	logLevel   string
	envFile    string
	poll       time.Duration
	prefsPath  string
}

func (g *globals) options(stderr io.Writer) app.Options {
	return app.Options{
		ConfigPath: g.configPath,
		PrefsPath:  g.prefsPath,
		EnvFile:    g.envFile,
		LogLevel:   g.logLevel,
		PollEvery:  g.poll,
		Version:    g.version,
		Stderr:     stderr,
	}
}

// withApp wires an App for one command and closes it afterwards. Warnings
// and errors are echoed to the command's stderr.
func (g *globals) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	a, err := app.New(g.options(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}

// NewRootCommand builds the albumkeeper command tree. Without a subcommand
// it starts the TUI.
func NewRootCommand(version string) *cobra.Command {
	g := &globals{version: version}
	root := &cobra.Command{
		Use:   "albumkeeper",
		Short: "Family photo galleries on GitHub",
		Long: `albumkeeper keeps family photo albums in GitHub repositories: it uploads
photos with thumbnails, lists what is there and publishes each album as a
GitHub Pages gallery.

Run without a command to open the terminal interface.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), g.options(nil))
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&g.configPath, "config", "", "config file (default ~/.config/albumkeeper/config.toml)")
	flags.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&g.envFile, "env-file", "", "dotenv file to read the token from (default ./.env)")
	flags.DurationVar(&g.poll, "poll", 0, "repository refresh interval in the TUI (default from config)")
	flags.StringVar(&g.prefsPath, "prefs", "", "preferences file (default ~/.config/albumkeeper/prefs.toml)")
	_ = flags.MarkHidden("prefs")

	root.AddCommand(
		newReposCommand(g),
		newImagesCommand(g),
		newUploadCommand(g),
		newPublishCommand(g),
		newStatusCommand(g),
		newVersionCommand(version),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, version string, args []string) int {
	root := NewRootCommand(version)
	root.SetArgs(args)
	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}
	if ctx.Err() != nil {
		return 130
	}
	fmt.Fprintln(root.ErrOrStderr(), "albumkeeper: "+errorText(err, operation(cmd)))
	return 1
}

// errorText is the user-facing message for err. Errors that did not come
// from GitHub are printed as they are.
func errorText(err error, op string) string {
	if github.KindOf(err) == github.KindUnknown {
		return err.Error()
	}
	return github.Message(err, op)
}

func operation(cmd *cobra.Command) string {
	if cmd == nil || !cmd.HasParent() {
		return ""
	}
	return cmd.CommandPath()
}
