// Package cli provides the terminal chat client for the Dev Mud assistant.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/devmud/devmud-site/internal/chat"
	"github.com/devmud/devmud-site/internal/config"
	"github.com/devmud/devmud-site/internal/llm"
	"github.com/devmud/devmud-site/internal/store"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

type options struct {
	baseURL string
	model   string
	dbPath  string
	noColor bool
	verbose bool
}

// NewRootCommand builds the chat command.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "devmud-chat",
		Short: "Chat with the Dev Mud assistant from a terminal",
		Long: `devmud-chat runs the same conversation the site's chat widget runs.

Type a question and press Enter. Slash commands trigger the widget's
quick actions (/quote, /call, /services, /contact); /help lists them all.
The completion credential is read from GROQ_API_KEY.

With --db, the turns and inquiry subcommands read back what the server
recorded.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.baseURL, "base-url", envOr("GROQ_BASE_URL", llm.DefaultBaseURL), "completion service base URL")
	cmd.Flags().StringVar(&opts.model, "model", llm.DefaultModel, "completion model")
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database to record turns to or read from")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log completion requests to stderr")

	cmd.AddCommand(newTurnsCommand(opts), newInquiryCommand(opts))

	return cmd
}

// Execute runs the chat command until the user exits or the process is interrupted.
func Execute() error {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCommand().ExecuteContext(ctx)
}

func run(ctx context.Context, opts *options) error {
	level := slog.LevelError
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	stdinTTY := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	stdoutTTY := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	var recorder chat.TurnRecorder
	if opts.dbPath != "" {
		repo, err := store.NewSQLite(opts.dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer func() {
			if closeErr := repo.Close(); closeErr != nil {
				logger.Error("Failed to close database", "error", closeErr)
			}
		}()
		recorder = repo
	}

	pal := newPalette(stdoutTTY && !opts.noColor)
	intents := &terminalIntents{out: os.Stdout, pal: pal}
	ctrl := chat.NewController(chat.ControllerConfig{
		Credentials: config.EnvCredential{},
		Completer: llm.NewGroqClient(llm.Options{
			BaseURL: opts.baseURL,
			Model:   opts.model,
			Logger:  logger,
		}),
		Intents:   intents,
		Recorder:  recorder,
		Logger:    logger,
		VisitorID: "terminal",
	})

	repl := NewREPL(ctrl, os.Stdin, os.Stdout, pal, stdinTTY)
	return repl.Run(ctx)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
