package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/devmud/devmud-site/internal/domain"
	"github.com/devmud/devmud-site/internal/store"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func newTurnsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "turns <session-id>",
		Short: "Print the recorded chat turns of a widget session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openStore(opts)
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()

			turns, err := repo.ListTurns(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("list turns: %w", err)
			}
			if len(turns) == 0 {
				return fmt.Errorf("no turns recorded for session %q", args[0])
			}
			printTurns(cmd.OutOrStdout(), outputPalette(cmd.OutOrStdout(), opts), turns)
			return nil
		},
	}
}

func newInquiryCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "inquiry <id>",
		Short: "Print a stored contact inquiry as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openStore(opts)
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()

			inq, err := repo.GetInquiry(cmd.Context(), args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("inquiry %q not found", args[0])
			}
			if err != nil {
				return fmt.Errorf("get inquiry: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(inq)
		},
	}
}

func openStore(opts *options) (*store.SQLiteStore, error) {
	if opts.dbPath == "" {
		return nil, errors.New("--db is required")
	}
	if _, err := os.Stat(opts.dbPath); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	repo, err := store.NewSQLite(opts.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return repo, nil
}

func outputPalette(out io.Writer, opts *options) palette {
	f, ok := out.(*os.File)
	return newPalette(ok && !opts.noColor && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())))
}

func printTurns(out io.Writer, pal palette, turns []domain.Turn) {
	for _, turn := range turns {
		status := pal.dim
		if turn.Outcome != domain.OutcomeOK {
			status = pal.warn
		}
		fmt.Fprintln(out, status.Sprintf("%s  %s  %s", turn.CreatedAt.Format(time.DateTime), turn.Outcome, turn.Latency))
		fmt.Fprintf(out, "%s %s\n", pal.user.Sprint("you:"), turn.UserMessage)
		fmt.Fprintf(out, "%s %s\n\n", pal.assistant.Sprint("assistant:"), turn.Reply)
	}
}
