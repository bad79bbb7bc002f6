package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/gema-eval-api/internal/scoring"
	"github.com/noah-isme/gema-eval-api/internal/service"
)

type connector func(ctx context.Context, verbose bool) (service.ScoringService, func(), error)

type cliOptions struct {
	target  string
	bonus   []string
	verbose bool
	history bool
}

func newRootCommand(connect connector, out io.Writer) *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:          "scorectl",
		Short:        "Score teaching materials with the automatic scoring engine",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.target, "target", "", "target kind: submission, task, or empty for submission then task")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	score := &cobra.Command{
		Use:   "score <id>",
		Short: "Score one submission or task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			bonus, err := parseBonus(opts.bonus)
			if err != nil {
				return err
			}
			return withService(cmd, connect, opts, func(svc service.ScoringService) error {
				result, err := svc.ScoreSubmission(cmd.Context(), ids[0], service.ScoreOptions{Target: opts.target, BonusItems: bonus})
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	score.Flags().StringArrayVar(&opts.bonus, "bonus", nil, "bonus item as name=score, repeatable")

	batch := &cobra.Command{
		Use:   "batch <id>...",
		Short: "Score several submissions; failures do not stop the batch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			bonus, err := parseBonus(opts.bonus)
			if err != nil {
				return err
			}
			return withService(cmd, connect, opts, func(svc service.ScoringService) error {
				result, err := svc.ScoreBatch(cmd.Context(), ids, service.ScoreOptions{Target: opts.target, BonusItems: bonus})
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	batch.Flags().StringArrayVar(&opts.bonus, "bonus", nil, "bonus item applied to every id, as name=score")

	result := &cobra.Command{
		Use:   "result <id>",
		Short: "Print the latest stored result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return withService(cmd, connect, opts, func(svc service.ScoringService) error {
				if opts.history {
					history, err := svc.History(cmd.Context(), ids[0], opts.target)
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), history)
				}
				latest, err := svc.GetResult(cmd.Context(), ids[0], opts.target)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), latest)
			})
		},
	}
	result.Flags().BoolVar(&opts.history, "history", false, "print every stored result, newest first")

	root.AddCommand(score, batch, result)
	return root
}

func withService(cmd *cobra.Command, connect connector, opts *cliOptions, run func(service.ScoringService) error) error {
	svc, closeFn, err := connect(cmd.Context(), opts.verbose)
	if err != nil {
		return fmt.Errorf("initialise scoring engine: %w", err)
	}
	if closeFn != nil {
		defer closeFn()
	}
	return run(svc)
}

func parseIDs(args []string) ([]uint, error) {
	ids := make([]uint, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseUint(strings.TrimSpace(arg), 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid id %q", arg)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

func parseBonus(raw []string) ([]scoring.BonusItem, error) {
	items := make([]scoring.BonusItem, 0, len(raw))
	for _, entry := range raw {
		name, value, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid bonus %q: expected name=score", entry)
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || score < 0 {
			return nil, fmt.Errorf("invalid bonus score in %q", entry)
		}
		items = append(items, scoring.BonusItem{Name: name, Score: score})
	}
	return items, nil
}

func writeJSON(out io.Writer, value interface{}) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(value)
}
