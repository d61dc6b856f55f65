package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/gesturekit/internal/config"
	"github.com/dshills/gesturekit/internal/scenario"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Jobs  int
	Watch bool
}

// ReplayFileResult is the outcome of one scenario file.
type ReplayFileResult struct {
	File   string           `json:"file"`
	Result *scenario.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>...",
		Short: "Replay scenarios and print their traces",
		Long: `Replay each scenario against a fresh engine wired to a recording native
layer and print the resulting trace of native commands and callbacks.

Files are replayed concurrently; output follows argument order.

Exit codes:
  0 - All scenarios replayed
  1 - At least one scenario failed
  2 - Command error (bad flags, unreadable config)

Examples:
  gesturectl replay testdata/exclusive_taps.yaml
  gesturectl replay --format json scenarios/*.yaml
  gesturectl replay --config engine.toml --watch scenarios/*.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, opts, args)
		},
	}

	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 4, "scenarios replayed at once")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "replay again whenever the config file changes")

	return cmd
}

func runReplay(cmd *cobra.Command, opts *ReplayOptions, files []string) error {
	if opts.Watch && opts.Config == "" {
		return NewExitError(ExitCommandError, "--watch needs --config")
	}
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := replayFiles(ctx, opts, cfg, files, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if err := printReplay(out, opts.Format, results); err != nil {
		return err
	}

	if opts.Watch {
		return watchReplay(ctx, cmd, opts, files)
	}
	return replayFailure(results)
}

// replayFiles replays files concurrently and returns their results in
// argument order. Failures are recorded per file.
func replayFiles(ctx context.Context, opts *ReplayOptions, cfg config.Config, files []string, logOut io.Writer) ([]ReplayFileResult, error) {
	results := make([]ReplayFileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	if opts.Jobs > 0 {
		g.SetLimit(opts.Jobs)
	}
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			results[i] = replayFile(gctx, opts, cfg, file, logOut)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, WrapExitError(ExitCommandError, "replay interrupted", err)
	}
	return results, nil
}

func replayFile(ctx context.Context, opts *ReplayOptions, cfg config.Config, file string, logOut io.Writer) ReplayFileResult {
	res := ReplayFileResult{File: file}
	s, err := scenario.Load(file)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	r, err := scenario.Run(ctx, s,
		scenario.WithConfig(cfg),
		scenario.WithLogger(opts.logger(logOut, cfg).WithField("scenario", s.Name)))
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Result = r
	return res
}

func printReplay(w io.Writer, format string, results []ReplayFileResult) error {
	if format == "json" {
		return writeJSON(w, results)
	}
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if r.Error != "" {
			fmt.Fprintf(w, "# %s\nerror: %s\n", r.File, r.Error)
			continue
		}
		fmt.Fprint(w, r.Result.Text())
	}
	return nil
}

func replayFailure(results []ReplayFileResult) error {
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", failed, len(results)))
	}
	return nil
}

// watchReplay replays files each time the config file changes, until ctx
// is cancelled.
func watchReplay(ctx context.Context, cmd *cobra.Command, opts *ReplayOptions, files []string) error {
	errOut := cmd.ErrOrStderr()
	reloads := make(chan config.Config, 1)

	w, err := config.Watch(opts.Config, func(cfg config.Config) {
		select {
		case reloads <- cfg:
		default:
			// A replay is already pending; it will read the newest file.
			select {
			case <-reloads:
			default:
			}
			reloads <- cfg
		}
	}, config.WithErrorHandler(func(err error) {
		fmt.Fprintf(errOut, "config reload failed: %v\n", err)
	}))
	if err != nil {
		return WrapExitError(ExitCommandError, "watch config", err)
	}
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg := <-reloads:
			fmt.Fprintf(errOut, "config changed, replaying %d scenarios\n", len(files))
			results, err := replayFiles(ctx, opts, cfg, files, errOut)
			if err != nil {
				return err
			}
			if err := printReplay(cmd.OutOrStdout(), opts.Format, results); err != nil {
				return err
			}
		}
	}
}
