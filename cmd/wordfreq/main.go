// Command wordfreq counts word frequencies across every regular file under a
// directory and prints the most frequent words, one "word count" pair per line.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	internal "github.com/ZanzyTHEbar/wordfreq/wfreq"
	"github.com/ZanzyTHEbar/wordfreq/wfreq/config"
	"github.com/ZanzyTHEbar/wordfreq/wfreq/counter"
	"github.com/ZanzyTHEbar/wordfreq/wfreq/filesystem/common"
	"github.com/ZanzyTHEbar/wordfreq/wfreq/store"
	"github.com/ZanzyTHEbar/wordfreq/wfreq/wordcount"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/pflag"
)

const (
	exitOK     = 0
	exitUsage  = 1
	exitConfig = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet(internal.DefaultAppName, pflag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "config file (default ./config.yaml, then ~/.config/wordfreq/config.yaml)")
	config.RegisterFlags(flags)
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [options] <path>\n\nOptions:\n", internal.DefaultAppName)
		flags.PrintDefaults()
		fmt.Fprintf(stderr, "\nExit status:\n  %d  success\n  %d  usage, I/O or run failure\n  %d  invalid configuration (parameter below 1, missing or non-directory root)\n",
			exitOK, exitUsage, exitConfig)
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if flags.NArg() > 1 {
		flags.Usage()
		return exitUsage
	}

	cfg, err := config.LoadConfig(*configPath, flags)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return exitConfig
	}
	if flags.NArg() == 1 {
		cfg.Counter.Root = flags.Arg(0)
	}

	logger := internal.GetLoggerWithLevel(cfg.Log.Level).Output(stderr)
	setDefaultSlog(stderr, cfg.Log.Level)

	opts := []wordcount.Option{}

	if cfg.Store.Path != "" {
		runs, err := store.Open(cfg.Store.Path)
		if err != nil {
			logger.Error().Err(err).Str("path", cfg.Store.Path).Msg("Failed to open result store")
			return exitUsage
		}
		defer runs.Close()
		opts = append(opts, wordcount.WithStore(runs))
	}

	var bar *progressbar.ProgressBar
	if cfg.Counter.Progress {
		bar = newSpinner(stderr)
		opts = append(opts, wordcount.WithProgress(func(string) { _ = bar.Add(1) }))
	}

	result, err := wordcount.New(cfg.Counter, nil, opts...).Run(ctx)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		if errors.Is(err, common.ErrInvalidConfig) {
			logger.Error().Err(err).Msg("Invalid configuration")
			return exitConfig
		}
		logger.Error().Err(err).Msg("Word count failed")
		return exitUsage
	}

	if err := printRanked(stdout, result.Ranked, cfg.Counter.DocFreq); err != nil {
		logger.Error().Err(err).Msg("Failed to write output")
		return exitUsage
	}

	logSummary(logger, result)
	return exitOK
}

// printRanked writes "word count" lines, or "word count files" with docFreq
func printRanked(w io.Writer, ranked []counter.WordCount, docFreq bool) error {
	bw := bufio.NewWriter(w)
	for _, wc := range ranked {
		if docFreq {
			fmt.Fprintf(bw, "%s %d %d\n", wc.Word, wc.Count, wc.Files)
			continue
		}
		fmt.Fprintf(bw, "%s %d\n", wc.Word, wc.Count)
	}
	return bw.Flush()
}

func logSummary(logger zerolog.Logger, result *wordcount.Result) {
	event := logger.Info().
		Str("run", result.RunID.String()).
		Str("files", humanize.Comma(int64(result.FilesQueued))).
		Str("read", humanize.IBytes(uint64(result.Metrics.Bytes))).
		Str("words", humanize.Comma(int64(result.TotalWords))).
		Str("distinct", humanize.Comma(int64(result.Distinct))).
		Int("failed", len(result.Failures)).
		Dur("duration", result.Duration)
	if result.Archived {
		event = event.Bool("archived", true)
	}
	event.Msg("Word count complete")
}

func newSpinner(w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("counting files"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
}

// setDefaultSlog routes library diagnostics to w at the named level
func setDefaultSlog(w io.Writer, level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
}
