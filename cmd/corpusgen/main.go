// Command corpusgen writes a synthetic, log-like corpus with skewed word
// frequencies for benchmarking wordfreq.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	internal "github.com/ZanzyTHEbar/wordfreq/wfreq"
	"github.com/ZanzyTHEbar/wordfreq/wfreq/corpus"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
)

const (
	exitOK      = 0
	exitFailed  = 1
	exitInvalid = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], afero.NewOsFs(), os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, fs afero.Fs, stderr io.Writer) int {
	defaults := corpus.DefaultOptions()

	flags := pflag.NewFlagSet("corpusgen", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	out := flags.String("out", defaults.OutDir, "output directory")
	files := flags.Int("files", defaults.Files, "number of files")
	mib := flags.Int("mib", defaults.MiBPerFile, "size per file in MiB")
	vocab := flags.Int("vocab", defaults.Vocab, "vocabulary size")
	skew := flags.Float64("skew", defaults.Skew, "frequency skew, 0 = uniform, 1..2 = strongly skewed")
	seed := flags.Uint64("seed", 0, "random seed, 0 = time based")
	minLen := flags.Int("minlen", defaults.MinWordLen, "min generated word length")
	maxLen := flags.Int("maxlen", defaults.MaxWordLen, "max generated word length")
	workers := flags.Int("workers", 0, "files written concurrently (0 = auto)")
	progress := flags.Bool("progress", false, "show a progress bar")
	logLevel := flags.String("log", internal.DefaultLogLevel, "log level (debug, info, warn, error)")
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: corpusgen [options]\n\nOptions:\n")
		flags.PrintDefaults()
		fmt.Fprintf(stderr, "\nExample:\n  corpusgen --out data --files 100 --mib 20 --vocab 50000 --skew 1.3 --seed 42\n")
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitInvalid
	}
	if flags.NArg() > 0 {
		fmt.Fprintf(stderr, "Unknown argument: %s\n", flags.Arg(0))
		flags.Usage()
		return exitInvalid
	}

	logger := internal.GetLoggerWithLevel(*logLevel).Output(stderr)

	opts := corpus.Options{
		OutDir:     *out,
		Files:      *files,
		MiBPerFile: *mib,
		Vocab:      *vocab,
		Skew:       *skew,
		Seed:       *seed,
		MinWordLen: *minLen,
		MaxWordLen: *maxLen,
		Workers:    *workers,
	}

	gen, err := corpus.NewGenerator(fs, opts)
	if err != nil {
		logger.Error().Err(err).Msg("Invalid options")
		return exitInvalid
	}

	logger.Info().
		Str("out", opts.OutDir).
		Uint64("seed", gen.Seed()).
		Int("files", opts.Files).
		Str("size", humanize.IBytes(uint64(opts.TargetBytes()))).
		Int("vocab", opts.Vocab).
		Float64("skew", opts.Skew).
		Msg("Generating corpus")

	var bar *progressbar.ProgressBar
	if *progress {
		bar = progressbar.NewOptions(opts.Files,
			progressbar.OptionSetWriter(stderr),
			progressbar.OptionSetDescription("writing"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	written, err := gen.Generate(ctx, func(info corpus.FileInfo) {
		if bar != nil {
			_ = bar.Add(1)
			return
		}
		logger.Info().
			Str("file", filepath.Base(info.Path)).
			Str("size", humanize.IBytes(uint64(info.Bytes))).
			Msg("Wrote")
	})
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		logger.Error().Err(err).Msg("Corpus generation failed")
		return exitFailed
	}

	var total int64
	for _, info := range written {
		total += info.Bytes
	}
	logger.Info().
		Int("files", len(written)).
		Str("total", humanize.IBytes(uint64(total))).
		Msg("Done")
	return exitOK
}
