package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yuanying/epub2html/internal/config"
	"github.com/yuanying/epub2html/internal/converter"
	"github.com/yuanying/epub2html/internal/epub"
)

type cliOptions struct {
	InputPath  string
	OutputPath string
	PagesDir   string
	Progress   bool
	NoTOC      bool
	Config     config.Config
	Logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "epub2html [flags] <book.epub>",
		Short: "Convert EPUB books to a single HTML document",
		Long: `epub2html flattens the chapters of an EPUB book into one HTML document
with every image inlined as a data URI.

The document is written to standard output unless --output or --pages-dir
is given.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd, args)
			if err != nil {
				return err
			}
			defer func() { _ = opts.Logger.Sync() }()
			return runConvert(cmd, opts)
		},
	}

	pf := cmd.PersistentFlags()
	pf.String("config", "", "Config file (default: $HOME/.epub2html.yaml)")
	pf.String("log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	pf.String("log-format", config.DefaultLogFormat, "Log format: text, json")
	pf.BoolP("verbose", "v", false, "Shortcut for --log-level debug")

	f := cmd.Flags()
	f.StringP("output", "o", "", "Output file path (default: standard output)")
	f.String("pages-dir", "", "Write the book as page-0001.html, page-0002.html... into this directory")
	f.Bool("progress", false, "Report conversion progress on standard error")
	f.Bool("no-toc", false, "Do not render the table of contents at the top of the document")

	cmd.AddCommand(newTOCCmd(), newCoverCmd(), newInfoCmd(), newServeCmd())
	return cmd
}

// loadConfig resolves the configuration for cmd from its flags, the
// environment and the config file.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	v, err := config.New(file)
	if err != nil {
		return config.Config{}, err
	}
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, err
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// loggerFor builds the logger configured for cmd, writing to its stderr.
func loggerFor(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, buildLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat), nil
}

func readCLIOptions(cmd *cobra.Command, args []string) (cliOptions, error) {
	cfg, logger, err := loggerFor(cmd)
	if err != nil {
		return cliOptions{}, err
	}

	f := cmd.Flags()
	opts := cliOptions{Config: cfg, Logger: logger}
	if len(args) > 0 {
		opts.InputPath = args[0]
	}
	opts.OutputPath, _ = f.GetString("output")
	opts.PagesDir, _ = f.GetString("pages-dir")
	opts.Progress, _ = f.GetBool("progress")
	opts.NoTOC, _ = f.GetBool("no-toc")

	if opts.OutputPath != "" && opts.PagesDir != "" {
		return cliOptions{}, fmt.Errorf("--output and --pages-dir are mutually exclusive")
	}
	return opts, nil
}

func buildLogger(w io.Writer, level, format string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	var enc zapcore.Encoder
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	}
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), lvl))
}

func runConvert(cmd *cobra.Command, opts cliOptions) error {
	log := opts.Logger
	log.Info("converting", zap.String("input", opts.InputPath))

	b, err := epub.Open(opts.InputPath, epub.WithLogger(log))
	if err != nil {
		return err
	}

	pager := converter.NewPager(b, converter.WithLogger(log))
	if opts.Progress {
		stderr := cmd.ErrOrStderr()
		pager.OnProgress(func(f float64) {
			fmt.Fprintf(stderr, "progress: %3.0f%%\n", f*100)
		})
	}

	if opts.PagesDir != "" {
		return writePages(pager, opts.PagesDir, log)
	}

	doc, err := pager.Document(!opts.NoTOC)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.OutputPath != "" {
		file, err := os.Create(opts.OutputPath)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer file.Close()
		out = file
	}
	n, err := doc.WriteTo(out)
	if err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	log.Info("done", zap.String("title", doc.Title), zap.Int64("bytes", n))
	return nil
}

func writePages(pager *converter.Pager, dir string, log *zap.Logger) error {
	pages, err := pager.Pages()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create pages directory: %w", err)
	}
	for i, page := range pages {
		name := filepath.Join(dir, pageFileName(i+1))
		if err := os.WriteFile(name, []byte(page), 0o644); err != nil {
			return fmt.Errorf("failed to write page %d: %w", i+1, err)
		}
	}
	log.Info("done", zap.String("dir", dir), zap.Int("pages", len(pages)))
	return nil
}

func pageFileName(n int) string {
	return fmt.Sprintf("page-%04d.html", n)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "epub2html: %v\n", err)
		os.Exit(1)
	}
}
