package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yuanying/epub2html/internal/config"
	"github.com/yuanying/epub2html/internal/converter"
	"github.com/yuanying/epub2html/internal/epub"
	"github.com/yuanying/epub2html/internal/server"
)

func newTOCCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "toc <book.epub>",
		Short:         "Print the table of contents of a book",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := loggerFor(cmd)
			if err != nil {
				return err
			}
			b, err := epub.Open(args[0], epub.WithLogger(log))
			if err != nil {
				return err
			}
			toc, err := b.TOC()
			if err != nil {
				return err
			}

			entries := converter.TOCEntries(toc)
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			return printTOC(cmd.OutOrStdout(), entries, 0)
		},
	}
	cmd.Flags().Bool("json", false, "Print the table of contents as JSON")
	return cmd
}

func printTOC(w io.Writer, entries []converter.TOCEntry, depth int) error {
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s%s\t%s\n", strings.Repeat("  ", depth), e.Title, e.Target); err != nil {
			return err
		}
		if err := printTOC(w, e.Children, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func newCoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cover <book.epub>",
		Short:         "Extract the cover image of a book",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loggerFor(cmd)
			if err != nil {
				return err
			}
			b, err := epub.Open(args[0], epub.WithLogger(log))
			if err != nil {
				return err
			}
			cover := b.Cover()
			if cover == nil {
				return errors.New("book has no cover")
			}
			data, err := cover.Data()
			if err != nil {
				return err
			}

			thumb, err := converter.NewThumbnailer(cfg.Cover.Width).Resize(cover.MediaType, data)
			if err != nil {
				return err
			}
			if thumb.Warning != "" {
				log.Warn("cover written unresized", zap.String("reason", thumb.Warning))
			}

			out, _ := cmd.Flags().GetString("output")
			if out == "" {
				out = defaultCoverPath(args[0], coverExt(cover, thumb.MediaType))
			}
			if err := os.WriteFile(out, thumb.Data, 0o644); err != nil {
				return fmt.Errorf("failed to write cover: %w", err)
			}
			log.Info("wrote cover", zap.String("path", out), zap.Int("width", thumb.Width), zap.Int("height", thumb.Height))
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output file path (default: <book>-cover.<ext>)")
	cmd.Flags().Int("width", config.DefaultCoverWidth, "Resize the cover to this width (0 keeps the original)")
	return cmd
}

func defaultCoverPath(inputPath, ext string) string {
	return strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + "-cover" + ext
}

// coverExt picks the file extension for a cover written as mediaType.
func coverExt(cover *epub.Image, mediaType string) string {
	switch {
	case mediaType == cover.MediaType && path.Ext(cover.Path) != "":
		return path.Ext(cover.Path)
	case mediaType == "image/jpeg":
		return ".jpg"
	case mediaType == "image/png":
		return ".png"
	case mediaType == "image/gif":
		return ".gif"
	}
	return ".img"
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "serve",
		Short:         "Serve a directory of EPUB books over HTTP",
		Example:       "epub2html serve --dir ./books --addr :8080",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loggerFor(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			s, err := server.New(server.Config{
				Dir:        cfg.Serve.Dir,
				CacheMB:    cfg.Serve.CacheMB,
				Rate:       cfg.Serve.Rate,
				CoverWidth: cfg.Cover.Width,
				Logger:     log,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				if err := s.Shutdown(); err != nil {
					log.Warn("shutdown", zap.Error(err))
				}
			}()

			return s.Listen(cfg.Serve.Addr)
		},
	}

	f := cmd.Flags()
	f.String("addr", config.DefaultAddr, "Listen address")
	f.String("dir", config.DefaultDir, "Directory holding the .epub books")
	f.Int("cache-mb", config.DefaultCacheMB, "Memory for cached books in MiB (0 disables the cache)")
	f.Float64("rate", config.DefaultRate, "Conversions started per second")
	f.Int("width", config.DefaultCoverWidth, "Default cover width (0 keeps the original)")
	return cmd
}
