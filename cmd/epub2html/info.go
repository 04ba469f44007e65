package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/yuanying/epub2html/internal/epub"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "info <book.epub>",
		Short:         "Print the metadata, manifest and reading order of a book",
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
			return printInfo(cmd.OutOrStdout(), b)
		},
	}
}

func printInfo(w io.Writer, b *epub.Book) error {
	pw := &printer{w: w}
	pkg := b.Package()
	md := pkg.Metadata

	pw.printf("Package:     %s\n", pkg.Path)
	pw.printf("Title:       %s\n", md.Title)
	pw.printf("Language:    %s\n", md.Language)
	pw.printf("Identifier:  %s\n", md.Identifier)
	for i, c := range md.Creators {
		role := c.Role
		if role == "" {
			role = "unknown"
		}
		pw.printf("Creator %d:   %s (role: %s)\n", i+1, c.Name, role)
	}
	if md.Publisher != "" {
		pw.printf("Publisher:   %s\n", md.Publisher)
	}
	if md.Date != "" {
		pw.printf("Date:        %s\n", md.Date)
	}
	if cover := b.Cover(); cover != nil {
		pw.printf("Cover:       %s\n", cover.Path)
	}

	counts := make(map[string]int)
	for _, item := range pkg.Manifest {
		counts[item.MediaType]++
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)

	pw.printf("\nManifest: %d items\n", len(pkg.Manifest))
	for _, t := range types {
		pw.printf("  %s: %d\n", t, counts[t])
	}

	pw.printf("\nReading order:\n")
	for i, ch := range b.Chapters() {
		pw.printf("  %d. %s\n", i+1, ch.Path())
	}
	return pw.err
}

// printer keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
