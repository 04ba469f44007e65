// Package server serves the EPUB files of a directory as converted HTML.
package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yuanying/epub2html/internal/converter"
	"github.com/yuanying/epub2html/internal/epub"
)

// errNoCover reports a book without a cover image.
var errNoCover = errors.New("book has no cover")

// Config configures a Server.
type Config struct {
	// Dir holds the served .epub files.
	Dir string
	// CacheMB bounds the memory used by loaded and converted books. 0
	// disables caching.
	CacheMB int
	// Rate is the number of conversions started per second.
	Rate float64
	// CoverWidth is the default cover thumbnail width; 0 serves the
	// original image.
	CoverWidth int
	Logger     *zap.Logger
}

// Server is the HTTP front-end.
type Server struct {
	cfg     Config
	log     *zap.Logger
	app     *fiber.App
	cache   *ristretto.Cache
	limiter *rate.Limiter
}

// BookInfo is one entry of the book listing.
type BookInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// PageList is the response of the pages endpoint.
type PageList struct {
	Count int      `json:"count"`
	Pages []string `json:"pages"`
}

// New creates a server for cfg.Dir.
func New(cfg Config) (*Server, error) {
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if cfg.Rate <= 0 {
		return nil, fmt.Errorf("conversion rate must be > 0, got %v", cfg.Rate)
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open book directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", cfg.Dir)
	}

	s := &Server{
		cfg:     cfg,
		log:     cfg.Logger,
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), 1),
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}

	if cfg.CacheMB > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: 1e4,
			MaxCost:     int64(cfg.CacheMB) << 20,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create cache: %w", err)
		}
		s.cache = cache
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.app.Use(s.logRequest)
	s.app.Get("/", s.listBooks)
	s.app.Get("/books/:name", s.getArchive)
	s.app.Get("/books/:name/html", s.getHTML)
	s.app.Get("/books/:name/pages", s.getPages)
	s.app.Get("/books/:name/pages/:n", s.getPage)
	s.app.Get("/books/:name/toc", s.getTOC)
	s.app.Get("/books/:name/cover", s.getCover)
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.log.Info("listening", zap.String("addr", addr), zap.String("dir", s.cfg.Dir))
	return s.app.Listen(addr)
}

// Shutdown stops the listener and releases the cache.
func (s *Server) Shutdown() error {
	err := s.app.Shutdown()
	if s.cache != nil {
		s.cache.Close()
	}
	return err
}

func (s *Server) logRequest(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if err != nil {
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}
	s.log.Info("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("latency", time.Since(start)))
	return nil
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var ferr *fiber.Error
	switch {
	case errors.As(err, &ferr):
		code = ferr.Code
	case errors.Is(err, fs.ErrNotExist),
		errors.Is(err, epub.ErrNotFound),
		errors.Is(err, epub.ErrMissingTOC),
		errors.Is(err, errNoCover):
		code = fiber.StatusNotFound
	}

	if code >= fiber.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(code).SendString(err.Error())
}

func (s *Server) listBooks(c *fiber.Ctx) error {
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return fmt.Errorf("failed to list books: %w", err)
	}

	books := []BookInfo{}
	for _, e := range entries {
		if e.IsDir() || !isEPUBName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		books = append(books, BookInfo{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Name < books[j].Name })
	return c.JSON(books)
}

func (s *Server) getArchive(c *fiber.Ctx) error {
	path, _, err := s.bookFile(c.Params("name"))
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/epub+zip")
	return c.Send(data)
}

func (s *Server) getHTML(c *fiber.Ctx) error {
	conv, err := s.converted(c)
	if err != nil {
		return err
	}
	c.Type("html", "utf-8")
	return c.SendString(conv.html)
}

func (s *Server) getPages(c *fiber.Ctx) error {
	conv, err := s.converted(c)
	if err != nil {
		return err
	}
	return c.JSON(PageList{Count: len(conv.pages), Pages: conv.pages})
}

func (s *Server) getPage(c *fiber.Ctx) error {
	n, err := c.ParamsInt("n")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "page number must be an integer")
	}
	conv, err := s.converted(c)
	if err != nil {
		return err
	}
	if n < 1 || n > len(conv.pages) {
		return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("page %d out of range 1-%d", n, len(conv.pages)))
	}
	c.Type("html", "utf-8")
	return c.SendString(conv.pages[n-1])
}

func (s *Server) getTOC(c *fiber.Ctx) error {
	b, err := s.book(c.Params("name"))
	if err != nil {
		return err
	}
	toc, err := b.TOC()
	if err != nil {
		return err
	}
	return c.JSON(converter.TOCEntries(toc))
}

func (s *Server) getCover(c *fiber.Ctx) error {
	width := c.QueryInt("width", s.cfg.CoverWidth)
	if width < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "width must be >= 0")
	}

	b, err := s.book(c.Params("name"))
	if err != nil {
		return err
	}
	cover := b.Cover()
	if cover == nil {
		return errNoCover
	}
	data, err := cover.Data()
	if err != nil {
		return err
	}

	thumb, err := converter.NewThumbnailer(width).Resize(cover.MediaType, data)
	if err != nil {
		return err
	}
	if thumb.Warning != "" {
		s.log.Warn("cover served unresized", zap.String("book", c.Params("name")), zap.String("reason", thumb.Warning))
	}
	c.Set(fiber.HeaderContentType, thumb.MediaType)
	return c.Send(thumb.Data)
}

// bookFile resolves name to a file in the book directory. Names carrying a
// path separator or without the .epub extension are not served.
func (s *Server) bookFile(name string) (string, os.FileInfo, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || !isEPUBName(name) {
		return "", nil, fiber.NewError(fiber.StatusNotFound, "no such book")
	}
	path := filepath.Join(s.cfg.Dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return "", nil, err
	}
	if info.IsDir() {
		return "", nil, fiber.NewError(fiber.StatusNotFound, "no such book")
	}
	return path, info, nil
}

func isEPUBName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".epub")
}
