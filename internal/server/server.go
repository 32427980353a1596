// Package server exposes the import pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"

	"github.com/extracto-dev/extracto/internal/apperr"
	"github.com/extracto-dev/extracto/internal/buildinfo"
	"github.com/extracto-dev/extracto/internal/id"
	"github.com/extracto-dev/extracto/internal/importlog"
	"github.com/extracto-dev/extracto/internal/ingest"
	"github.com/extracto-dev/extracto/internal/model"
	"github.com/extracto-dev/extracto/internal/reconcile"
)

// UserHeader carries the ledger owner of a request.
const UserHeader = "X-User-ID"

// Importer parses and saves statements.
type Importer interface {
	Parse(ctx context.Context, userID string, up ingest.Upload) (ingest.Result, error)
	Save(ctx context.Context, userID string, rows []reconcile.Row) (reconcile.Summary, error)
}

// Excluder skips a recurring template for one month.
type Excluder interface {
	Exclude(ctx context.Context, userID, templateID string, month time.Time) (model.Exclusion, error)
}

// Editor changes and removes stored transactions.
type Editor interface {
	Update(ctx context.Context, userID, txID string, row reconcile.Row) (reconcile.Summary, error)
	Delete(ctx context.Context, userID, txID string) error
}

// Options configures a Server.
type Options struct {
	// DefaultUser is used when a request has no X-User-ID header.
	DefaultUser string

	// BodyLimit caps request bodies in bytes. Zero keeps fiber's default.
	BodyLimit int

	// DataDir receives the import log. Empty disables it.
	DataDir string
}

// Server handles HTTP requests for statement imports.
type Server struct {
	app      *fiber.App
	importer Importer
	ledger   Excluder
	editor   Editor
	logger   *log.Logger
	opts     Options
}

// New creates a Server with its routes registered.
func New(imp Importer, ledger Excluder, editor Editor, logger *log.Logger, opts Options) *Server {
	s := &Server{importer: imp, ledger: ledger, editor: editor, logger: logger, opts: opts}
	s.app = fiber.New(fiber.Config{
		AppName:               "extracto",
		BodyLimit:             opts.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleFiberError,
	})
	s.setupRoutes()
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) setupRoutes() {
	s.app.Use(s.withLogging)

	api := s.app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Post("/import/parse", s.handleParse)
	api.Post("/import/save", s.handleSave)
	api.Put("/transactions/:id", s.handleUpdate)
	api.Delete("/transactions/:id", s.handleDelete)
	api.Post("/templates/:id/exclusions", s.handleExclude)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (s *Server) handleParse(c *fiber.Ctx) error {
	user := s.user(c)
	fh, err := c.FormFile("file")
	if err != nil {
		return s.respondError(c, fiber.StatusBadRequest, "no file was uploaded", err)
	}
	f, err := fh.Open()
	if err != nil {
		return s.respondError(c, fiber.StatusBadRequest, "could not read the upload", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return s.respondError(c, fiber.StatusBadRequest, "could not read the upload", err)
	}

	res, err := s.importer.Parse(c.UserContext(), user, ingest.Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Data:        data,
	})
	if err != nil {
		return s.respondAppError(c, err)
	}

	s.audit(importlog.Entry{
		UserID:     user,
		Action:     importlog.ActionParse,
		Source:     fh.Filename,
		Imported:   len(res.Transactions),
		Duplicates: len(res.Duplicates),
	})
	return c.JSON(newParseResponse(res))
}

func (s *Server) handleSave(c *fiber.Ctx) error {
	user := s.user(c)
	var req saveRequest
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, fiber.StatusBadRequest, "invalid request body", err)
	}
	if len(req.Transactions) == 0 {
		return s.respondError(c, fiber.StatusBadRequest, "no transactions to save", nil)
	}
	rows, err := req.rows()
	if err != nil {
		return s.respondAppError(c, err)
	}

	sum, err := s.importer.Save(c.UserContext(), user, rows)
	if err != nil {
		return s.respondAppError(c, err)
	}

	s.audit(importlog.Entry{
		UserID:   user,
		Action:   importlog.ActionSave,
		Source:   "api",
		Imported: sum.Inserted,
	})
	return c.JSON(fiber.Map{
		"success":           true,
		"inserted":          sum.Inserted,
		"templates_created": sum.TemplatesCreated,
		"templates_updated": sum.TemplatesUpdated,
	})
}

func (s *Server) handleUpdate(c *fiber.Ctx) error {
	var req rowJSON
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, fiber.StatusBadRequest, "invalid request body", err)
	}
	row, err := req.row("")
	if err != nil {
		return s.respondAppError(c, err)
	}

	sum, err := s.editor.Update(c.UserContext(), s.user(c), c.Params("id"), row)
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":           true,
		"templates_created": sum.TemplatesCreated,
		"templates_updated": sum.TemplatesUpdated,
		"relinked":          sum.Relinked,
	})
}

func (s *Server) handleDelete(c *fiber.Ctx) error {
	if err := s.editor.Delete(c.UserContext(), s.user(c), c.Params("id")); err != nil {
		return s.respondAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleExclude(c *fiber.Ctx) error {
	var req excludeRequest
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, fiber.StatusBadRequest, "invalid request body", err)
	}
	month, err := id.ParseMonth(req.Month)
	if err != nil {
		return s.respondError(c, fiber.StatusBadRequest, "month must be YYYY-MM", err)
	}

	e, err := s.ledger.Exclude(c.UserContext(), s.user(c), c.Params("id"), month)
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(exclusionJSON{
		ID:         e.ID,
		TemplateID: e.TemplateID,
		Month:      id.FormatMonth(e.Month),
	})
}

func (s *Server) user(c *fiber.Ctx) string {
	if u := c.Get(UserHeader); u != "" {
		return u
	}
	return s.opts.DefaultUser
}

func (s *Server) audit(e importlog.Entry) {
	if s.opts.DataDir == "" {
		return
	}
	e.Timestamp = time.Now()
	if err := importlog.Append(s.opts.DataDir, e); err != nil {
		s.logger.Warn("could not write import log", "err", err)
	}
}

// respondAppError maps a pipeline error to a status and its user message.
func (s *Server) respondAppError(c *fiber.Ctx, err error) error {
	status, fallback := fiber.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		status, fallback = fiber.StatusBadRequest, "invalid request"
	case errors.Is(err, apperr.ErrNotFound):
		status, fallback = fiber.StatusNotFound, "not found"
	case errors.Is(err, apperr.ErrExtraction), errors.Is(err, apperr.ErrParse):
		status, fallback = fiber.StatusUnprocessableEntity, "could not read the statement"
	}
	return s.respondError(c, status, apperr.Message(err, fallback), err)
}

// respondError logs the error and returns a minimal JSON error body.
func (s *Server) respondError(c *fiber.Ctx, status int, message string, err error) error {
	if err != nil {
		s.logger.Warn("request error", "status", status, "msg", message, "err", err, "method", c.Method(), "path", c.Path())
	} else {
		s.logger.Warn("request error", "status", status, "msg", message, "method", c.Method(), "path", c.Path())
	}
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func (s *Server) handleFiberError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "internal error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
		message = fe.Message
	}
	return s.respondError(c, status, message, err)
}

// withLogging logs each request and recovers panics.
func (s *Server) withLogging(c *fiber.Ctx) (err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("panic recovered", "panic", rec, "method", c.Method(), "path", c.Path())
			err = s.respondError(c, fiber.StatusInternalServerError, "internal error", fmt.Errorf("panic: %v", rec))
		}
	}()
	err = c.Next()
	s.logger.Debug("http request", "method", c.Method(), "path", c.Path(), "status", c.Response().StatusCode(), "took", time.Since(start))
	return err
}
