// Package ingest runs the statement import pipeline: upload checks, text
// extraction, parsing, learned overrides, template matching and
// deduplication against the stored ledger. Saving goes through the
// reconciler.
package ingest

import (
	"context"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/extracto-dev/extracto/internal/apperr"
	"github.com/extracto-dev/extracto/internal/classify"
	"github.com/extracto-dev/extracto/internal/dedup"
	"github.com/extracto-dev/extracto/internal/importer"
	"github.com/extracto-dev/extracto/internal/matcher"
	"github.com/extracto-dev/extracto/internal/model"
	"github.com/extracto-dev/extracto/internal/reconcile"
	"github.com/extracto-dev/extracto/internal/store"
)

// DefaultMaxUploadBytes caps uploads when Options.MaxUploadBytes is zero.
const DefaultMaxUploadBytes = 10 << 20

// PDFContentType is the only accepted upload type.
const PDFContentType = "application/pdf"

// Store is the read side the pipeline needs plus learning-rule writes.
type Store interface {
	FindTransactions(ctx context.Context, f store.TxFilter) ([]model.LedgerTransaction, error)
	FindTemplates(ctx context.Context, f store.TemplateFilter) ([]model.RecurringTemplate, error)
	FindLearningRules(ctx context.Context, userID string) ([]model.LearningRule, error)
	UpsertLearningRules(ctx context.Context, rules []model.LearningRule) error
}

// Saver persists reviewed rows.
type Saver interface {
	Save(ctx context.Context, userID string, rows []reconcile.Row) (reconcile.Summary, error)
}

// Extractor turns PDF bytes into statement text.
type Extractor func(data []byte) (string, error)

// Options configures a Service. Zero values take defaults.
type Options struct {
	MaxUploadBytes int64
	Classifier     *classify.Classifier
	Parsers        *importer.Registry
}

// Upload is a file handed to Parse.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Result is a parsed statement ready for review.
type Result struct {
	Transactions []matcher.Matched
	Duplicates   []matcher.Matched

	// Ambiguous holds lines with a single unsigned amount, for manual entry.
	Ambiguous []string
	Skipped   int
}

// Service runs imports for one store.
type Service struct {
	store      Store
	saver      Saver
	extract    Extractor
	classifier *classify.Classifier
	parsers    *importer.Registry
	maxBytes   int64
	logger     *log.Logger
}

// NewService creates an ingest Service.
func NewService(s Store, saver Saver, extract Extractor, logger *log.Logger, opts Options) *Service {
	svc := &Service{
		store:      s,
		saver:      saver,
		extract:    extract,
		classifier: opts.Classifier,
		parsers:    opts.Parsers,
		maxBytes:   opts.MaxUploadBytes,
		logger:     logger,
	}
	if svc.classifier == nil {
		svc.classifier = classify.Default()
	}
	if svc.parsers == nil {
		svc.parsers = importer.NewRegistry()
		svc.parsers.Register(&importer.TextParser{Classifier: svc.classifier})
		svc.parsers.Register(&importer.CSVParser{Classifier: svc.classifier})
	}
	if svc.maxBytes <= 0 {
		svc.maxBytes = DefaultMaxUploadBytes
	}
	return svc
}

// Parse validates and extracts an uploaded PDF statement, then runs the
// pipeline over its text.
func (s *Service) Parse(ctx context.Context, userID string, up Upload) (Result, error) {
	if err := s.checkUpload(up); err != nil {
		return Result{}, err
	}
	text, err := s.extract(up.Data)
	if err != nil {
		s.logger.Error("extraction failed", "user", userID, "file", up.Name, "err", err)
		return Result{}, apperr.NewUserError("could not process the PDF", err)
	}
	s.logger.Debug("extracted statement", "file", up.Name, "bytes", len(up.Data), "chars", len(text))
	return s.ParseText(ctx, userID, text)
}

func (s *Service) checkUpload(up Upload) error {
	if len(up.Data) == 0 {
		return apperr.NewUserError("no file was uploaded", apperr.ErrInvalidInput)
	}
	mt, _, err := mime.ParseMediaType(up.ContentType)
	if err != nil || !strings.EqualFold(mt, PDFContentType) {
		return apperr.NewUserError("the file must be a PDF",
			fmt.Errorf("%w: content type %q", apperr.ErrInvalidInput, up.ContentType))
	}
	if int64(len(up.Data)) > s.maxBytes {
		return apperr.NewUserError("the file is too large",
			fmt.Errorf("%w: %d bytes, limit %d", apperr.ErrInvalidInput, len(up.Data), s.maxBytes))
	}
	return nil
}

// ParseText runs the pipeline over already-extracted statement text.
func (s *Service) ParseText(ctx context.Context, userID, text string) (Result, error) {
	return s.ParseFormat(ctx, userID, "text", strings.NewReader(text))
}

// ParseFormat parses r with the registered parser for format and runs the
// rest of the pipeline.
func (s *Service) ParseFormat(ctx context.Context, userID, format string, r io.Reader) (Result, error) {
	if userID == "" {
		return Result{}, apperr.NewUserError("missing user", apperr.ErrInvalidInput)
	}
	p := s.parsers.Get(format)
	if p == nil {
		return Result{}, apperr.NewUserError("unsupported statement format",
			fmt.Errorf("%w: format %q", apperr.ErrInvalidInput, format))
	}
	batch, err := p.Parse(r)
	if err != nil {
		return Result{}, apperr.NewUserError("could not read the statement", err)
	}
	return s.process(ctx, userID, batch)
}

// pipelineContext is what the pipeline reads from the store.
type pipelineContext struct {
	existing  []model.LedgerTransaction
	templates []model.RecurringTemplate
	rules     []model.LearningRule
}

func (s *Service) process(ctx context.Context, userID string, batch importer.Batch) (Result, error) {
	res := Result{Ambiguous: batch.Ambiguous, Skipped: batch.Skipped}
	if len(batch.Transactions) == 0 {
		s.logger.Info("statement has no transactions", "user", userID, "ambiguous", len(batch.Ambiguous), "skipped", batch.Skipped)
		return res, nil
	}

	from, to := span(batch.Transactions)
	pc, err := s.loadContext(ctx, userID, from, to)
	if err != nil {
		return Result{}, apperr.NewUserError("could not load existing transactions", err)
	}

	learned := classify.NewLearned(pc.rules)
	txs := make([]model.ParsedTransaction, len(batch.Transactions))
	for i, tx := range batch.Transactions {
		txs[i] = learned.Apply(tx)
	}
	parts := dedup.Partition(matcher.Apply(txs, pc.templates), pc.existing)
	res.Transactions = parts.ToImport
	res.Duplicates = parts.Duplicates

	s.logger.Info("statement parsed",
		"user", userID,
		"from", from.Format(time.DateOnly),
		"to", to.Format(time.DateOnly),
		"new", len(res.Transactions),
		"duplicates", len(res.Duplicates),
		"ambiguous", len(res.Ambiguous),
		"skipped", res.Skipped)
	return res, nil
}

// loadContext reads stored rows for the statement's months, active
// templates and learning rules concurrently.
func (s *Service) loadContext(ctx context.Context, userID string, from, to time.Time) (pipelineContext, error) {
	var pc pipelineContext
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.store.FindTransactions(gctx, store.TxFilter{UserID: userID, From: &from, To: &to})
		if err != nil {
			return fmt.Errorf("loading transactions: %w", err)
		}
		pc.existing = rows
		return nil
	})
	g.Go(func() error {
		tpls, err := s.store.FindTemplates(gctx, store.TemplateFilter{UserID: userID, ActiveOnly: true})
		if err != nil {
			return fmt.Errorf("loading templates: %w", err)
		}
		pc.templates = tpls
		return nil
	})
	g.Go(func() error {
		rules, err := s.store.FindLearningRules(gctx, userID)
		if err != nil {
			return fmt.Errorf("loading learning rules: %w", err)
		}
		pc.rules = rules
		return nil
	})
	if err := g.Wait(); err != nil {
		return pipelineContext{}, err
	}
	return pc, nil
}

// span returns the first and last day of the months covered by txs.
func span(txs []model.ParsedTransaction) (time.Time, time.Time) {
	lo, hi := txs[0].Date, txs[0].Date
	for _, tx := range txs[1:] {
		if tx.Date.Before(lo) {
			lo = tx.Date
		}
		if tx.Date.After(hi) {
			hi = tx.Date
		}
	}
	return model.MonthStart(lo), model.MonthEnd(hi)
}
