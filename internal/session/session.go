// Package session owns the current document and its persisted state.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quotemaker-dev/quotemaker/internal/config"
	"github.com/quotemaker-dev/quotemaker/internal/document"
	"github.com/quotemaker-dev/quotemaker/internal/id"
	"github.com/quotemaker-dev/quotemaker/internal/importer"
	"github.com/quotemaker-dev/quotemaker/internal/model"
	"github.com/quotemaker-dev/quotemaker/internal/sequence"
	"github.com/quotemaker-dev/quotemaker/internal/store"
)

// Session holds the current document. Every change is persisted before it
// becomes visible.
type Session struct {
	store    *store.Store
	tracker  *sequence.Tracker
	importer *importer.Registry
	defaults config.DefaultsConfig
	logger   *zap.Logger
	now      func() time.Time
	doc      model.Document
}

// Open opens the state store named by cfg and loads the current document.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Session, error) {
	st, err := store.Open(cfg.StorePath(), logger)
	if err != nil {
		return nil, err
	}
	s, err := New(ctx, st, cfg.Defaults, logger, time.Now)
	if err != nil {
		st.Close()
		return nil, err
	}
	return s, nil
}

// New loads the current document from st, creating the first-run document
// when none is saved.
func New(ctx context.Context, st *store.Store, defaults config.DefaultsConfig, logger *zap.Logger, now func() time.Time) (*Session, error) {
	tracker, err := sequence.Open(ctx, st, now)
	if err != nil {
		return nil, err
	}
	s := &Session{
		store:    st,
		tracker:  tracker,
		importer: importer.DefaultRegistry(),
		defaults: defaults,
		logger:   logger,
		now:      now,
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the state store.
func (s *Session) Close() error {
	return s.store.Close()
}

// Document returns a copy of the current document.
func (s *Session) Document() model.Document {
	return s.doc.Clone()
}

// Sequence returns the sequence number of the current document, taken from
// its estimate number when that parses.
func (s *Session) Sequence() int {
	if _, seq, err := id.ParseEstimateNumber(s.doc.EstimateNumber); err == nil {
		return seq
	}
	return s.tracker.Current()
}

func (s *Session) load(ctx context.Context) error {
	doc, ok, err := s.store.LoadDocument(ctx)
	switch {
	case errors.Is(err, store.ErrCorruptDocument):
		s.logger.Warn("Discarding unreadable saved document", zap.Error(err))
	case err != nil:
		return fmt.Errorf("loading saved document: %w", err)
	}
	if ok {
		s.doc = document.Normalize(doc)
		return nil
	}

	// A missing document is a new document: it takes a fresh number.
	firstRun := !s.tracker.Active()
	if _, err := s.tracker.Advance(ctx); err != nil {
		return err
	}
	doc, err = s.fresh(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("Starting new document",
		zap.String("estimate_number", doc.EstimateNumber),
		zap.Bool("first_run", firstRun))
	return s.replace(ctx, doc)
}

// fresh builds a default document carrying the tracker's current number,
// with the configured defaults and the preferred template applied.
func (s *Session) fresh(ctx context.Context) (model.Document, error) {
	doc := document.Default(s.now(), s.tracker.CurrentEstimateNumber())

	d := s.defaults
	if t := model.DesignTemplate(d.Template); t.Valid() {
		doc.DesignTemplate = t
	}
	if f := model.FontFamily(d.FontFamily); f.Valid() {
		doc.FontFamily = f
	}
	doc.TaxRate = d.TaxRate
	doc.DiscountRate = d.DiscountRate
	if d.Terms != "" {
		doc.Terms = d.Terms
	}
	if d.Sender.Name != "" {
		doc.Sender = d.Sender
	}
	if d.PaymentInfo != (model.PaymentInfo{}) {
		doc.PaymentInfo = d.PaymentInfo
	}

	preferred, ok, err := s.store.PreferredTemplate(ctx)
	if err != nil {
		return model.Document{}, err
	}
	if ok {
		doc.DesignTemplate = preferred
	}
	return document.Normalize(doc), nil
}

func (s *Session) replace(ctx context.Context, doc model.Document) error {
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	s.doc = doc
	return nil
}

// Update applies fn to a copy of the current document and persists the
// result. On error the current document is unchanged.
func (s *Session) Update(ctx context.Context, fn func(model.Document) (model.Document, error)) (model.Document, error) {
	doc, err := fn(s.doc.Clone())
	if err != nil {
		return s.Document(), err
	}
	if err := s.replace(ctx, doc); err != nil {
		return s.Document(), err
	}
	return s.Document(), nil
}

// NewDocument advances the sequence and replaces the current document with
// a fresh one.
func (s *Session) NewDocument(ctx context.Context) (model.Document, error) {
	if _, err := s.tracker.Advance(ctx); err != nil {
		return s.Document(), err
	}
	doc, err := s.fresh(ctx)
	if err != nil {
		return s.Document(), err
	}
	if err := s.replace(ctx, doc); err != nil {
		return s.Document(), err
	}
	s.logger.Info("Started new document", zap.String("estimate_number", doc.EstimateNumber))
	return s.Document(), nil
}

// SetTemplate changes the design template and remembers it for new documents.
func (s *Session) SetTemplate(ctx context.Context, t model.DesignTemplate) (model.Document, error) {
	if !t.Valid() {
		return s.Document(), fmt.Errorf("design template must be 1-4, got %d", t)
	}
	doc, err := s.Update(ctx, func(d model.Document) (model.Document, error) {
		d.DesignTemplate = t
		return d, nil
	})
	if err != nil {
		return doc, err
	}
	if err := s.store.SetPreferredTemplate(ctx, t); err != nil {
		return doc, fmt.Errorf("saving template preference: %w", err)
	}
	return doc, nil
}

// Import replaces the current document with the one decoded from data. The
// format is chosen by fileName's extension. On error nothing changes.
func (s *Session) Import(ctx context.Context, fileName string, data []byte) (model.Document, error) {
	doc, err := s.importer.Import(fileName, data)
	if err != nil {
		return s.Document(), err
	}
	if err := s.replace(ctx, doc); err != nil {
		return s.Document(), err
	}
	s.logger.Info("Document imported",
		zap.String("file", fileName),
		zap.String("estimate_number", doc.EstimateNumber))
	return s.Document(), nil
}

// ImportFile is Import reading from path.
func (s *Session) ImportFile(ctx context.Context, path string) (model.Document, error) {
	doc, err := s.importer.ImportFile(path)
	if err != nil {
		return s.Document(), err
	}
	if err := s.replace(ctx, doc); err != nil {
		return s.Document(), err
	}
	s.logger.Info("Document imported",
		zap.String("file", path),
		zap.String("estimate_number", doc.EstimateNumber))
	return s.Document(), nil
}
