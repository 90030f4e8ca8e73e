package session

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quotemaker-dev/quotemaker/internal/codec"
	"github.com/quotemaker-dev/quotemaker/internal/config"
	"github.com/quotemaker-dev/quotemaker/internal/document"
	"github.com/quotemaker-dev/quotemaker/internal/importer"
	"github.com/quotemaker-dev/quotemaker/internal/model"
	"github.com/quotemaker-dev/quotemaker/internal/store"
)

func clock(year int) func() time.Time {
	return func() time.Time { return time.Date(year, 3, 1, 9, 0, 0, 0, time.Local) }
}

func openStore(t *testing.T) (*store.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	st, err := store.Open(path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st, path
}

func newSession(t *testing.T, st *store.Store, defaults config.DefaultsConfig) *Session {
	t.Helper()
	s, err := New(context.Background(), st, defaults, zap.NewNop(), clock(2025))
	require.NoError(t, err)
	return s
}

func TestFirstRun(t *testing.T) {
	ctx := context.Background()
	st, _ := openStore(t)

	s := newSession(t, st, config.Default().Defaults)
	doc := s.Document()
	assert.Equal(t, "INV-2025-001", doc.EstimateNumber)
	assert.Equal(t, 1, s.Sequence())
	assert.Equal(t, "2025-03-01", doc.IssueDate)

	state, err := st.LoadSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, &model.SequenceState{Year: 2025, LastSequence: 1}, state)

	saved, ok, err := st.LoadDocument(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, doc, saved)
}

func TestReopenKeepsDocumentAndSequence(t *testing.T) {
	ctx := context.Background()
	st, _ := openStore(t)

	s := newSession(t, st, config.Default().Defaults)
	_, err := s.Update(ctx, func(d model.Document) (model.Document, error) {
		return document.WithField(d, document.FieldTitle, "Kept")
	})
	require.NoError(t, err)

	again := newSession(t, st, config.Default().Defaults)
	assert.Equal(t, "Kept", again.Document().Title)
	assert.Equal(t, "INV-2025-001", again.Document().EstimateNumber)

	state, err := st.LoadSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, state.LastSequence, "loading does not advance")
}

func TestCorruptDocumentIsReplaced(t *testing.T) {
	ctx := context.Background()
	st, _ := openStore(t)
	require.NoError(t, st.SaveSequence(ctx, model.SequenceState{Year: 2025, LastSequence: 41}))
	require.NoError(t, st.Set(ctx, store.KeyDocument, "{not json"))

	s := newSession(t, st, config.Default().Defaults)
	assert.Equal(t, "INV-2025-042", s.Document().EstimateNumber)

	saved, ok, err := st.LoadDocument(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, s.Document(), saved)
}

func TestReadErrorKeepsSavedState(t *testing.T) {
	ctx := context.Background()
	st, path := openStore(t)

	// A NULL value cannot be scanned into a string, so reading fails without
	// the stored document being undecodable.
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	for _, stmt := range []string{
		`DROP TABLE kv`,
		`CREATE TABLE kv (key TEXT PRIMARY KEY, value TEXT, updated_at DATETIME)`,
		`INSERT INTO kv (key, value) VALUES ('invoice-sequence', '{"year":2025,"lastSeq":41}')`,
		`INSERT INTO kv (key, value) VALUES ('estimate-data', NULL)`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}

	_, err = New(ctx, st, config.Default().Defaults, zap.NewNop(), clock(2025))
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrCorruptDocument)

	state, err := st.LoadSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, &model.SequenceState{Year: 2025, LastSequence: 41}, state)

	var isNull bool
	require.NoError(t, db.QueryRow(`SELECT value IS NULL FROM kv WHERE key = 'estimate-data'`).Scan(&isNull))
	assert.True(t, isNull, "saved document must not be overwritten")
}

func TestOpenFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Data.Dir = filepath.Join(t.TempDir(), ".quotemaker")

	s, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.FileExists(t, cfg.StorePath())
}

func TestDefaultsApplied(t *testing.T) {
	st, _ := openStore(t)
	defaults := config.DefaultsConfig{
		Template:     int(model.TemplateModern),
		FontFamily:   string(model.FontSerif),
		TaxRate:      0.05,
		DiscountRate: 3,
		Terms:        "Net 30",
		Sender:       model.Party{Name: "Acme", Email: "hi@acme.test"},
		PaymentInfo:  model.PaymentInfo{BankName: "Acme Bank"},
	}

	doc := newSession(t, st, defaults).Document()
	assert.Equal(t, model.TemplateModern, doc.DesignTemplate)
	assert.Equal(t, model.FontSerif, doc.FontFamily)
	assert.Equal(t, 0.05, doc.TaxRate)
	assert.Equal(t, 3.0, doc.DiscountRate)
	assert.Equal(t, "Net 30", doc.Terms)
	assert.Equal(t, "Acme", doc.Sender.Name)
	assert.Equal(t, "Acme Bank", doc.PaymentInfo.BankName)
}

func TestZeroDefaults(t *testing.T) {
	st, _ := openStore(t)

	doc := newSession(t, st, config.DefaultsConfig{}).Document()
	assert.Equal(t, model.TemplateClassic, doc.DesignTemplate)
	assert.Equal(t, model.FontSystem, doc.FontFamily)
	assert.Zero(t, doc.TaxRate, "rates apply as configured")
	assert.Zero(t, doc.DiscountRate)
	assert.NotEmpty(t, doc.Sender.Name, "unnamed sender keeps the sample sender")
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	st, _ := openStore(t)
	s := newSession(t, st, config.Default().Defaults)

	before := s.Document()
	_, err := s.Update(ctx, func(d model.Document) (model.Document, error) {
		return document.WithField(d, "sender.fax", "x")
	})
	assert.ErrorIs(t, err, document.ErrUnknownField)
	assert.Equal(t, before, s.Document())

	doc, err := s.Update(ctx, func(d model.Document) (model.Document, error) {
		return document.WithItem(d, d.Items[0].ID, document.ItemQuantity, "3")
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), doc.Items[0].Quantity)
	assert.Equal(t, 3*doc.Items[0].UnitPrice, doc.Items[0].Total)

	saved, _, err := st.LoadDocument(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc, saved)
}

func TestDocumentIsACopy(t *testing.T) {
	st, _ := openStore(t)
	s := newSession(t, st, config.Default().Defaults)

	doc := s.Document()
	doc.Items[0].Description = "mutated"
	assert.NotEqual(t, "mutated", s.Document().Items[0].Description)
}

func TestNewDocument(t *testing.T) {
	ctx := context.Background()
	st, _ := openStore(t)
	s := newSession(t, st, config.Default().Defaults)

	doc, err := s.NewDocument(ctx)
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-002", doc.EstimateNumber)
	assert.Equal(t, 2, s.Sequence())

	doc, err = s.NewDocument(ctx)
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-003", doc.EstimateNumber)

	state, err := st.LoadSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, state.LastSequence)
}

func TestYearRollover(t *testing.T) {
	ctx := context.Background()
	st, _ := openStore(t)
	require.NoError(t, st.SaveSequence(ctx, model.SequenceState{Year: 2024, LastSequence: 40}))

	s := newSession(t, st, config.Default().Defaults)
	assert.Equal(t, "INV-2025-001", s.Document().EstimateNumber)

	doc, err := s.NewDocument(ctx)
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-002", doc.EstimateNumber)
}

func TestSetTemplate(t *testing.T) {
	ctx := context.Background()
	st, _ := openStore(t)
	s := newSession(t, st, config.Default().Defaults)

	doc, err := s.SetTemplate(ctx, model.TemplateBold)
	require.NoError(t, err)
	assert.Equal(t, model.TemplateBold, doc.DesignTemplate)

	preferred, ok, err := st.PreferredTemplate(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.TemplateBold, preferred)

	doc, err = s.NewDocument(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.TemplateBold, doc.DesignTemplate)

	_, err = s.SetTemplate(ctx, 7)
	assert.Error(t, err)
	assert.Equal(t, model.TemplateBold, s.Document().DesignTemplate)
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	st, _ := openStore(t)
	s := newSession(t, st, config.Default().Defaults)

	incoming := document.Default(time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC), "INV-2024-019")
	incoming.Title = "Imported"
	data, err := codec.EncodeJSON(incoming)
	require.NoError(t, err)

	doc, err := s.Import(ctx, "backup.json", data)
	require.NoError(t, err)
	assert.Equal(t, "Imported", doc.Title)
	assert.Equal(t, 19, s.Sequence())

	saved, _, err := st.LoadDocument(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Imported", saved.Title)
}

func TestImportFailureLeavesDocument(t *testing.T) {
	ctx := context.Background()
	st, _ := openStore(t)
	s := newSession(t, st, config.Default().Defaults)
	before := s.Document()

	_, err := s.Import(ctx, "broken.json", []byte("{oops"))
	assert.ErrorIs(t, err, codec.ErrInvalidJSON)

	_, err = s.Import(ctx, "plain.pdf", []byte("%PDF-1.4 no data"))
	assert.ErrorIs(t, err, codec.ErrNoEmbeddedData)

	_, err = s.Import(ctx, "sheet.xlsx", []byte("PK"))
	assert.ErrorIs(t, err, importer.ErrUnsupportedFormat)

	assert.Equal(t, before, s.Document())
	saved, _, err := st.LoadDocument(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, saved)
}

func TestImportFile(t *testing.T) {
	ctx := context.Background()
	st, _ := openStore(t)
	s := newSession(t, st, config.Default().Defaults)

	incoming := document.Default(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), "INV-2025-009")
	embedded, err := codec.Embed([]byte("%PDF-1.4\n%%EOF"), incoming)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "estimate.pdf")
	require.NoError(t, os.WriteFile(path, embedded, 0o644))

	doc, err := s.ImportFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-009", doc.EstimateNumber)
}
