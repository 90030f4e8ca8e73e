package commands_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quotemaker-dev/quotemaker/internal/codec"
	"github.com/quotemaker-dev/quotemaker/internal/commands"
	"github.com/quotemaker-dev/quotemaker/internal/savepoint"
)

func runQuotemaker(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := commands.NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// workspace initializes a workspace and returns a runner bound to its config.
func workspace(t *testing.T) (string, func(args ...string) (string, error)) {
	t.Helper()
	dir := t.TempDir()
	_, err := runQuotemaker(t, "", "init", dir, "--sender-name", "Acme Studio")
	require.NoError(t, err)

	cfgPath := filepath.Join(dir, "quotemaker.yaml")
	return dir, func(args ...string) (string, error) {
		return runQuotemaker(t, "", append(args, "--config", cfgPath)...)
	}
}

func estimateNumber(seq int) string {
	return fmt.Sprintf("INV-%d-%03d", time.Now().Year(), seq)
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	out, err := runQuotemaker(t, "", "init", dir, "--sender-name", "Acme Studio")
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized quotemaker workspace")

	for _, d := range []string{".quotemaker", "exports"} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}

	data, err := os.ReadFile(filepath.Join(dir, "quotemaker.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: Acme Studio")

	gitignore, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(gitignore), ".quotemaker/")
}

func TestInit_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	_, err := runQuotemaker(t, "", "init", dir)
	require.NoError(t, err)

	_, err = runQuotemaker(t, "", "init", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = runQuotemaker(t, "", "init", dir, "--force")
	assert.NoError(t, err)
}

func TestShow_FirstRun(t *testing.T) {
	_, run := workspace(t)

	out, err := run("show")
	require.NoError(t, err)
	assert.Contains(t, out, estimateNumber(1))
	assert.Contains(t, out, "Acme Studio")
	assert.Contains(t, out, "Total")

	out, err = run("show", "--json")
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, estimateNumber(1), doc["estimateNumber"])
}

func TestNew_AdvancesSequence(t *testing.T) {
	_, run := workspace(t)

	_, err := run("set", "title", "Old")
	require.NoError(t, err)

	out, err := run("new")
	require.NoError(t, err)
	assert.Contains(t, out, "Started "+estimateNumber(2))

	out, err = run("show")
	require.NoError(t, err)
	assert.Contains(t, out, estimateNumber(2))
	assert.NotContains(t, out, "Old")
}

func TestSet(t *testing.T) {
	_, run := workspace(t)

	out, err := run("set", "title", "Website build")
	require.NoError(t, err)
	assert.Contains(t, out, "Set title")

	_, err = run("set", "recipient.name", "Beta Corp")
	require.NoError(t, err)
	_, err = run("set", "designTemplate", "2")
	require.NoError(t, err)

	out, err = run("show")
	require.NoError(t, err)
	assert.Contains(t, out, "Website build")
	assert.Contains(t, out, "Beta Corp")
	assert.Contains(t, out, "2 (modern)")

	_, err = run("set", "designTemplate", "9")
	assert.Error(t, err)
	_, err = run("set", "nonsense", "x")
	assert.Error(t, err)

	// The template preference carries into new documents.
	_, err = run("new")
	require.NoError(t, err)
	out, err = run("show")
	require.NoError(t, err)
	assert.Contains(t, out, "2 (modern)")
}

var addedItem = regexp.MustCompile(`Added item (\S+)`)

func TestItems(t *testing.T) {
	_, run := workspace(t)

	out, err := run("item", "add", "--description", "Design", "--quantity", "2", "--unit-price", "50000")
	require.NoError(t, err)
	m := addedItem.FindStringSubmatch(out)
	require.Len(t, m, 2)
	itemID := m[1]

	out, err = run("item", "set", itemID, "quantity", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "3 x 50000 = 150000")

	out, err = run("show")
	require.NoError(t, err)
	assert.Contains(t, out, "Design")
	assert.Contains(t, out, "150,000")

	_, err = run("item", "set", "missing", "quantity", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no item with id")

	out, err = run("item", "rm", itemID)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed item "+itemID)

	_, err = run("item", "rm", itemID)
	assert.Error(t, err)
}

func TestExportAndHistory(t *testing.T) {
	dir, run := workspace(t)

	out, err := run("history")
	require.NoError(t, err)
	assert.Contains(t, out, "No exports yet.")

	_, err = run("set", "title", "Website build")
	require.NoError(t, err)

	out, err = run("export", "json", "xlsx")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "Exported "))

	files, err := filepath.Glob(filepath.Join(dir, "exports", "Website build_*_001.*"))
	require.NoError(t, err)
	assert.Len(t, files, 2)

	out, err = run("history")
	require.NoError(t, err)
	assert.Contains(t, out, "json")
	assert.Contains(t, out, "xlsx")
	assert.Contains(t, out, estimateNumber(1))

	out, err = run("history", "-n", "1")
	require.NoError(t, err)
	assert.NotContains(t, out, ".json")
	assert.Contains(t, out, ".xlsx")

	_, err = run("export", "docx")
	assert.Error(t, err)
}

func TestExportPDFRoundTrip(t *testing.T) {
	dir, run := workspace(t)

	_, err := run("set", "title", "Round trip")
	require.NoError(t, err)
	_, err = run("item", "add", "--description", "Hosting", "--unit-price", "12000")
	require.NoError(t, err)

	_, err = run("export")
	require.NoError(t, err)
	files, err := filepath.Glob(filepath.Join(dir, "exports", "*.pdf"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	out, err := run("import")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Base(files[0]))

	_, err = run("new")
	require.NoError(t, err)

	out, err = run("import", files[0])
	require.NoError(t, err)
	assert.Contains(t, out, "Imported "+estimateNumber(1))

	out, err = run("show")
	require.NoError(t, err)
	assert.Contains(t, out, "Round trip")
	assert.Contains(t, out, "Hosting")
}

func TestImportErrors(t *testing.T) {
	dir, run := workspace(t)

	write := func(name string, data []byte) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, data, 0o644))
		return path
	}

	corrupt := append([]byte("%PDF-1.4\n"), codec.StartMarker+"%zz"+codec.EndMarker...)

	tests := []struct {
		name string
		path string
		want string
	}{
		{"bad json", write("bad.json", []byte("{")), "not a valid estimate JSON file"},
		{"plain pdf", write("plain.pdf", []byte("%PDF-1.4\n%%EOF\n")), "no estimate data"},
		{"corrupt pdf", write("corrupt.pdf", corrupt), "damaged"},
		{"unsupported", write("notes.txt", []byte("hello")), "unsupported file type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run("import", tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	out, err := run("import", filepath.Join(dir, "exports"))
	require.NoError(t, err)
	assert.Contains(t, out, "No importable files")

	// Failed imports leave the document alone.
	out, err = run("show")
	require.NoError(t, err)
	assert.Contains(t, out, estimateNumber(1))
}

func TestFolder(t *testing.T) {
	dir := t.TempDir()
	_, err := runQuotemaker(t, "", "init", dir)
	require.NoError(t, err)
	cfgPath := filepath.Join(dir, "quotemaker.yaml")

	// An empty answer cancels without error.
	out, err := runQuotemaker(t, "\n", "folder", "--config", cfgPath)
	require.NoError(t, err)
	assert.NotContains(t, out, "Exports will be saved")

	target := t.TempDir()
	out, err = runQuotemaker(t, target+"\n", "folder", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Exports will be saved to "+target)

	out, err = runQuotemaker(t, "", "show", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, target)

	_, err = runQuotemaker(t, "", "export", "json", "--config", cfgPath)
	require.NoError(t, err)
	files, err := filepath.Glob(filepath.Join(target, "*.json"))
	require.NoError(t, err)
	assert.Len(t, files, 1)

	_, err = runQuotemaker(t, "", "folder", filepath.Join(target, "missing"), "--config", cfgPath)
	assert.Error(t, err)

	out, err = runQuotemaker(t, "", "folder", "--clear", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, "exports"))
}

func TestExportThroughSaveEndpoint(t *testing.T) {
	srv := httptest.NewServer(savepoint.NewServer("127.0.0.1:0", zap.NewNop()).Handler())
	defer srv.Close()
	t.Setenv("QUOTEMAKER_SAVE_ENDPOINT_URL", srv.URL)

	_, run := workspace(t)
	target := t.TempDir()

	out, err := run("folder", target)
	require.NoError(t, err)
	assert.Contains(t, out, target)

	_, err = run("export", "pdf")
	require.NoError(t, err)

	files, err := filepath.Glob(filepath.Join(target, "*.pdf"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	out, err = run("history")
	require.NoError(t, err)
	assert.Contains(t, out, "endpoint")
}

func TestServe_BadAddress(t *testing.T) {
	_, run := workspace(t)
	_, err := run("serve", "--addr", "127.0.0.1:notaport")
	assert.Error(t, err)
}
