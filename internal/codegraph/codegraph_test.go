package codegraph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fgarofalo56/ragengine/internal/graph"
	"github.com/fgarofalo56/ragengine/pkg/sqliteutil"
)

const sampleSource = `package widget

// Widget renders something.
type Widget struct {
	Name string
	Size int
}

func (w *Widget) Render() string {
	return w.Name
}

func NewWidget(name string) *Widget {
	return &Widget{Name: name}
}
`

func TestParseFile_ExtractsStructMethodsAndFunctions(t *testing.T) {
	p := NewParser()
	f, err := p.ParseFile(context.Background(), "repo/widget.go", "repo", "widget.go", []byte(sampleSource))
	require.NoError(t, err)

	require.Len(t, f.Classes, 1)
	assert.Equal(t, "Widget", f.Classes[0].Name)
	assert.Len(t, f.Classes[0].Attributes, 2)
	require.Len(t, f.Classes[0].Methods, 1)
	assert.Equal(t, "Render", f.Classes[0].Methods[0].Name)

	require.Len(t, f.Functions, 1)
	assert.Equal(t, "NewWidget", f.Functions[0].Name)
}

func TestParseFile_MalformedSourceDoesNotError(t *testing.T) {
	p := NewParser()
	f, err := p.ParseFile(context.Background(), "repo/bad.go", "repo", "bad.go", []byte("this is not { go code at all"))
	require.NoError(t, err)
	assert.Empty(t, f.Classes)
	assert.Empty(t, f.Functions)
}

func newTestGraphStore(t *testing.T) *graph.Store {
	t.Helper()
	db, err := sqliteutil.OpenDB(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, graph.Migrate(db))
	return graph.New(db)
}

func TestIndexRepositories_LocalPathWritesIntoGraph(t *testing.T) {
	repoDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repoDir, "widget.go"), []byte(sampleSource), 0o644))

	store := newTestGraphStore(t)
	idx := NewIndexer(store, t.TempDir())

	stats, err := idx.IndexRepositories(context.Background(), []RepoSpec{
		{Name: "myrepo", LocalPath: repoDir},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesProcessed)
	assert.Equal(t, 1, stats.ClassesCreated)
	assert.Equal(t, 1, stats.MethodsCreated)
	assert.Equal(t, 1, stats.FunctionsCreated)
	assert.Equal(t, 2, stats.AttributesCreated)

	class, err := store.ClassByName(context.Background(), "myrepo", "Widget")
	require.NoError(t, err)
	require.NotNil(t, class)
}

func TestIndexRepositories_SkipsVendoredFilesByNameRegardlessOfGitignore(t *testing.T) {
	repoDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repoDir, "widget.go"), []byte(sampleSource), 0o644))
	vendorDir := filepath.Join(repoDir, "vendor", "example.com", "dep")
	require.NoError(t, os.MkdirAll(vendorDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(vendorDir, "dep.go"), []byte(sampleSource), 0o644))

	store := newTestGraphStore(t)
	idx := NewIndexer(store, t.TempDir())

	stats, err := idx.IndexRepositories(context.Background(), []RepoSpec{
		{Name: "myrepo", LocalPath: repoDir},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesProcessed, "vendor/ must be skipped even without a .gitignore entry")
}

func TestIndexRepositories_SkipsFailedRepoWithoutAborting(t *testing.T) {
	repoDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repoDir, "widget.go"), []byte(sampleSource), 0o644))

	store := newTestGraphStore(t)
	idx := NewIndexer(store, t.TempDir())
	idx.MaxRetries = 0

	stats, err := idx.IndexRepositories(context.Background(), []RepoSpec{
		{Name: "bad", URL: "not-a-real-url"},
		{Name: "good", LocalPath: repoDir},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesProcessed)
}
