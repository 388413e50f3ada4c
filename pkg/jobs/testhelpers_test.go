package jobs

import (
	"context"
	"database/sql"
	"testing"

	"github.com/hondana/hondana/pkg/books"
	"github.com/hondana/hondana/pkg/enrichment"
	"github.com/hondana/hondana/pkg/metadata"
	"github.com/hondana/hondana/pkg/migrations"
	"github.com/hondana/hondana/pkg/models"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func createTestBook(t *testing.T, db *bun.DB, title string) *models.Book {
	t.Helper()

	book := &models.Book{Title: title}
	err := books.NewService(db).CreateBook(context.Background(), book)
	require.NoError(t, err)
	return book
}

func createTestJob(t *testing.T, db *bun.DB) *models.MetadataJob {
	t.Helper()

	job := &models.MetadataJob{Status: models.MetadataJobStatusQueued}
	err := NewService(db).CreateJob(context.Background(), job)
	require.NoError(t, err)
	return job
}

// fakeProvider lets a test script search results per book title and observe
// or interrupt the run from inside a search call.
type fakeProvider struct {
	resultsByTitle map[string][]metadata.SearchResult
	searchErr      error
	cleanErr       error
	onSearch       func(title string)
}

func (f *fakeProvider) Search(_ context.Context, _, title string) ([]metadata.SearchResult, error) {
	if f.onSearch != nil {
		f.onSearch(title)
	}
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.resultsByTitle[title], nil
}

func (f *fakeProvider) GetTags(_ context.Context, _ string) ([]metadata.TagCandidate, error) {
	return nil, nil
}

func (f *fakeProvider) CleanDescription(_ context.Context, _, _, description string) (string, string, error) {
	if f.cleanErr != nil {
		return "", "", f.cleanErr
	}
	return description, "", nil
}

func (f *fakeProvider) InferTags(_ context.Context, _ string) ([]string, string, error) {
	return []string{"Genre:Test"}, "", nil
}

func (f *fakeProvider) InferTagField(_ context.Context, _, _, _ string) (string, string, error) {
	return "value", "", nil
}

func (f *fakeProvider) TagInferenceFields() []metadata.TagField {
	return []metadata.TagField{{Field: "Genre", Prompt: "genre prompt"}}
}

func newTestEngine(t *testing.T, db *bun.DB, provider metadata.Provider) *Engine {
	t.Helper()

	bookService := books.NewService(db)
	pipeline, err := enrichment.NewPipeline(bookService, provider, nil)
	require.NoError(t, err)
	return NewEngine(NewService(db), bookService, pipeline)
}

func searchResult(title string) []metadata.SearchResult {
	return []metadata.SearchResult{{
		ResultID:    "result-" + title,
		Title:       title,
		Author:      "Test Author",
		Description: "A description long enough to score something.",
		Source:      metadata.SourceGoogleBooks,
	}}
}
