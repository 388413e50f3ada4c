package worker

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/hondana/hondana/pkg/books"
	"github.com/hondana/hondana/pkg/config"
	"github.com/hondana/hondana/pkg/jobs"
	"github.com/hondana/hondana/pkg/metadata"
	"github.com/hondana/hondana/pkg/migrations"
	"github.com/hondana/hondana/pkg/models"
	"github.com/stretchr/testify/assert"
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

type stubProvider struct{}

func (stubProvider) Search(_ context.Context, _, _ string) ([]metadata.SearchResult, error) {
	return []metadata.SearchResult{{
		ResultID:    "r1",
		Title:       "Stub Title",
		Author:      "Stub Author",
		Description: "A stub description.",
		Source:      metadata.SourceGoogleBooks,
	}}, nil
}

func (stubProvider) GetTags(_ context.Context, _ string) ([]metadata.TagCandidate, error) {
	return nil, nil
}

func (stubProvider) CleanDescription(_ context.Context, _, _, description string) (string, string, error) {
	return description, "", nil
}

func (stubProvider) InferTags(_ context.Context, _ string) ([]string, string, error) {
	return nil, "", nil
}

func (stubProvider) InferTagField(_ context.Context, _, _, _ string) (string, string, error) {
	return "", "", nil
}

func (stubProvider) TagInferenceFields() []metadata.TagField {
	return nil
}

func TestWorker_RunsQueuedJob(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	bookService := books.NewService(db)
	require.NoError(t, bookService.CreateBook(ctx, &models.Book{Title: "Queued Up"}))

	jobService := jobs.NewService(db)
	job := &models.MetadataJob{Status: models.MetadataJobStatusQueued}
	require.NoError(t, jobService.CreateJob(ctx, job))

	cfg := &config.Config{WorkerPollInterval: 10 * time.Millisecond}
	w, err := New(cfg, jobService, bookService, stubProvider{})
	require.NoError(t, err)

	w.Start()
	defer w.Shutdown()

	require.Eventually(t, func() bool {
		fresh, err := jobService.RetrieveJob(ctx, jobs.RetrieveJobOptions{ID: &job.ID})
		if err != nil {
			return false
		}
		return fresh.Terminal()
	}, 5*time.Second, 20*time.Millisecond)

	final, err := jobService.RetrieveJob(ctx, jobs.RetrieveJobOptions{ID: &job.ID})
	require.NoError(t, err)
	assert.Equal(t, models.MetadataJobStatusCompleted, final.Status)
	assert.Equal(t, 1, final.ProcessedBooks)
	assert.Equal(t, 1, final.SucceededBooks)
}

func TestWorker_RejectsBadStepConfiguration(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)

	cfg := &config.Config{
		WorkerPollInterval: 10 * time.Millisecond,
		InferenceOrder:     []string{"not_a_step"},
	}
	_, err := New(cfg, jobs.NewService(db), books.NewService(db), stubProvider{})
	require.Error(t, err)
}
