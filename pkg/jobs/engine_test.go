package jobs

import (
	"context"
	"testing"

	"github.com/hondana/hondana/pkg/books"
	"github.com/hondana/hondana/pkg/config"
	"github.com/hondana/hondana/pkg/enrichment"
	"github.com/hondana/hondana/pkg/errcodes"
	"github.com/hondana/hondana/pkg/metadata"
	"github.com/hondana/hondana/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineRun_MixedOutcomes(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	good := createTestBook(t, db, "Found Book")
	bad := createTestBook(t, db, "Missing Book")
	job := createTestJob(t, db)

	provider := &fakeProvider{
		resultsByTitle: map[string][]metadata.SearchResult{
			// Search queries use the normalized title.
			"found book": searchResult("Found Book"),
		},
	}
	engine := newTestEngine(t, db, provider)
	require.NoError(t, engine.Run(ctx, job))

	svc := NewService(db)
	final, err := svc.RetrieveJob(ctx, RetrieveJobOptions{ID: &job.ID})
	require.NoError(t, err)

	assert.Equal(t, models.MetadataJobStatusCompleted, final.Status)
	assert.Equal(t, 2, final.TotalBooks)
	assert.Equal(t, 2, final.ProcessedBooks)
	assert.Equal(t, 1, final.SucceededBooks)
	assert.Equal(t, 1, final.FailedBooks)
	assert.Equal(t, final.ProcessedBooks, final.SucceededBooks+final.FailedBooks)
	assert.Nil(t, final.CurrentBookID)
	require.NotNil(t, final.StartedAt)
	require.NotNil(t, final.FinishedAt)
	require.NotNil(t, final.LastError)
	assert.Equal(t, "No metadata results", *final.LastError)

	events, err := svc.ListEvents(ctx, ListEventsOptions{JobID: job.ID})
	require.NoError(t, err)
	require.Len(t, events, 2)

	byBook := map[int]*models.MetadataJobEvent{}
	for _, event := range events {
		require.NotNil(t, event.PayloadParsed)
		byBook[event.PayloadParsed.BookID] = event

		// The counters in every event payload are consistent.
		assert.Equal(t, event.PayloadParsed.Processed, event.PayloadParsed.Succeeded+event.PayloadParsed.Failed)
	}

	completed := byBook[good.ID]
	require.NotNil(t, completed)
	assert.Equal(t, models.MetadataJobEventBookCompleted, completed.EventType)
	require.NotNil(t, completed.PayloadParsed.Selected)
	assert.Equal(t, "result-Found Book", completed.PayloadParsed.Selected.ResultID)

	failed := byBook[bad.ID]
	require.NotNil(t, failed)
	assert.Equal(t, models.MetadataJobEventBookFailed, failed.EventType)
	require.NotNil(t, failed.PayloadParsed.Error)
	assert.Equal(t, "No metadata results", *failed.PayloadParsed.Error)
}

func TestEngineRun_FailedEventCarriesSelectedCandidate(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	book := createTestBook(t, db, "Found Book")
	job := createTestJob(t, db)

	provider := &fakeProvider{
		resultsByTitle: map[string][]metadata.SearchResult{
			"found book": searchResult("Found Book"),
		},
		cleanErr: errcodes.ProviderTimeout("LLM"),
	}
	bookService := books.NewService(db)
	pipeline, err := enrichment.NewPipeline(bookService, provider, []string{config.InferenceStepDescriptionClean})
	require.NoError(t, err)
	engine := NewEngine(NewService(db), bookService, pipeline)

	require.NoError(t, engine.Run(ctx, job))

	svc := NewService(db)
	final, err := svc.RetrieveJob(ctx, RetrieveJobOptions{ID: &job.ID})
	require.NoError(t, err)
	assert.Equal(t, models.MetadataJobStatusCompleted, final.Status)
	assert.Equal(t, 1, final.FailedBooks)

	events, err := svc.ListEvents(ctx, ListEventsOptions{JobID: job.ID})
	require.NoError(t, err)
	require.Len(t, events, 1)

	event := events[0]
	assert.Equal(t, models.MetadataJobEventBookFailed, event.EventType)
	assert.Equal(t, book.ID, event.PayloadParsed.BookID)
	require.NotNil(t, event.PayloadParsed.Error)
	assert.Equal(t, "LLM request timed out.", *event.PayloadParsed.Error)

	// A candidate had been chosen before the cleanup step broke, so the
	// failure event still reports it.
	require.NotNil(t, event.PayloadParsed.Selected)
	assert.Equal(t, "result-Found Book", event.PayloadParsed.Selected.ResultID)
}

func TestEngineRun_CancelledBeforeStart(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	createTestBook(t, db, "Never Processed")
	job := createTestJob(t, db)

	svc := NewService(db)
	_, err := svc.CancelJob(ctx, job.ID)
	require.NoError(t, err)

	engine := newTestEngine(t, db, &fakeProvider{})
	require.NoError(t, engine.Run(ctx, job))

	final, err := svc.RetrieveJob(ctx, RetrieveJobOptions{ID: &job.ID})
	require.NoError(t, err)
	assert.Equal(t, models.MetadataJobStatusCancelled, final.Status)
	assert.Nil(t, final.StartedAt)
	require.NotNil(t, final.FinishedAt)
	assert.Zero(t, final.ProcessedBooks)

	events, err := svc.ListEvents(ctx, ListEventsOptions{JobID: job.ID})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEngineRun_CancellationAtBookBoundary(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	first := createTestBook(t, db, "First")
	createTestBook(t, db, "Second")
	createTestBook(t, db, "Third")
	job := createTestJob(t, db)

	svc := NewService(db)
	provider := &fakeProvider{
		resultsByTitle: map[string][]metadata.SearchResult{
			"first":  searchResult("First"),
			"second": searchResult("Second"),
			"third":  searchResult("Third"),
		},
	}
	// Cancel while the first book is in flight; the engine must finish that
	// book and stop before the second.
	provider.onSearch = func(title string) {
		if title == "first" {
			_, err := svc.CancelJob(ctx, job.ID)
			require.NoError(t, err)
		}
	}

	engine := newTestEngine(t, db, provider)
	require.NoError(t, engine.Run(ctx, job))

	final, err := svc.RetrieveJob(ctx, RetrieveJobOptions{ID: &job.ID})
	require.NoError(t, err)
	assert.Equal(t, models.MetadataJobStatusCancelled, final.Status)
	assert.Equal(t, 1, final.ProcessedBooks)
	assert.Equal(t, 1, final.SucceededBooks)
	assert.Nil(t, final.CurrentBookID)
	require.NotNil(t, final.FinishedAt)
	require.NotNil(t, final.CancelledAt)

	events, err := svc.ListEvents(ctx, ListEventsOptions{JobID: job.ID})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, first.ID, events[0].PayloadParsed.BookID)
}

func TestEngineRun_ProviderConfigErrorIsJobFatal(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	createTestBook(t, db, "One")
	createTestBook(t, db, "Two")
	job := createTestJob(t, db)

	provider := &fakeProvider{searchErr: errcodes.ProviderConfig("LLM_BASE_URL or LLM_MODEL not configured.")}
	engine := newTestEngine(t, db, provider)

	err := engine.Run(ctx, job)
	require.Error(t, err)

	svc := NewService(db)
	final, err := svc.RetrieveJob(ctx, RetrieveJobOptions{ID: &job.ID})
	require.NoError(t, err)
	assert.Equal(t, models.MetadataJobStatusFailed, final.Status)
	require.NotNil(t, final.LastError)
	assert.Equal(t, "LLM_BASE_URL or LLM_MODEL not configured.", *final.LastError)
	require.NotNil(t, final.FinishedAt)

	// The failure aborted the loop; only the first book was attempted and no
	// outcome event was recorded for it.
	assert.Zero(t, final.ProcessedBooks)
}
