package books

import (
	"context"
	"database/sql"
	"testing"

	"github.com/hondana/hondana/pkg/errcodes"
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

func ptrString(v string) *string {
	return &v
}

func TestCreateBook_SetsNormalizedFields(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	svc := NewService(db)
	book := &models.Book{
		Title:  "The Left Hand of Darkness (Hainish Cycle #4)",
		Author: ptrString("Le Guin, Ursula K."),
	}
	err := svc.CreateBook(ctx, book)
	require.NoError(t, err)
	require.NotZero(t, book.ID)

	require.NotNil(t, book.NormalizedTitle)
	require.NotNil(t, book.NormalizedAuthor)
	assert.Equal(t, "the left hand of darkness", *book.NormalizedTitle)
	assert.Equal(t, "ursula k le guin", *book.NormalizedAuthor)
}

func TestRetrieveBook_NotFound(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	svc := NewService(db)
	id := 12345
	_, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
	assert.ErrorIs(t, err, errcodes.NotFound("Book"))
}

func TestUpdateBook_RefreshesNormalizedFields(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	svc := NewService(db)
	book := &models.Book{Title: "Dune", Author: ptrString("Frank Herbert")}
	require.NoError(t, svc.CreateBook(ctx, book))

	book.Title = "Dune Messiah"
	err := svc.UpdateBook(ctx, book, UpdateBookOptions{Columns: []string{"title"}})
	require.NoError(t, err)

	reloaded, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	require.NotNil(t, reloaded.NormalizedTitle)
	assert.Equal(t, "dune messiah", *reloaded.NormalizedTitle)
}

func TestListBookIDsForEnrichment(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	svc := NewService(db)
	first := &models.Book{Title: "First"}
	second := &models.Book{Title: "Second"}
	third := &models.Book{Title: "Third"}
	for _, book := range []*models.Book{first, second, third} {
		require.NoError(t, svc.CreateBook(ctx, book))
	}

	t.Run("empty means all books in id order", func(t *testing.T) {
		ids, err := svc.ListBookIDsForEnrichment(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, []int{first.ID, second.ID, third.ID}, ids)
	})

	t.Run("unknown ids are dropped", func(t *testing.T) {
		ids, err := svc.ListBookIDsForEnrichment(ctx, []int{third.ID, 9999, first.ID})
		require.NoError(t, err)
		assert.Equal(t, []int{first.ID, third.ID}, ids)
	})
}

func TestReplaceNonTopicTags(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	svc := NewService(db)
	book := &models.Book{Title: "Tagged"}
	require.NoError(t, svc.CreateBook(ctx, book))

	// Seed a topic tag and an inferred tag on the book.
	require.NoError(t, svc.ReplaceNonTopicTags(ctx, book.ID, []string{"topic:space-opera", "Genre:Horror"}))

	err := svc.ReplaceNonTopicTags(ctx, book.ID, []string{"Genre:Science Fiction", "Mood:Epic"})
	require.NoError(t, err)

	reloaded, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)

	names := []string{}
	for _, bt := range reloaded.Tags {
		require.NotNil(t, bt.Tag)
		names = append(names, bt.Tag.Name)
	}
	assert.ElementsMatch(t, []string{"topic:space-opera", "Genre:Science Fiction", "Mood:Epic"}, names)

	// The replaced tag should be gone entirely since no book uses it.
	count, err := db.NewSelect().Model((*models.Tag)(nil)).Where("name = ?", "Genre:Horror").Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReplaceNonTopicTags_ReusesTagsCaseInsensitively(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	svc := NewService(db)
	first := &models.Book{Title: "One"}
	second := &models.Book{Title: "Two"}
	require.NoError(t, svc.CreateBook(ctx, first))
	require.NoError(t, svc.CreateBook(ctx, second))

	require.NoError(t, svc.ReplaceNonTopicTags(ctx, first.ID, []string{"Genre:Horror"}))
	require.NoError(t, svc.ReplaceNonTopicTags(ctx, second.ID, []string{"genre:horror"}))

	count, err := db.NewSelect().Model((*models.Tag)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
