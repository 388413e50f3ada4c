package tags

import (
	"context"
	"database/sql"
	"testing"

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

func TestFindOrCreateTag(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	svc := NewService(db)

	created, err := svc.FindOrCreateTag(ctx, "Genre:Horror")
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	// Same name in a different case reuses the row.
	found, err := svc.FindOrCreateTag(ctx, "genre:horror")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "Genre:Horror", found.Name)

	_, err = svc.FindOrCreateTag(ctx, "   ")
	assert.Error(t, err)
}

func TestListTags_IncludesBookCount(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	svc := NewService(db)
	tag, err := svc.FindOrCreateTag(ctx, "Mood:Epic")
	require.NoError(t, err)

	book := &models.Book{Title: "Counted"}
	_, err = db.NewInsert().Model(book).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&models.BookTag{BookID: book.ID, TagID: tag.ID}).Exec(ctx)
	require.NoError(t, err)

	tags, total, err := svc.ListTagsWithTotal(ctx, ListTagsOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, tags, 1)
	assert.Equal(t, 1, tags[0].BookCount)
}

func TestRemoveOrphans(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	svc := NewService(db)
	used, err := svc.FindOrCreateTag(ctx, "Genre:Fantasy")
	require.NoError(t, err)
	_, err = svc.FindOrCreateTag(ctx, "Mood:Forgotten")
	require.NoError(t, err)

	book := &models.Book{Title: "Keeper"}
	_, err = db.NewInsert().Model(book).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&models.BookTag{BookID: book.ID, TagID: used.ID}).Exec(ctx)
	require.NoError(t, err)

	removed, err := svc.RemoveOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	remaining, err := svc.ListTags(ctx, ListTagsOptions{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "Genre:Fantasy", remaining[0].Name)
}
