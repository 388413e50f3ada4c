package books

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/hondana/hondana/pkg/errcodes"
	"github.com/hondana/hondana/pkg/models"
	"github.com/hondana/hondana/pkg/normalize"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type RetrieveBookOptions struct {
	ID *int
}

type ListBooksOptions struct {
	Limit  *int
	Offset *int
	IDs    []int
	Search *string

	includeTotal bool
}

type UpdateBookOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateBook(ctx context.Context, book *models.Book) error {
	now := time.Now()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	book.UpdatedAt = book.CreatedAt

	refreshNormalized(book)

	_, err := svc.db.
		NewInsert().
		Model(book).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := svc.db.
		NewSelect().
		Model(book).
		Relation("Tags", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("bt.id ASC")
		}).
		Relation("Tags.Tag")

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	return book, nil
}

func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*models.Book, error) {
	b, _, err := svc.listBooksWithTotal(ctx, opts)
	return b, errors.WithStack(err)
}

func (svc *Service) ListBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	opts.includeTotal = true
	return svc.listBooksWithTotal(ctx, opts)
}

func (svc *Service) listBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	books := []*models.Book{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&books).
		Relation("Tags", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("bt.id ASC")
		}).
		Relation("Tags.Tag").
		Order("b.id ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if len(opts.IDs) > 0 {
		q = q.Where("b.id IN (?)", bun.In(opts.IDs))
	}
	if opts.Search != nil {
		pattern := "%" + strings.ToLower(*opts.Search) + "%"
		q = q.Where("LOWER(b.title) LIKE ? OR LOWER(b.author) LIKE ?", pattern, pattern)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return books, total, nil
}

// ListBookIDsForEnrichment resolves the set of book ids a job should cover.
// An empty ids argument means every book. Ids that don't exist are dropped,
// and the result is ordered by id so a job always walks books in a stable
// order.
func (svc *Service) ListBookIDsForEnrichment(ctx context.Context, ids []int) ([]int, error) {
	bookIDs := []int{}

	q := svc.db.
		NewSelect().
		Model((*models.Book)(nil)).
		Column("b.id").
		Order("b.id ASC")

	if len(ids) > 0 {
		q = q.Where("b.id IN (?)", bun.In(ids))
	}

	err := q.Scan(ctx, &bookIDs)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return bookIDs, nil
}

func (svc *Service) UpdateBook(ctx context.Context, book *models.Book, opts UpdateBookOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	columns := opts.Columns
	for _, column := range opts.Columns {
		if column == "title" || column == "author" {
			refreshNormalized(book)
			columns = append(columns, "normalized_title", "normalized_author")
			break
		}
	}

	// Update updated_at.
	now := time.Now()
	book.UpdatedAt = now
	columns = append(columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(book).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Book")
		}
		return errors.WithStack(err)
	}

	return nil
}

// ReplaceNonTopicTags swaps a book's inferred tags for the given names while
// leaving tags in the topic namespace untouched. Tag rows are created on
// demand (matched case-insensitively) and tags left with no books are
// removed, all in one transaction.
func (svc *Service) ReplaceNonTopicTags(ctx context.Context, bookID int, names []string) error {
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		// Drop existing links outside the topic namespace.
		_, err := tx.
			NewDelete().
			Model((*models.BookTag)(nil)).
			Where("book_id = ?", bookID).
			Where("tag_id IN (SELECT id FROM tags WHERE LOWER(name) NOT LIKE ?)", models.TopicNamespace+"%").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		now := time.Now()
		seen := map[string]bool{}
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name == "" || seen[strings.ToLower(name)] {
				continue
			}
			seen[strings.ToLower(name)] = true

			tag := &models.Tag{}
			err := tx.
				NewSelect().
				Model(tag).
				Where("LOWER(t.name) = LOWER(?)", name).
				Scan(ctx)
			if errors.Is(err, sql.ErrNoRows) {
				tag = &models.Tag{Name: name, CreatedAt: now, UpdatedAt: now}
				_, err = tx.
					NewInsert().
					Model(tag).
					Returning("*").
					Exec(ctx)
			}
			if err != nil {
				return errors.WithStack(err)
			}

			_, err = tx.
				NewInsert().
				Model(&models.BookTag{BookID: bookID, TagID: tag.ID}).
				On("CONFLICT (book_id, tag_id) DO NOTHING").
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		// Remove tags no book references anymore.
		_, err = tx.
			NewDelete().
			Model((*models.Tag)(nil)).
			Where("id NOT IN (SELECT tag_id FROM book_tags)").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func refreshNormalized(book *models.Book) {
	title := normalize.Title(book.Title)
	book.NormalizedTitle = &title

	author := ""
	if book.Author != nil {
		author = normalize.Author(*book.Author)
	}
	book.NormalizedAuthor = &author
}
