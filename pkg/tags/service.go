package tags

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/hondana/hondana/pkg/errcodes"
	"github.com/hondana/hondana/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type RetrieveTagOptions struct {
	ID   *int
	Name *string
}

type ListTagsOptions struct {
	Limit  *int
	Offset *int
	Search *string

	includeTotal bool
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateTag(ctx context.Context, tag *models.Tag) error {
	now := time.Now()
	if tag.CreatedAt.IsZero() {
		tag.CreatedAt = now
	}
	tag.UpdatedAt = tag.CreatedAt

	_, err := svc.db.
		NewInsert().
		Model(tag).
		Returning("*").
		Exec(ctx)
	return errors.WithStack(err)
}

func (svc *Service) RetrieveTag(ctx context.Context, opts RetrieveTagOptions) (*models.Tag, error) {
	tag := &models.Tag{}

	q := svc.db.
		NewSelect().
		Model(tag)

	if opts.ID != nil {
		q = q.Where("t.id = ?", *opts.ID)
	}
	if opts.Name != nil {
		// Case-insensitive match
		q = q.Where("LOWER(t.name) = LOWER(?)", *opts.Name)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Tag")
		}
		return nil, errors.WithStack(err)
	}

	return tag, nil
}

// FindOrCreateTag finds an existing tag or creates a new one (case-insensitive match).
func (svc *Service) FindOrCreateTag(ctx context.Context, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("tag name cannot be empty")
	}

	tag, err := svc.RetrieveTag(ctx, RetrieveTagOptions{Name: &name})
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, errcodes.NotFound("Tag")) {
		return nil, err
	}

	tag = &models.Tag{Name: name}
	err = svc.CreateTag(ctx, tag)
	if err != nil {
		return nil, err
	}
	return tag, nil
}

func (svc *Service) ListTags(ctx context.Context, opts ListTagsOptions) ([]*models.Tag, error) {
	t, _, err := svc.listTagsWithTotal(ctx, opts)
	return t, errors.WithStack(err)
}

func (svc *Service) ListTagsWithTotal(ctx context.Context, opts ListTagsOptions) ([]*models.Tag, int, error) {
	opts.includeTotal = true
	return svc.listTagsWithTotal(ctx, opts)
}

func (svc *Service) listTagsWithTotal(ctx context.Context, opts ListTagsOptions) ([]*models.Tag, int, error) {
	tags := []*models.Tag{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&tags).
		ColumnExpr("t.*").
		ColumnExpr("(SELECT COUNT(*) FROM book_tags bt WHERE bt.tag_id = t.id) AS book_count").
		Order("t.name ASC")

	if opts.Search != nil && *opts.Search != "" {
		q = q.Where("LOWER(t.name) LIKE ?", "%"+strings.ToLower(*opts.Search)+"%")
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return tags, total, nil
}

// DeleteTag deletes a tag and all book associations.
func (svc *Service) DeleteTag(ctx context.Context, tagID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.BookTag)(nil)).
			Where("tag_id = ?", tagID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewDelete().
			Model((*models.Tag)(nil)).
			Where("id = ?", tagID).
			Exec(ctx)
		return errors.WithStack(err)
	})
}

// RemoveOrphans deletes tags that no book references.
func (svc *Service) RemoveOrphans(ctx context.Context) (int, error) {
	res, err := svc.db.
		NewDelete().
		Model((*models.Tag)(nil)).
		Where("id NOT IN (SELECT tag_id FROM book_tags)").
		Exec(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return int(removed), nil
}
