package enrichment

import (
	"context"

	"github.com/hondana/hondana/pkg/books"
	"github.com/hondana/hondana/pkg/metadata"
	"github.com/hondana/hondana/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// ErrNoResults is returned when the search provider has no candidates for a
// book. It's a per-record failure like any other, with a stable message.
var ErrNoResults = errors.New("No metadata results")

// Pipeline enriches one book at a time: search, score, select, run the
// configured cleanup steps, and apply the outcome to the catalog.
type Pipeline struct {
	bookService *books.Service
	provider    metadata.Provider
	steps       []step
}

func NewPipeline(bookService *books.Service, provider metadata.Provider, stepOrder []string) (*Pipeline, error) {
	steps, err := ResolveSteps(stepOrder, provider)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		bookService: bookService,
		provider:    provider,
		steps:       steps,
	}, nil
}

// Result is what a record's enrichment produced. On failure it still carries
// the draft state built so far, so callers can see which tags had already
// been inferred when a later step broke.
type Result struct {
	Selected    *Candidate
	Tags        []string
	Description string
}

// Process enriches a single book. A nil error means the outcome was applied
// to the catalog. Search, scoring, and cleanup steps never touch the catalog;
// only the final apply writes.
func (p *Pipeline) Process(ctx context.Context, book *models.Book) (*Result, error) {
	log := logger.FromContext(ctx)

	queryTitle := book.Title
	if book.NormalizedTitle != nil && *book.NormalizedTitle != "" {
		queryTitle = *book.NormalizedTitle
	}
	queryAuthor := ""
	if book.Author != nil {
		queryAuthor = *book.Author
	}
	if book.NormalizedAuthor != nil && *book.NormalizedAuthor != "" {
		queryAuthor = *book.NormalizedAuthor
	}

	results, err := p.provider.Search(ctx, queryAuthor, queryTitle)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}

	author := ""
	if book.Author != nil {
		author = *book.Author
	}
	candidates := ScoreResults(book.Title, author, results)
	selected := SelectBest(candidates)

	st := &stepState{
		title:          book.Title,
		author:         author,
		rawDescription: selected.Description,
		description:    selected.Description,
		baseTags:       CategoryTopicTags(selected.Categories),
	}

	// Explicit tag candidates are a nice-to-have; a failure here shouldn't
	// fail the record.
	tagCandidates, err := p.provider.GetTags(ctx, selected.ResultID)
	if err != nil {
		log.Warn("failed to fetch tag candidates", logger.Data{"result_id": selected.ResultID, "error": err.Error()})
	} else {
		names := make([]string, 0, len(tagCandidates))
		for _, tc := range tagCandidates {
			names = append(names, tc.TagText)
		}
		st.baseTags = MergeTags(st.baseTags, names)
	}

	result := &Result{Selected: selected}
	for _, s := range p.steps {
		if err := s.run(ctx, p.provider, st); err != nil {
			result.Tags = st.workingTags()
			result.Description = st.description
			return result, err
		}
	}
	result.Tags = st.workingTags()
	result.Description = st.description

	if err := p.apply(ctx, book, result); err != nil {
		return result, err
	}
	return result, nil
}

func (p *Pipeline) apply(ctx context.Context, book *models.Book, result *Result) error {
	if err := p.bookService.ReplaceNonTopicTags(ctx, book.ID, result.Tags); err != nil {
		return errors.WithStack(err)
	}

	columns := []string{}

	// Keep the unedited provider text around when the primary search
	// provider supplied it, before the cleaned version replaces it.
	if result.Selected.Source == metadata.SourceGoogleBooks && result.Selected.Description != "" {
		raw := result.Selected.Description
		book.RawDescription = &raw
		columns = append(columns, "raw_description")
	}

	// An empty draft means the candidate had no description at all. Leave
	// whatever is already stored in place rather than erasing it.
	if result.Description != "" {
		description := result.Description
		book.Description = &description
		columns = append(columns, "description")
	}

	if len(columns) == 0 {
		return nil
	}
	return errors.WithStack(p.bookService.UpdateBook(ctx, book, books.UpdateBookOptions{Columns: columns}))
}
