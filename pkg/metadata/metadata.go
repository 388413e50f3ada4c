// Package metadata defines the provider interfaces the enrichment pipeline
// consumes: external search for candidate records, and AI-backed cleanup of
// the text those candidates carry.
package metadata

import "context"

// SourceGoogleBooks identifies results produced by the Google Books client.
const SourceGoogleBooks = "google_books"

// SearchResult is a single candidate record from a search provider.
type SearchResult struct {
	ResultID    string
	Title       string
	Author      string
	Categories  []string
	Description string
	Source      string
}

// TagCandidate is a normalized tag suggestion from a provider.
type TagCandidate struct {
	TagText string
}

// TagField names a single inferable tag field and the prompt used to infer
// it.
type TagField struct {
	Field  string
	Prompt string
}

// SearchProvider supplies candidate records and their tag suggestions.
type SearchProvider interface {
	Search(ctx context.Context, author, title string) ([]SearchResult, error)
	GetTags(ctx context.Context, resultID string) ([]TagCandidate, error)
}

// AIProvider performs text cleanup and tag inference. All methods return the
// provider's reasoning alongside the result when the upstream model supplies
// one.
type AIProvider interface {
	CleanDescription(ctx context.Context, title, author, description string) (cleaned, reasoning string, err error)
	InferTags(ctx context.Context, description string) (tags []string, reasoning string, err error)
	InferTagField(ctx context.Context, description, field, prompt string) (value, reasoning string, err error)
	TagInferenceFields() []TagField
}

// Provider is the full surface the enrichment pipeline depends on. Concrete
// search and AI implementations are injected at construction; call sites
// never branch on the underlying type.
type Provider interface {
	SearchProvider
	AIProvider
}

type provider struct {
	SearchProvider
	AIProvider
}

// NewProvider combines a search provider and an AI provider into the single
// interface the pipeline consumes.
func NewProvider(search SearchProvider, ai AIProvider) Provider {
	return &provider{search, ai}
}
