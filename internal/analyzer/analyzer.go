package analyzer

import (
	"bslnav/internal/indexer"
	"bslnav/internal/models"
	"bslnav/internal/qdrant"
	"bslnav/internal/selection"
	"bslnav/internal/utils"
	"context"
	"fmt"
	"strings"

	qdrantpb "github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog"
)

const (
	DefaultTopK = 10
	// overFetch multiplies the requested count so client-side filtering and
	// self-exclusion still leave topK results.
	overFetch = 4
	maxFetch  = 200
)

// Store is the read side of the method index.
type Store interface {
	Search(ctx context.Context, collectionName string, vector []float32, limit uint64) ([]*qdrantpb.ScoredPoint, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Analyzer struct {
	store      Store
	embeddings Embedder
	logger     zerolog.Logger
}

func NewAnalyzer(store Store, emb Embedder, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		store:      store,
		embeddings: emb,
		logger:     logger,
	}
}

// Search returns the indexed methods closest to a natural language or code
// query, best first.
func (a *Analyzer) Search(ctx context.Context, collection, query string, topK int, filter models.QueryFilter) ([]models.SearchResult, error) {
	query = utils.NormalizeQuery(query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	vec, err := a.embeddings.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return a.nearest(ctx, collection, vec, topK, filter, nil)
}

// FindSimilar returns indexed methods similar to the resolved function d.
// The function itself is excluded from the result.
func (a *Analyzer) FindSimilar(ctx context.Context, collection string, d *selection.Descriptor, topK int, filter models.QueryFilter) ([]models.SearchResult, error) {
	if d == nil || d.FunctionName == "" {
		return nil, fmt.Errorf("function name is required")
	}
	text := indexer.EmbeddingText(models.MethodPayload{
		Language:      "bsl",
		ModuleName:    d.ModuleName,
		Configuration: d.Configuration,
		FunctionName:  d.FunctionName,
		Kind:          descriptorKind(d),
		Content:       d.FunctionBody,
	})
	vec, err := a.embeddings.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed function %s: %w", d.QualifiedName(), err)
	}
	self := func(m models.MethodPayload) bool {
		return strings.EqualFold(m.FunctionName, d.FunctionName) &&
			strings.EqualFold(m.ModuleName, d.ModuleName)
	}
	return a.nearest(ctx, collection, vec, topK, filter, self)
}

func (a *Analyzer) nearest(ctx context.Context, collection string, vec []float32, topK int, filter models.QueryFilter, exclude func(models.MethodPayload) bool) ([]models.SearchResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	limit := min(topK*overFetch, maxFetch)

	points, err := a.store.Search(ctx, collection, vec, uint64(limit))
	if err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, topK)
	for _, point := range points {
		m, err := qdrant.PayloadToMethod(point.GetPayload())
		if err != nil {
			a.logger.Debug().Err(err).Msg("skipping point with unreadable payload")
			continue
		}
		if exclude != nil && exclude(m) {
			continue
		}
		if !filter.Matches(m) {
			continue
		}
		results = append(results, models.SearchResult{
			Method: m,
			Score:  float64(point.GetScore()),
		})
		if len(results) == topK {
			break
		}
	}
	a.logger.Debug().
		Str("collection", collection).
		Int("candidates", len(points)).
		Int("results", len(results)).
		Msg("nearest methods")
	return results, nil
}

func descriptorKind(d *selection.Descriptor) string {
	if d.Region != nil {
		return string(d.Region.Kind)
	}
	return ""
}
