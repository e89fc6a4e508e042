package evidence

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/POLIGRAPH/poligraph/internal/metrics"
	"github.com/POLIGRAPH/poligraph/internal/models"
	"github.com/POLIGRAPH/poligraph/internal/search"
	gocache "github.com/patrickmn/go-cache"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	// MaxEvidenceItems caps the evidence bundle handed to the classifier.
	MaxEvidenceItems = 10

	searchResultCount  = 10
	hybridMatchLimit   = 5
	embeddingPoolLimit = 500
)

// Searcher provides ranked web search results for a query.
type Searcher interface {
	Search(ctx context.Context, query string, count int) ([]search.Result, error)
	Available() bool
}

// Embedder produces text embeddings for semantic similarity search.
// Satisfied by the go-openai client.
type Embedder interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// ClaimSearcher exposes the verified-claim store's hybrid search surface.
type ClaimSearcher interface {
	SearchVerifiedKeyword(ctx context.Context, query string, limit int) ([]models.VerifiedClaimMatch, error)
	ListVerifiedEmbeddings(ctx context.Context, limit int) ([]models.VerifiedClaimMatch, error)
}

// Aggregator gathers evidence for a claim from two sources: live web search
// and the store of previously verified claims (keyword FTS plus embedding
// nearest-neighbor). Failures in either source degrade the bundle rather
// than failing the verification.
type Aggregator struct {
	searcher       Searcher
	embedder       Embedder
	claims         ClaimSearcher
	embeddingLimit *rate.Limiter
	credibility    *gocache.Cache
	embeddingModel openai.EmbeddingModel
	metrics        *metrics.Collector
	logger         *slog.Logger
}

// NewAggregator constructs an evidence aggregator. The embedder may be nil,
// in which case hybrid search runs keyword-only.
func NewAggregator(searcher Searcher, embedder Embedder, claims ClaimSearcher, embeddingModel string, collector *metrics.Collector, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		searcher:       searcher,
		embedder:       embedder,
		claims:         claims,
		embeddingLimit: rate.NewLimiter(rate.Limit(5), 1),
		credibility:    gocache.New(gocache.NoExpiration, 0),
		embeddingModel: openai.EmbeddingModel(embeddingModel),
		metrics:        collector,
		logger:         logger,
	}
}

// Gather assembles the evidence bundle for a claim: web results plus matches
// from the verified-claim store, deduplicated by URL, scored for relevance,
// sorted descending, and capped at MaxEvidenceItems. A fully empty bundle is
// a valid degraded outcome, never an error.
func (a *Aggregator) Gather(ctx context.Context, claimText string) ([]models.EvidenceItem, []models.VerifiedClaimMatch, []float64) {
	items := a.webEvidence(ctx, claimText)

	var embedding []float64
	if a.embedder != nil {
		embedding = a.embed(ctx, claimText)
	}

	matches := a.hybridMatches(ctx, claimText, embedding)
	for _, m := range matches {
		items = append(items, models.EvidenceItem{
			URL:            "poligraph://claims/" + m.ClaimID,
			Title:          m.ClaimText,
			Snippet:        m.Explanation,
			Domain:         "poligraph.internal",
			Timestamp:      m.VerifiedAt,
			RelevanceScore: m.Score,
		})
	}

	items = dedupeByURL(items)
	for i := range items {
		items[i].Normalize()
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].RelevanceScore > items[j].RelevanceScore
	})
	if len(items) > MaxEvidenceItems {
		items = items[:MaxEvidenceItems]
	}

	a.logger.Debug("evidence gathered",
		"claim_chars", len(claimText),
		"items", len(items),
		"verified_matches", len(matches))

	return items, matches, embedding
}

// webEvidence runs the external web search and scores results. Provider
// outages or a missing API key yield an empty slice.
func (a *Aggregator) webEvidence(ctx context.Context, claimText string) []models.EvidenceItem {
	if a.searcher == nil || !a.searcher.Available() {
		return nil
	}

	results, err := a.searcher.Search(ctx, claimText, searchResultCount)
	if err != nil {
		a.logger.Warn("web search failed, proceeding without web evidence", "error", err)
		a.metrics.RecordSearchError()
		return nil
	}

	claimTokens := tokenize(claimText)
	items := make([]models.EvidenceItem, 0, len(results))
	for rank, r := range results {
		item := models.EvidenceItem{
			URL:            r.URL,
			Title:          r.Title,
			Snippet:        r.Snippet,
			RelevanceScore: relevanceScore(rank, len(results), claimTokens, r.Title+" "+r.Snippet),
		}
		item.Normalize()
		// Weight raw relevance by the source domain's credibility prior.
		item.RelevanceScore = models.Clamp01(0.8*item.RelevanceScore + 0.2*a.DomainCredibility(item.Domain))
		items = append(items, item)
	}
	return items
}

// embed computes the claim embedding. Errors degrade to nil so verification
// falls back to keyword-only hybrid search.
func (a *Aggregator) embed(ctx context.Context, text string) []float64 {
	if err := a.embeddingLimit.Wait(ctx); err != nil {
		return nil
	}
	resp, err := a.embedder.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.embeddingModel,
	})
	if err != nil || len(resp.Data) == 0 {
		a.logger.Warn("embedding request failed, falling back to keyword search", "error", err)
		return nil
	}
	vec := make([]float64, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float64(v)
	}
	return vec
}

// hybridMatches merges keyword FTS matches with embedding nearest neighbors
// over previously verified claims, keeping the best score per claim.
func (a *Aggregator) hybridMatches(ctx context.Context, claimText string, embedding []float64) []models.VerifiedClaimMatch {
	best := make(map[string]models.VerifiedClaimMatch)

	keyword, err := a.claims.SearchVerifiedKeyword(ctx, claimText, hybridMatchLimit)
	if err != nil {
		a.logger.Warn("keyword claim search failed", "error", err)
	}
	for _, m := range keyword {
		if prev, ok := best[m.ClaimID]; !ok || m.Score > prev.Score {
			best[m.ClaimID] = m
		}
	}

	if len(embedding) > 0 {
		pool, err := a.claims.ListVerifiedEmbeddings(ctx, embeddingPoolLimit)
		if err != nil {
			a.logger.Warn("embedding claim search failed", "error", err)
		}
		for _, m := range pool {
			score := CosineSimilarity(embedding, m.Embedding)
			if score <= 0 {
				continue
			}
			m.Score = score
			if prev, ok := best[m.ClaimID]; !ok || m.Score > prev.Score {
				best[m.ClaimID] = m
			}
		}
	}

	matches := make([]models.VerifiedClaimMatch, 0, len(best))
	for _, m := range best {
		matches = append(matches, m)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > hybridMatchLimit {
		matches = matches[:hybridMatchLimit]
	}
	return matches
}

// relevanceScore combines provider rank (earlier is better) with token
// overlap between the claim and the result text.
func relevanceScore(rank, total int, claimTokens map[string]struct{}, resultText string) float64 {
	rankScore := 1.0
	if total > 1 {
		rankScore = 1.0 - float64(rank)/float64(total)
	}
	overlap := tokenOverlap(claimTokens, tokenize(resultText))
	return models.Clamp01(0.6*rankScore + 0.4*overlap)
}

// CosineSimilarity returns the cosine of the angle between two vectors,
// or 0 when either is empty or the dimensions disagree.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func dedupeByURL(items []models.EvidenceItem) []models.EvidenceItem {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		key := normalizeURL(item.URL)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

// normalizeURL lowercases the URL and strips a trailing slash so trivially
// different spellings of the same page collapse.
func normalizeURL(raw string) string {
	return strings.TrimSuffix(strings.ToLower(raw), "/")
}

func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?\"'()[]")
		if len(word) < 3 {
			continue
		}
		tokens[word] = struct{}{}
	}
	return tokens
}

func tokenOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 {
		return 0
	}
	var hits int
	for t := range a {
		if _, ok := b[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(a))
}
