package aksara

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// Fingerprint returns the normalized-content identity of a passage:
// a hex digest over the lowercased, whitespace-collapsed content. Two
// passages with the same fingerprint are considered duplicates.
func Fingerprint(content string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(content)), " ")
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithSynonyms replaces the built-in synonym table used for query expansion.
func WithSynonyms(t SynonymTable) RetrieverOption {
	return func(r *Retriever) { r.synonyms = t }
}

// WithTopK sets how many candidates each variant's search requests.
// Default is 10.
func WithTopK(k int) RetrieverOption {
	return func(r *Retriever) { r.topK = k }
}

// WithResultCap sets the maximum number of deduplicated results returned.
// Default is 10.
func WithResultCap(n int) RetrieverOption {
	return func(r *Retriever) { r.resultCap = n }
}

// WithSearchTimeout sets the independent timeout for each variant's search.
// A search exceeding it degrades to zero results for that variant.
// Default is 5s.
func WithSearchTimeout(d time.Duration) RetrieverOption {
	return func(r *Retriever) { r.timeout = d }
}

// WithRetrieverLogger sets the structured logger. Default is a no-op logger.
func WithRetrieverLogger(l *slog.Logger) RetrieverOption {
	return func(r *Retriever) { r.logger = l }
}

// WithRetrieverTracer sets the tracer for retrieval spans.
func WithRetrieverTracer(t Tracer) RetrieverOption {
	return func(r *Retriever) { r.tracer = t }
}

// Retriever expands a query into variants, fans out one similarity search per
// variant concurrently, and merges the results with fingerprint deduplication.
type Retriever struct {
	searcher  VectorSearcher
	synonyms  SynonymTable
	topK      int
	resultCap int
	timeout   time.Duration
	logger    *slog.Logger
	tracer    Tracer
}

// NewRetriever creates a Retriever over the given searcher with defaults:
// built-in synonym table, top-K 10 per variant, result cap 10, 5s per-search
// timeout.
func NewRetriever(searcher VectorSearcher, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		searcher:  searcher,
		synonyms:  DefaultSynonyms(),
		topK:      10,
		resultCap: 10,
		timeout:   5 * time.Second,
		logger:    nopLogger,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// variantResult pairs one variant's search outcome with its position.
type variantResult struct {
	results []SearchResult
	err     error
}

// Retrieve runs the full expansion → fan-out → merge pipeline and returns the
// deduplicated evidence sorted by score descending, together with the variant
// list actually used (for observability, not correctness).
//
// A single variant's failure degrades to zero items for that variant. Only
// when every variant fails does Retrieve return ErrRetrievalUnavailable.
func (r *Retriever) Retrieve(ctx context.Context, query string, fanOut int) ([]Evidence, []string, error) {
	variants := r.synonyms.Expand(query, fanOut)

	if r.tracer != nil {
		var span Span
		ctx, span = r.tracer.Start(ctx, "retriever.retrieve",
			StringAttr("query", query),
			IntAttr("variants", len(variants)))
		defer span.End()
	}

	// One search per variant, parallelism equal to the variant count.
	// Each call gets an independent timeout so a slow backend degrades that
	// variant instead of stalling the whole request.
	outcomes := make([]variantResult, len(variants))
	var wg sync.WaitGroup
	wg.Add(len(variants))
	for i, v := range variants {
		go func(i int, v string) {
			defer wg.Done()
			sctx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			results, err := r.searcher.Search(sctx, v, r.topK)
			outcomes[i] = variantResult{results: results, err: err}
		}(i, v)
	}
	wg.Wait()

	failed := 0
	var merged []SearchResult
	for i, out := range outcomes {
		if out.err != nil {
			failed++
			r.logger.Warn("variant search failed", "variant", variants[i], "error", out.err)
			continue
		}
		merged = append(merged, out.results...)
	}
	if failed == len(variants) {
		return nil, variants, ErrRetrievalUnavailable
	}

	evidence := dedupeByFingerprint(merged)
	sort.SliceStable(evidence, func(i, j int) bool {
		return evidence[i].Score > evidence[j].Score
	})
	if len(evidence) > r.resultCap {
		evidence = evidence[:r.resultCap]
	}

	r.logger.Debug("retrieval complete",
		"query", query,
		"variants", len(variants),
		"failed_variants", failed,
		"results", len(evidence))
	return evidence, variants, nil
}

// dedupeByFingerprint groups search results by normalized-content fingerprint
// and keeps only the highest-scoring item per group.
func dedupeByFingerprint(results []SearchResult) []Evidence {
	best := make(map[string]int, len(results))
	var evidence []Evidence
	for _, sr := range results {
		fp := Fingerprint(sr.Content)
		if idx, seen := best[fp]; seen {
			if sr.Score > evidence[idx].Score {
				evidence[idx] = Evidence{
					Content:     sr.Content,
					Metadata:    sr.Metadata,
					Score:       sr.Score,
					Fingerprint: fp,
				}
			}
			continue
		}
		best[fp] = len(evidence)
		evidence = append(evidence, Evidence{
			Content:     sr.Content,
			Metadata:    sr.Metadata,
			Score:       sr.Score,
			Fingerprint: fp,
		})
	}
	return evidence
}
