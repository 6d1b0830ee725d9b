package query

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/findit-engine/findit/internal/hnsw"
	"github.com/findit-engine/findit/internal/providers"
	"github.com/findit-engine/findit/internal/storage"
	"github.com/findit-engine/findit/internal/vectorstore"
)

const (
	ftsLimit    = 50
	hybridLimit = 100
	fusedLimit  = 50
)

// Filter scopes a search to a subset of the global database: specific
// source folders and/or a file_path prefix.
type Filter struct {
	FolderPaths []string
	PathPrefix  string
}

// SearchEngine runs both the cheap FTS-only search and the debounced
// three-way hybrid search against the global database.
type SearchEngine struct {
	Store    *storage.Store
	Parser   QueryParser
	Pipeline QueryPipeline

	VectorManager  *hnsw.Manager
	ClipModel      string
	ClipDimensions int

	TextModel         string
	TextDimensions    int
	EmbeddingProvider providers.EmbeddingProvider
	CLIPProvider      providers.CLIPEmbeddingProvider

	allowedCache AllowedClipCache

	textStoreMu sync.Mutex
	textStore   *vectorstore.Store
}

// InvalidateFilterCache clears the allowed_clip_ids cache. Must be called
// whenever the folder filter key, path prefix filter, or sync cursor
// advances, per the filter-cache invariant.
func (e *SearchEngine) InvalidateFilterCache() {
	e.allowedCache.Invalidate()
}

// InvalidateTextStore drops the cached brute-force text VectorStore, so
// the next hybrid search reloads it from clips.embedding.
func (e *SearchEngine) InvalidateTextStore() {
	e.textStoreMu.Lock()
	e.textStore = nil
	e.textStoreMu.Unlock()
}

// SearchFTS runs the cheap, synchronous FTS-only search: the raw query's
// FTS projection, unioned with the translated query's projection (if
// query expansion produced one), deduped by clip_id keeping the best
// (lowest) bm25 rank.
func (e *SearchEngine) SearchFTS(ctx context.Context, rawQuery string, filter Filter) ([]storage.ClipSearchResult, error) {
	parsed := e.Parser.Parse(rawQuery)
	exp := e.Pipeline.Expand(parsed)

	best := make(map[int64]float64)
	order := []int64{}

	addHits := func(hits []storage.FTSHit) {
		for _, h := range hits {
			if prev, ok := best[h.ClipID]; !ok || h.Rank < prev {
				if !ok {
					order = append(order, h.ClipID)
				}
				best[h.ClipID] = h.Rank
			}
		}
	}

	hits, err := e.Store.SearchFTS(ctx, parsed.FTSProjection(), filter.FolderPaths, filter.PathPrefix, ftsLimit)
	if err != nil {
		return nil, fmt.Errorf("search fts: %w", err)
	}
	addHits(hits)

	if exp.Translated != "" {
		translatedParsed := e.Parser.Parse(exp.Translated)
		translatedHits, err := e.Store.SearchFTS(ctx, translatedParsed.FTSProjection(), filter.FolderPaths, filter.PathPrefix, ftsLimit)
		if err == nil {
			addHits(translatedHits)
		}
	}

	sortByRankThenID(order, best)
	return e.Store.HydrateClips(ctx, order)
}

// sortByRankThenID orders ids by their best rank ascending (bm25: lower is
// better), tie-broken by clip_id.
func sortByRankThenID(ids []int64, rank map[int64]float64) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if rank[a] != rank[b] {
			return rank[a] < rank[b]
		}
		return a < b
	})
}

// resolveAllowed resolves (and caches) the allowed_clip_ids set for a
// filter. A nil map means "no filter" — every clip is allowed.
func (e *SearchEngine) resolveAllowed(ctx context.Context, filter Filter) (map[int64]bool, error) {
	if len(filter.FolderPaths) == 0 && filter.PathPrefix == "" {
		return nil, nil
	}
	if cached, ok := e.allowedCache.Get(filter.FolderPaths, filter.PathPrefix); ok {
		return cached, nil
	}
	ids, err := e.Store.ResolveAllowedClipIDs(ctx, filter.FolderPaths, filter.PathPrefix)
	if err != nil {
		return nil, fmt.Errorf("resolve allowed clip ids: %w", err)
	}
	return e.allowedCache.Set(filter.FolderPaths, filter.PathPrefix, ids), nil
}

// loadTextStore returns the cached brute-force VectorStore for TextModel,
// bulk-loading it from clips.embedding on a cache miss.
func (e *SearchEngine) loadTextStore(ctx context.Context) (*vectorstore.Store, error) {
	e.textStoreMu.Lock()
	defer e.textStoreMu.Unlock()

	if e.textStore != nil {
		return e.textStore, nil
	}

	rows, err := e.Store.ListClipEmbeddings(ctx, e.TextModel)
	if err != nil {
		return nil, fmt.Errorf("load text embeddings: %w", err)
	}
	entries := make([]vectorstore.Entry, len(rows))
	for i, r := range rows {
		entries[i] = vectorstore.Entry{ClipID: r.ClipID, Raw: r.Vector}
	}

	store := vectorstore.New(e.TextDimensions, e.TextModel)
	store.Load(entries)
	e.textStore = store
	return store, nil
}

// SearchHybrid runs the three-way fused search: FTS, the query's dense
// text embedding against the brute-force VectorStore, and the query's
// CLIP embedding against the HNSW clip index, computed concurrently.
func (e *SearchEngine) SearchHybrid(ctx context.Context, rawQuery string, filter Filter) ([]storage.ClipSearchResult, error) {
	parsed := e.Parser.Parse(rawQuery)
	exp := e.Pipeline.ExpandAsync(ctx, parsed)
	queryText := parsed.PositiveText
	if exp.Translated != "" {
		queryText = exp.Translated
	}

	allowed, err := e.resolveAllowed(ctx, filter)
	if err != nil {
		return nil, err
	}

	var ftsHits []storage.FTSHit
	var textResults []vectorstore.Result
	var clipResults []hnsw.Key
	var clipDistances []float32

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := e.Store.SearchFTS(gctx, parsed.FTSProjection(), filter.FolderPaths, filter.PathPrefix, hybridLimit)
		if err != nil {
			return fmt.Errorf("search fts: %w", err)
		}
		ftsHits = hits
		return nil
	})
	g.Go(func() error {
		if e.EmbeddingProvider == nil || !e.EmbeddingProvider.IsAvailable() {
			return nil
		}
		vec, err := e.EmbeddingProvider.Embed(gctx, queryText)
		if err != nil {
			return nil // non-fatal: the channel just contributes nothing
		}
		store, err := e.loadTextStore(gctx)
		if err != nil {
			return nil
		}
		textResults = store.Search(vec, hybridLimit, allowed)
		return nil
	})
	g.Go(func() error {
		if e.CLIPProvider == nil || !e.CLIPProvider.IsAvailable() {
			return nil
		}
		vec, err := e.CLIPProvider.EncodeText(gctx, queryText)
		if err != nil {
			return nil
		}
		idx, err := e.VectorManager.Get(gctx, hnsw.KindClip, e.ClipDimensions, e.ClipModel)
		if err != nil {
			return nil
		}
		keys, distances, err := idx.Search(vec, hybridLimit)
		if err != nil {
			return nil
		}
		clipResults, clipDistances = filterAllowedKeys(keys, distances, allowed)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ftsChannel := make([]channelScore, len(ftsHits))
	for i, h := range ftsHits {
		ftsChannel[i] = channelScore{clipID: h.ClipID, score: -h.Rank}
	}
	textChannel := make([]channelScore, len(textResults))
	for i, r := range textResults {
		textChannel[i] = channelScore{clipID: r.ClipID, score: float64(r.Similarity)}
	}
	clipChannel := make([]channelScore, len(clipResults))
	for i, key := range clipResults {
		clipChannel[i] = channelScore{clipID: hnsw.KeyToClipID(key), score: 1 - float64(clipDistances[i])}
	}

	wFTS, wText, wCLIP := Weights(parsed)
	fused := Fuse(ftsChannel, textChannel, clipChannel, wFTS, wText, wCLIP, fusedLimit)

	ids := make([]int64, len(fused))
	for i, f := range fused {
		ids[i] = f.ClipID
	}
	return e.Store.HydrateClips(ctx, ids)
}

// filterAllowedKeys drops any key not present in allowed (when allowed is
// non-nil), since the HNSW index itself has no notion of the folder
// filter.
func filterAllowedKeys(keys []hnsw.Key, distances []float32, allowed map[int64]bool) ([]hnsw.Key, []float32) {
	if allowed == nil {
		return keys, distances
	}
	outKeys := make([]hnsw.Key, 0, len(keys))
	outDist := make([]float32, 0, len(keys))
	for i, k := range keys {
		if allowed[hnsw.KeyToClipID(k)] {
			outKeys = append(outKeys, k)
			outDist = append(outDist, distances[i])
		}
	}
	return outKeys, outDist
}
