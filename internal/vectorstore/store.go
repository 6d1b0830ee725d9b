package vectorstore

import (
	"sort"
	"sync"
)

// Entry is a single (clip, raw BLOB) pair as read from a clip_vectors /
// clips.embedding column, not yet decoded into floats.
type Entry struct {
	ClipID int64
	Raw    []byte
}

// Result is one search hit.
type Result struct {
	ClipID     int64
	Similarity float32
}

// Store holds every embedding for one (dimensions, model_name) pair as
// three parallel arrays: a flattened vectors slice, the clip ID owning
// each D-wide slice, and each vector's precomputed norm. load/append/remove
// are exclusive; search takes a shared read lock over the whole structure.
type Store struct {
	dimensions int
	modelName  string

	mu      sync.RWMutex
	vectors []float32
	clipIDs []int64
	norms   []float32
	index   map[int64]int // clip_id -> position in the parallel arrays
}

// New creates an empty store for the given dimensionality and model name.
func New(dimensions int, modelName string) *Store {
	return &Store{
		dimensions: dimensions,
		modelName:  modelName,
		index:      make(map[int64]int),
	}
}

// Dimensions returns the vector width this store was configured for.
func (s *Store) Dimensions() int { return s.dimensions }

// ModelName returns the embedding model this store's vectors were produced by.
func (s *Store) ModelName() string { return s.modelName }

// Len reports how many vectors are currently loaded.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clipIDs)
}

// Load replaces the entire store's contents from raw (clip_id, bytes)
// pairs, as read in bulk from the database. Entries whose decoded length
// doesn't match the configured dimensionality, or whose vector norm is
// zero, are silently skipped — they can't contribute a meaningful cosine
// similarity.
func (s *Store) Load(entries []Entry) {
	vectors := make([]float32, 0, len(entries)*s.dimensions)
	clipIDs := make([]int64, 0, len(entries))
	norms := make([]float32, 0, len(entries))
	index := make(map[int64]int, len(entries))

	for _, e := range entries {
		vec := decodeVector(e.Raw)
		if len(vec) != s.dimensions {
			continue
		}
		n := norm(vec)
		if n == 0 {
			continue
		}
		index[e.ClipID] = len(clipIDs)
		clipIDs = append(clipIDs, e.ClipID)
		norms = append(norms, n)
		vectors = append(vectors, vec...)
	}

	s.mu.Lock()
	s.vectors = vectors
	s.clipIDs = clipIDs
	s.norms = norms
	s.index = index
	s.mu.Unlock()
}

// Append upserts one clip's vector: if the clip is already present its
// slot is overwritten in place, otherwise a new slot is appended.
func (s *Store) Append(clipID int64, vec []float32) error {
	if len(vec) != s.dimensions {
		return DimensionMismatchError{Want: s.dimensions, Got: len(vec)}
	}
	n := norm(vec)

	s.mu.Lock()
	defer s.mu.Unlock()

	if pos, ok := s.index[clipID]; ok {
		copy(s.vectors[pos*s.dimensions:(pos+1)*s.dimensions], vec)
		s.norms[pos] = n
		return nil
	}

	pos := len(s.clipIDs)
	s.index[clipID] = pos
	s.clipIDs = append(s.clipIDs, clipID)
	s.norms = append(s.norms, n)
	s.vectors = append(s.vectors, vec...)
	return nil
}

// Remove drops a clip's vector, if present. It swaps the last slot into
// the removed position to keep the arrays contiguous.
func (s *Store) Remove(clipID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[clipID]
	if !ok {
		return
	}
	last := len(s.clipIDs) - 1
	d := s.dimensions

	if pos != last {
		copy(s.vectors[pos*d:(pos+1)*d], s.vectors[last*d:(last+1)*d])
		s.norms[pos] = s.norms[last]
		s.clipIDs[pos] = s.clipIDs[last]
		s.index[s.clipIDs[pos]] = pos
	}

	s.vectors = s.vectors[:last*d]
	s.clipIDs = s.clipIDs[:last]
	s.norms = s.norms[:last]
	delete(s.index, clipID)
}

// Search runs a single matrix-vector cosine similarity pass against every
// loaded vector (or, when allowed is non-nil, only the clip IDs it
// contains), sorts descending by similarity with ties broken by the
// smaller clip ID, and truncates to limit.
func (s *Store) Search(query []float32, limit int, allowed map[int64]bool) []Result {
	if len(query) != s.dimensions {
		return nil
	}
	qNorm := norm(query)
	if qNorm == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	d := s.dimensions
	results := make([]Result, 0, len(s.clipIDs))
	for pos, clipID := range s.clipIDs {
		if allowed != nil && !allowed[clipID] {
			continue
		}
		if s.norms[pos] == 0 {
			continue
		}
		var dot float32
		base := pos * d
		for i := 0; i < d; i++ {
			dot += s.vectors[base+i] * query[i]
		}
		results = append(results, Result{
			ClipID:     clipID,
			Similarity: dot / (qNorm * s.norms[pos]),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ClipID < results[j].ClipID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
