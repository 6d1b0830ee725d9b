package query

import (
	"sort"
	"strings"
)

// channelScore is one channel's raw contribution for one clip: higher is
// always better, so the FTS channel's bm25 rank (where lower is better)
// is negated before it ever reaches fuse.
type channelScore struct {
	clipID int64
	score  float64
}

// normalizeMinMax rescales scores to [0,1]. A channel with zero spread
// (every score identical, including the empty case) contributes a flat
// 1.0 to every clip it covers rather than dividing by zero.
func normalizeMinMax(scores []channelScore) map[int64]float64 {
	out := make(map[int64]float64, len(scores))
	if len(scores) == 0 {
		return out
	}
	min, max := scores[0].score, scores[0].score
	for _, s := range scores[1:] {
		if s.score < min {
			min = s.score
		}
		if s.score > max {
			max = s.score
		}
	}
	spread := max - min
	for _, s := range scores {
		if spread == 0 {
			out[s.clipID] = 1
			continue
		}
		out[s.clipID] = (s.score - min) / spread
	}
	return out
}

// Weights picks the fusion weights for FTS, text-embedding, and CLIP
// channels based on the query's shape: short queries lean on FTS'
// precision, queries naming visual qualities lean on CLIP, and longer
// natural-language queries lean on the dense text embedding.
func Weights(parsed ParsedQuery) (wFTS, wText, wCLIP float64) {
	words := strings.Fields(parsed.PositiveText)
	switch {
	case len(words) <= 2:
		return 0.6, 0.2, 0.2
	case looksVisual(parsed.PositiveText):
		return 0.2, 0.2, 0.6
	default:
		return 0.2, 0.5, 0.3
	}
}

// visualTerms is a small, intentionally non-exhaustive set of
// visually-descriptive words that bias fusion toward the CLIP channel —
// a query like "red car at night" is much more a visual-similarity
// question than a textual one.
var visualTerms = map[string]bool{
	"red": true, "blue": true, "green": true, "yellow": true, "black": true,
	"white": true, "bright": true, "dark": true, "colorful": true,
	"outdoor": true, "indoor": true, "wearing": true, "night": true, "day": true,
}

func looksVisual(text string) bool {
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if visualTerms[w] {
			return true
		}
	}
	return false
}

// FusedResult is one clip's combined hybrid-search score.
type FusedResult struct {
	ClipID  int64
	Score   float64
	FTSRank float64 // raw bm25 rank (lower is better), for tie-breaking
}

// Fuse combines the three channels' hits into one ranked, deduplicated
// result set: each channel is min-max normalized independently, weighted,
// summed, sorted descending by combined score with ties broken first by
// the raw FTS rank (ascending) and then by clip_id (ascending), and
// truncated to limit.
func Fuse(fts, textEmbed, clip []channelScore, wFTS, wText, wCLIP float64, limit int) []FusedResult {
	ftsNorm := normalizeMinMax(fts)
	textNorm := normalizeMinMax(textEmbed)
	clipNorm := normalizeMinMax(clip)

	ftsRank := make(map[int64]float64, len(fts))
	for _, s := range fts {
		ftsRank[s.clipID] = -s.score
	}

	combined := make(map[int64]float64)
	seen := make(map[int64]bool)
	for id, v := range ftsNorm {
		combined[id] += wFTS * v
		seen[id] = true
	}
	for id, v := range textNorm {
		combined[id] += wText * v
		seen[id] = true
	}
	for id, v := range clipNorm {
		combined[id] += wCLIP * v
		seen[id] = true
	}

	results := make([]FusedResult, 0, len(combined))
	for id := range seen {
		rank, hasFTS := ftsRank[id]
		if !hasFTS {
			rank = 0 // no FTS signal: neutral tie-break weight
		}
		results = append(results, FusedResult{ClipID: id, Score: combined[id], FTSRank: rank})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].FTSRank != results[j].FTSRank {
			return results[i].FTSRank < results[j].FTSRank
		}
		return results[i].ClipID < results[j].ClipID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
