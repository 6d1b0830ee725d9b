package pipeline

import (
	"encoding/json"
	"math"
	"strings"
)

// composeClipText builds the text an embedding provider sees for a clip: a
// concatenation of every descriptive field, per invariant I3's requirement
// that embeddings be derived from the clip's full textual surface.
func composeClipText(scene, description string, subjectsJSON, actionsJSON, objectsJSON, transcript, tagsJSON string) string {
	parts := []string{scene, description, transcript}
	parts = append(parts, decodeJSONStrings(subjectsJSON)...)
	parts = append(parts, decodeJSONStrings(actionsJSON)...)
	parts = append(parts, decodeJSONStrings(objectsJSON)...)
	parts = append(parts, decodeJSONStrings(tagsJSON)...)

	nonEmpty := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

func decodeJSONStrings(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

// encodeVector serializes a float32 vector to little-endian bytes for
// storage in a BLOB column, matching invariant I3's len(embedding) = 4 ×
// embedding_dimensions.
func encodeVector(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		bits := math.Float32bits(f)
		out[4*i+0] = byte(bits)
		out[4*i+1] = byte(bits >> 8)
		out[4*i+2] = byte(bits >> 16)
		out[4*i+3] = byte(bits >> 24)
	}
	return out
}
