package ingestion_engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/somshekargr/studybuddy/internal/core"
	"github.com/somshekargr/studybuddy/internal/models"
)

const tripletPrompt = `Extract key knowledge relationships from the following text in JSON format.
Each relationship should be a triplet: (subject, relation, object).

Text: %s

Return a JSON list of objects:
[
    {"subject": "Concept A", "relation": "is part of", "object": "Concept B"},
    ...
]

Only extract meaningful relationships. Use clear, concise names for subjects and objects.`

// wrapperKeys are the object keys models like to wrap the list in when they
// ignore the "return a JSON array" instruction.
var wrapperKeys = []string{"triplets", "relationships", "data"}

// TripletExtractor turns page text into graph facts via a generative call.
// Extraction is strictly best-effort: any model or parse failure yields an
// empty list and a logged warning, never an error.
type TripletExtractor struct {
	model core.LocalModel
}

func NewTripletExtractor(model core.LocalModel) *TripletExtractor {
	return &TripletExtractor{model: model}
}

// Extract returns the triplets found in text, or nil when the model fails or
// returns something unusable.
func (e *TripletExtractor) Extract(ctx context.Context, text string) []models.Triplet {
	raw, err := e.model.Generate(ctx, fmt.Sprintf(tripletPrompt, text), true)
	if err != nil {
		log.Printf("extractor: triplet generation failed: %v", err)
		return nil
	}

	triplets := ParseTriplets(raw)
	if triplets == nil {
		preview := raw
		if len(preview) > 100 {
			preview = preview[:100]
		}
		log.Printf("extractor: model returned invalid JSON for triplets: %s...", preview)
	}
	return triplets
}

// ParseTriplets recovers a triplet list from raw model output. Generative
// output is not guaranteed well-formed, so recovery is layered: strip
// markdown fences, scan for the first bracket-matched JSON array of objects,
// fall back to parsing the whole response, and probe known wrapper keys when
// the model returned an object instead of an array. Returns nil when nothing
// parseable is found.
func ParseTriplets(raw string) []models.Triplet {
	cleaned := stripFences(raw)

	if candidate := firstJSONArray(cleaned); candidate != "" {
		if out := decodeTriplets([]byte(candidate)); out != nil {
			return out
		}
	}

	var direct []models.Triplet
	if err := json.Unmarshal([]byte(cleaned), &direct); err == nil {
		return direct
	}

	// The model may have wrapped the list in an object key.
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &wrapped); err == nil {
		for _, key := range wrapperKeys {
			if inner, ok := wrapped[key]; ok {
				if out := decodeTriplets(inner); out != nil {
					return out
				}
			}
		}
	}

	return nil
}

func decodeTriplets(data []byte) []models.Triplet {
	var out []models.Triplet
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	if out == nil {
		out = []models.Triplet{}
	}
	return out
}

// stripFences removes markdown code fences (```json ... ```) around the body.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// firstJSONArray returns the first bracket-matched `[ ... ]` region that
// looks like an array of objects, or "" when there is none. String literals
// and escapes are respected so brackets inside values do not confuse the
// match.
func firstJSONArray(s string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if start >= 0 {
				inString = true
			}
		case '[':
			if start < 0 {
				start = i
			}
			depth++
		case ']':
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				candidate := s[start : i+1]
				if strings.Contains(candidate, "{") {
					return candidate
				}
				// An array without objects is not a triplet list; keep
				// scanning for a later candidate.
				start = -1
			}
		}
	}
	return ""
}
