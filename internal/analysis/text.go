package analysis

import (
	"math"
	"strings"
)

const (
	// MaxTextLength is the number of characters handed to a model. Models
	// limit input by tokens; characters are a deliberate approximation.
	MaxTextLength = 512

	// DefaultBatchSize is the chunk size used by SentimentAnalyzer.AnalyzeBatch.
	DefaultBatchSize = 8
)

// DefaultFields are the article fields analysed when none are requested.
var DefaultFields = []string{"title", "description"}

const reservedField = "overall"

func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// truncate keeps the first n characters (runes) of text.
func truncate(text string, n int) string {
	if n <= 0 {
		return text
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func validScore(score float64) bool {
	return !math.IsNaN(score) && score >= 0 && score <= 1
}

// normalizeFields drops duplicates and the reserved "overall" key while
// keeping the requested order.
func normalizeFields(fields []string) []string {
	if len(fields) == 0 {
		return DefaultFields
	}
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" || f == reservedField {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	if len(out) == 0 {
		return DefaultFields
	}
	return out
}
