// Package sentiment holds the lexicon-based VADER classifier, used when no
// transformer model is available.
package sentiment

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"

	"github.com/spacesedan/newsmood/internal/models"
)

const (
	PositiveThreshold = 0.20
	NegativeThreshold = -0.20
)

var (
	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern  = regexp.MustCompile(`https?://\S+|www\.\S+`)
	tagPattern  = regexp.MustCompile(`<[^>]*>`)
)

func RemoveLinks(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1") // Keep only the text
	return urlPattern.ReplaceAllString(input, "")
}

// ConvertMarkdownToText renders markdown and flattens the result to a single
// line of plain text without links.
func ConvertMarkdownToText(input string) string {
	output := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	plainText := RemoveLinks(tagPattern.ReplaceAllString(string(output), " "))
	return strings.Join(strings.Fields(plainText), " ")
}

// VaderClassifier scores text with the VADER lexicon. It never fails and is
// safe for concurrent use.
type VaderClassifier struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVaderClassifier() *VaderClassifier {
	return &VaderClassifier{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Classify maps the compound score to POSITIVE, NEGATIVE or NEUTRAL. The
// score is the compound magnitude for polar labels and its complement for
// NEUTRAL.
func (v *VaderClassifier) Classify(ctx context.Context, text string) ([]models.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	compound := v.Compound(text)
	return []models.Prediction{{Label: Label(compound), Score: confidence(compound)}}, nil
}

func (v *VaderClassifier) Compound(text string) float64 {
	return v.analyzer.PolarityScores(ConvertMarkdownToText(text)).Compound
}

func Label(compound float64) string {
	switch {
	case compound >= PositiveThreshold:
		return models.LabelPositive
	case compound <= NegativeThreshold:
		return models.LabelNegative
	default:
		return models.LabelNeutral
	}
}

func confidence(compound float64) float64 {
	magnitude := math.Min(math.Abs(compound), 1)
	if Label(compound) == models.LabelNeutral {
		return 1 - magnitude
	}
	return magnitude
}
