package models

import (
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	LabelPositive = "POSITIVE"
	LabelNegative = "NEGATIVE"
	LabelNeutral  = "NEUTRAL"
	LabelError    = "ERROR"
)

const overallKey = "overall"

type SentimentResult struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// NeutralSentiment is the placeholder stored for blank text.
func NeutralSentiment() SentimentResult {
	return SentimentResult{Label: LabelNeutral, Score: 0.0}
}

// ErrorSentiment is the sentinel stored when the classifier fails.
func ErrorSentiment() SentimentResult {
	return SentimentResult{Label: LabelError, Score: 0.0}
}

// SentimentAnalysis holds the per-field results of one article in the order
// the fields were analysed, plus the overall verdict. Overall is nil when no
// field was analysed.
type SentimentAnalysis struct {
	Fields  *orderedmap.OrderedMap[string, SentimentResult]
	Overall *SentimentResult
}

func NewSentimentAnalysis() *SentimentAnalysis {
	return &SentimentAnalysis{Fields: orderedmap.New[string, SentimentResult]()}
}

// Results returns the per-field results in field order.
func (s *SentimentAnalysis) Results() []SentimentResult {
	if s == nil || s.Fields == nil {
		return nil
	}
	out := make([]SentimentResult, 0, s.Fields.Len())
	for pair := s.Fields.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

func (s SentimentAnalysis) MarshalJSON() ([]byte, error) {
	out := orderedmap.New[string, SentimentResult]()
	if s.Fields != nil {
		for pair := s.Fields.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, pair.Value)
		}
	}
	if s.Overall != nil {
		out.Set(overallKey, *s.Overall)
	}
	return out.MarshalJSON()
}

func (s *SentimentAnalysis) UnmarshalJSON(data []byte) error {
	in := orderedmap.New[string, SentimentResult]()
	if err := in.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("decode sentiment analysis: %w", err)
	}

	*s = *NewSentimentAnalysis()
	for pair := in.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key == overallKey {
			overall := pair.Value
			s.Overall = &overall
			continue
		}
		s.Fields.Set(pair.Key, pair.Value)
	}
	return nil
}

// SentimentStats summarises the overall sentiment of a corpus. The neutral
// bucket is everything that is neither POSITIVE nor NEGATIVE, so ERROR
// verdicts are counted as neutral.
type SentimentStats struct {
	TotalAnalyzed     int     `json:"total_analyzed"`
	Positive          int     `json:"positive"`
	Negative          int     `json:"negative"`
	Neutral           int     `json:"neutral"`
	PositivePercent   float64 `json:"positive_percent"`
	NegativePercent   float64 `json:"negative_percent"`
	NeutralPercent    float64 `json:"neutral_percent"`
	AverageConfidence float64 `json:"average_confidence"`
}

var _ json.Marshaler = SentimentAnalysis{}
