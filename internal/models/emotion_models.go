package models

import (
	"encoding/json"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type Emotion string

const (
	Anger    Emotion = "anger"
	Disgust  Emotion = "disgust"
	Fear     Emotion = "fear"
	Joy      Emotion = "joy"
	Neutral  Emotion = "neutral"
	Sadness  Emotion = "sadness"
	Surprise Emotion = "surprise"
)

// Emotions is the fixed category set in enumeration order. Ties between
// categories are always broken by this order.
var Emotions = []Emotion{Anger, Disgust, Fear, Joy, Neutral, Sadness, Surprise}

// ParseEmotion maps a classifier label onto one of the fixed categories.
func ParseEmotion(label string) (Emotion, bool) {
	e := Emotion(strings.ToLower(strings.TrimSpace(label)))
	return e, e.Index() >= 0
}

// Index is the position of e in Emotions, or -1 for an unknown category.
func (e Emotion) Index() int {
	for i, known := range Emotions {
		if e == known {
			return i
		}
	}
	return -1
}

// EmotionScores maps categories to confidence scores. A category may be
// missing when the classifier did not report it.
type EmotionScores map[Emotion]float64

// ZeroEmotionScores is the placeholder for blank text and classifier
// failures: every category present with score 0.
func ZeroEmotionScores() EmotionScores {
	scores := make(EmotionScores, len(Emotions))
	for _, e := range Emotions {
		scores[e] = 0.0
	}
	return scores
}

// EmotionOverall is the per-article verdict: the per-category means plus the
// dominant category.
type EmotionOverall struct {
	Scores          EmotionScores
	DominantEmotion Emotion
	DominantScore   float64
}

func (o EmotionOverall) MarshalJSON() ([]byte, error) {
	out := orderedmap.New[string, any]()
	for _, e := range Emotions {
		if v, ok := o.Scores[e]; ok {
			out.Set(string(e), v)
		}
	}
	if o.DominantEmotion != "" {
		out.Set("dominant_emotion", string(o.DominantEmotion))
		out.Set("dominant_score", o.DominantScore)
	}
	return out.MarshalJSON()
}

func (o *EmotionOverall) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*o = EmotionOverall{Scores: EmotionScores{}}
	for k, v := range raw {
		switch k {
		case "dominant_emotion":
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("decode dominant_emotion: %w", err)
			}
			o.DominantEmotion = Emotion(s)
		case "dominant_score":
			if err := json.Unmarshal(v, &o.DominantScore); err != nil {
				return fmt.Errorf("decode dominant_score: %w", err)
			}
		default:
			e, ok := ParseEmotion(k)
			if !ok {
				continue
			}
			var score float64
			if err := json.Unmarshal(v, &score); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			o.Scores[e] = score
		}
	}
	return nil
}

// EmotionAnalysis holds the per-field emotion scores of one article and the
// overall verdict (nil when no field was analysed).
type EmotionAnalysis struct {
	Fields  *orderedmap.OrderedMap[string, EmotionScores]
	Overall *EmotionOverall
}

func NewEmotionAnalysis() *EmotionAnalysis {
	return &EmotionAnalysis{Fields: orderedmap.New[string, EmotionScores]()}
}

func (e *EmotionAnalysis) Results() []EmotionScores {
	if e == nil || e.Fields == nil {
		return nil
	}
	out := make([]EmotionScores, 0, e.Fields.Len())
	for pair := e.Fields.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

func (e EmotionAnalysis) MarshalJSON() ([]byte, error) {
	out := orderedmap.New[string, any]()
	if e.Fields != nil {
		for pair := e.Fields.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, pair.Value)
		}
	}
	if e.Overall != nil {
		out.Set(overallKey, *e.Overall)
	}
	return out.MarshalJSON()
}

func (e *EmotionAnalysis) UnmarshalJSON(data []byte) error {
	in := orderedmap.New[string, json.RawMessage]()
	if err := in.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("decode emotion analysis: %w", err)
	}

	*e = *NewEmotionAnalysis()
	for pair := in.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key == overallKey {
			var overall EmotionOverall
			if err := json.Unmarshal(pair.Value, &overall); err != nil {
				return err
			}
			e.Overall = &overall
			continue
		}
		var scores EmotionScores
		if err := json.Unmarshal(pair.Value, &scores); err != nil {
			return fmt.Errorf("decode %s: %w", pair.Key, err)
		}
		e.Fields.Set(pair.Key, scores)
	}
	return nil
}

// EmotionStats summarises dominant emotions across a corpus.
// DominantEmotionCounts and EmotionDistribution are ordered by descending
// count, ties in category order.
type EmotionStats struct {
	TotalAnalyzed         int                                     `json:"total_analyzed"`
	AverageEmotions       EmotionScores                           `json:"average_emotions"`
	DominantEmotionCounts *orderedmap.OrderedMap[string, int]     `json:"dominant_emotion_counts"`
	MostCommonEmotion     *Emotion                                `json:"most_common_emotion"`
	EmotionDistribution   *orderedmap.OrderedMap[string, float64] `json:"emotion_distribution"`
}
