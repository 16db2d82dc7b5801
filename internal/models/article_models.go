package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

const (
	SentimentAnalysisKey = "sentiment_analysis"
	EmotionAnalysisKey   = "emotion_analysis"
)

// Article is a single news record. Text fields are looked up by name, every
// other key (source, author, timestamps, url...) is opaque metadata that is
// carried through unchanged.
type Article map[string]any

// Text returns the string value stored under field, or "" when the field is
// missing or not a string.
func (a Article) Text(field string) string {
	if a == nil {
		return ""
	}
	s, ok := a[field].(string)
	if !ok {
		return ""
	}
	return s
}

// String returns the string value for field or fallback when it is missing
// or empty.
func (a Article) String(field, fallback string) string {
	if s := a.Text(field); s != "" {
		return s
	}
	return fallback
}

func (a Article) Clone() Article {
	if a == nil {
		return Article{}
	}
	return maps.Clone(a)
}

// AnnotatedArticle is a copy of an input article plus the annotations added
// by the analyzers. The annotations are serialised next to the article's own
// keys.
type AnnotatedArticle struct {
	Article   Article
	Sentiment *SentimentAnalysis
	Emotion   *EmotionAnalysis
}

// Clone returns a copy whose Article map does not alias the receiver's.
// Annotations are never modified after construction and are shared.
func (a AnnotatedArticle) Clone() AnnotatedArticle {
	return AnnotatedArticle{
		Article:   a.Article.Clone(),
		Sentiment: a.Sentiment,
		Emotion:   a.Emotion,
	}
}

func (a AnnotatedArticle) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.Article)+2)
	for k, v := range a.Article {
		if k == SentimentAnalysisKey || k == EmotionAnalysisKey {
			continue
		}
		out[k] = v
	}
	if a.Sentiment != nil {
		out[SentimentAnalysisKey] = a.Sentiment
	}
	if a.Emotion != nil {
		out[EmotionAnalysisKey] = a.Emotion
	}
	return marshalJSON(out)
}

func (a *AnnotatedArticle) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	article := make(Article, len(raw))
	*a = AnnotatedArticle{}
	for k, v := range raw {
		switch k {
		case SentimentAnalysisKey:
			var sa SentimentAnalysis
			if err := json.Unmarshal(v, &sa); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			a.Sentiment = &sa
		case EmotionAnalysisKey:
			var ea EmotionAnalysis
			if err := json.Unmarshal(v, &ea); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			a.Emotion = &ea
		default:
			dec := json.NewDecoder(bytes.NewReader(v))
			dec.UseNumber()
			var value any
			if err := dec.Decode(&value); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			article[k] = value
		}
	}
	a.Article = article
	return nil
}

// Annotate wraps plain articles so they can be fed to the analyzers.
func Annotate(articles []Article) []AnnotatedArticle {
	out := make([]AnnotatedArticle, len(articles))
	for i, article := range articles {
		out[i] = AnnotatedArticle{Article: article}
	}
	return out
}

// marshalJSON encodes v without HTML escaping so article text is written
// verbatim.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
