package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/newsmood/internal/models"
)

func TestSentimentAnalyzer_AnalyzeText_BlankSkipsClassifier(t *testing.T) {
	clf := &mockClassifier{respond: fixedSentiment("POSITIVE", 0.9)}
	analyzer := NewSentimentAnalyzer(clf)

	for _, text := range []string{"", "   ", "\n\t"} {
		result, err := analyzer.AnalyzeText(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, models.SentimentResult{Label: "NEUTRAL", Score: 0}, result)
	}
	assert.Empty(t, clf.calls)
}

func TestSentimentAnalyzer_AnalyzeText_Truncates(t *testing.T) {
	clf := &mockClassifier{respond: fixedSentiment("POSITIVE", 0.9)}
	analyzer := NewSentimentAnalyzer(clf)

	long := strings.Repeat("é", 600)
	_, err := analyzer.AnalyzeText(context.Background(), long)

	require.NoError(t, err)
	require.Len(t, clf.calls, 1)
	assert.Equal(t, strings.Repeat("é", MaxTextLength), clf.calls[0])
}

func TestSentimentAnalyzer_AnalyzeText_ShortTextUntouched(t *testing.T) {
	clf := &mockClassifier{respond: fixedSentiment("POSITIVE", 0.9)}
	analyzer := NewSentimentAnalyzer(clf)

	_, err := analyzer.AnalyzeText(context.Background(), "  Great news  ")

	require.NoError(t, err)
	assert.Equal(t, []string{"  Great news  "}, clf.calls)
}

func TestSentimentAnalyzer_AnalyzeText_RoundsAndNormalizesLabel(t *testing.T) {
	clf := &mockClassifier{respond: fixedSentiment("positive", 0.987654)}
	analyzer := NewSentimentAnalyzer(clf)

	result, err := analyzer.AnalyzeText(context.Background(), "peace talks resume")

	require.NoError(t, err)
	assert.Equal(t, models.SentimentResult{Label: "POSITIVE", Score: 0.9877}, result)
}

func TestSentimentAnalyzer_AnalyzeText_ClassifierFailure(t *testing.T) {
	clf := &mockClassifier{respond: func(string) ([]models.Prediction, error) {
		return nil, errors.New("connection refused")
	}}
	analyzer := NewSentimentAnalyzer(clf)

	result, err := analyzer.AnalyzeText(context.Background(), "markets tumble")

	assert.Equal(t, models.ErrorSentiment(), result)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClassifierUnavailable)

	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, KindUnavailable, aerr.Kind)
}

func TestSentimentAnalyzer_AnalyzeText_ErrorKinds(t *testing.T) {
	tests := []struct {
		name    string
		respond func(string) ([]models.Prediction, error)
		kind    ErrorKind
		target  error
	}{
		{
			name:    "no predictions",
			respond: func(string) ([]models.Prediction, error) { return nil, nil },
			kind:    KindMalformedOutput,
			target:  ErrMalformedOutput,
		},
		{
			name:    "score out of range",
			respond: fixedSentiment("POSITIVE", 1.7),
			kind:    KindMalformedOutput,
			target:  ErrMalformedOutput,
		},
		{
			name: "input rejected",
			respond: func(string) ([]models.Prediction, error) {
				return nil, fmt.Errorf("status 413: %w", ErrInputRejected)
			},
			kind:   KindInputRejected,
			target: ErrInputRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := NewSentimentAnalyzer(&mockClassifier{respond: tt.respond})

			result, err := analyzer.AnalyzeText(context.Background(), "some text")

			assert.Equal(t, models.ErrorSentiment(), result)
			assert.ErrorIs(t, err, tt.target)
			var aerr *Error
			require.ErrorAs(t, err, &aerr)
			assert.Equal(t, tt.kind, aerr.Kind)
		})
	}
}

func TestSentimentAnalyzer_AnalyzeText_Idempotent(t *testing.T) {
	analyzer := NewSentimentAnalyzer(&mockClassifier{respond: keywordSentiment})

	first, err := analyzer.AnalyzeText(context.Background(), "a bad day for diplomacy")
	require.NoError(t, err)
	second, err := analyzer.AnalyzeText(context.Background(), "a bad day for diplomacy")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSentimentAnalyzer_AnalyzeArticles_SkipsEmptyField(t *testing.T) {
	clf := &mockClassifier{respond: fixedSentiment("POSITIVE", 0.95)}
	analyzer := NewSentimentAnalyzer(clf)

	in := []models.AnnotatedArticle{article(map[string]any{
		"title":       "Great news for peace talks",
		"description": "",
	})}

	out, err := analyzer.AnalyzeArticles(context.Background(), in)

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, []string{"Great news for peace talks"}, clf.calls)

	sa := out[0].Sentiment
	require.NotNil(t, sa)
	require.NotNil(t, sa.Fields)
	_, hasDescription := sa.Fields.Get("description")
	assert.False(t, hasDescription)
	require.NotNil(t, sa.Overall)
	assert.Equal(t, models.SentimentResult{Label: "POSITIVE", Score: 0.95}, *sa.Overall)
}

func TestSentimentAnalyzer_AnalyzeArticles_NoFieldsNoOverall(t *testing.T) {
	clf := &mockClassifier{respond: fixedSentiment("POSITIVE", 0.95)}
	analyzer := NewSentimentAnalyzer(clf)

	in := []models.AnnotatedArticle{article(map[string]any{"url": "https://example.com/a", "title": 42})}

	out, err := analyzer.AnalyzeArticles(context.Background(), in)

	require.NoError(t, err)
	require.NotNil(t, out[0].Sentiment)
	assert.Equal(t, 0, out[0].Sentiment.Fields.Len())
	assert.Nil(t, out[0].Sentiment.Overall)
	assert.Empty(t, clf.calls)
}

func TestSentimentAnalyzer_AnalyzeArticles_DoesNotMutateInput(t *testing.T) {
	analyzer := NewSentimentAnalyzer(&mockClassifier{respond: keywordSentiment})

	original := map[string]any{
		"title":       "Ceasefire holds",
		"description": "A bad week ends quietly",
		"source":      "Reuters",
	}
	in := []models.AnnotatedArticle{article(original)}

	out, err := analyzer.AnalyzeArticles(context.Background(), in)
	require.NoError(t, err)

	assert.Nil(t, in[0].Sentiment)
	assert.Len(t, original, 3)
	assert.Equal(t, "Reuters", out[0].Article["source"])

	out[0].Article["source"] = "changed"
	assert.Equal(t, "Reuters", original["source"])
}

func TestSentimentAnalyzer_AnalyzeArticles_OverallMean(t *testing.T) {
	scores := map[string]float64{"t": 0.9, "d": 0.6, "c": 0.75}
	clf := &mockClassifier{respond: func(text string) ([]models.Prediction, error) {
		return []models.Prediction{{Label: "POSITIVE", Score: scores[text]}}, nil
	}}
	analyzer := NewSentimentAnalyzer(clf)

	in := []models.AnnotatedArticle{article(map[string]any{"title": "t", "description": "d", "content": "c"})}

	out, err := analyzer.AnalyzeArticles(context.Background(), in, "title", "description", "content")

	require.NoError(t, err)
	require.NotNil(t, out[0].Sentiment.Overall)
	assert.InDelta(t, 0.75, out[0].Sentiment.Overall.Score, 1e-9)
	assert.Equal(t, []models.SentimentResult{
		{Label: "POSITIVE", Score: 0.9},
		{Label: "POSITIVE", Score: 0.6},
		{Label: "POSITIVE", Score: 0.75},
	}, out[0].Sentiment.Results())
}

func TestSentimentAnalyzer_AnalyzeArticles_FailureKeepsGoing(t *testing.T) {
	clf := &mockClassifier{respond: func(text string) ([]models.Prediction, error) {
		if text == "boom" {
			return nil, errors.New("model crashed")
		}
		return []models.Prediction{{Label: "NEGATIVE", Score: 0.8}}, nil
	}}
	analyzer := NewSentimentAnalyzer(clf)

	in := []models.AnnotatedArticle{
		article(map[string]any{"title": "boom", "description": "fine"}),
		article(map[string]any{"title": "fine"}),
	}

	out, err := analyzer.AnalyzeArticles(context.Background(), in)

	require.NoError(t, err)
	require.Len(t, out, 2)
	title, _ := out[0].Sentiment.Fields.Get("title")
	assert.Equal(t, models.ErrorSentiment(), title)
	// NEGATIVE and ERROR tie; NEGATIVE wins on priority.
	assert.Equal(t, models.SentimentResult{Label: "NEGATIVE", Score: 0.4}, *out[0].Sentiment.Overall)
	assert.Equal(t, "NEGATIVE", out[1].Sentiment.Overall.Label)
}

func TestSentimentAnalyzer_AnalyzeArticles_DuplicateAndReservedFields(t *testing.T) {
	clf := &mockClassifier{respond: fixedSentiment("POSITIVE", 0.9)}
	analyzer := NewSentimentAnalyzer(clf)

	in := []models.AnnotatedArticle{article(map[string]any{"title": "x", "overall": "y"})}

	out, err := analyzer.AnalyzeArticles(context.Background(), in, "title", "title", "overall")

	require.NoError(t, err)
	assert.Len(t, clf.calls, 1)
	assert.Equal(t, 1, out[0].Sentiment.Fields.Len())
}

func TestSentimentAnalyzer_AnalyzeArticles_CanceledContext(t *testing.T) {
	analyzer := NewSentimentAnalyzer(&mockClassifier{respond: keywordSentiment})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := analyzer.AnalyzeArticles(ctx, []models.AnnotatedArticle{article(map[string]any{"title": "x"})})

	assert.Nil(t, out)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSentimentAnalyzer_AnalyzeBatch_ChunkFailureIsolated(t *testing.T) {
	clf := &mockBatchClassifier{}
	clf.respondBatch = func(texts []string) ([][]models.Prediction, error) {
		if len(clf.batches) == 2 {
			return nil, errors.New("out of memory")
		}
		out := make([][]models.Prediction, len(texts))
		for i, text := range texts {
			out[i], _ = keywordSentiment(text)
		}
		return out, nil
	}
	analyzer := NewSentimentAnalyzer(clf, WithBatchSize(4))

	texts := make([]string, 10)
	for i := range texts {
		texts[i] = fmt.Sprintf("headline number %d", i)
	}

	results, err := analyzer.AnalyzeBatch(context.Background(), texts)

	require.NoError(t, err)
	require.Len(t, results, 10)
	assert.Len(t, clf.batches, 3)
	for i, r := range results {
		if i >= 4 && i < 8 {
			assert.Equal(t, models.ErrorSentiment(), r, "text %d", i)
			continue
		}
		assert.Equal(t, "POSITIVE", r.Label, "text %d", i)
	}
	assert.Empty(t, clf.calls)
}

func TestSentimentAnalyzer_AnalyzeBatch_ChunkBoundariesDoNotMatter(t *testing.T) {
	texts := []string{"good", "", "bad news", "   ", "calm", "bad", "ok then", "more", "last one"}

	var want []models.SentimentResult
	for _, size := range []int{1, 3, 8, 20} {
		analyzer := NewSentimentAnalyzer(&mockClassifier{respond: keywordSentiment}, WithBatchSize(size))
		got, err := analyzer.AnalyzeBatch(context.Background(), texts)
		require.NoError(t, err)
		if want == nil {
			want = got
			continue
		}
		assert.Equal(t, want, got, "batch size %d", size)
	}

	assert.Equal(t, models.NeutralSentiment(), want[1])
	assert.Equal(t, models.NeutralSentiment(), want[3])
	assert.Equal(t, "NEGATIVE", want[2].Label)
}

func TestSentimentAnalyzer_AnalyzeBatch_MismatchedBatchOutput(t *testing.T) {
	clf := &mockBatchClassifier{}
	clf.respondBatch = func(texts []string) ([][]models.Prediction, error) {
		return [][]models.Prediction{{{Label: "POSITIVE", Score: 0.9}}}, nil
	}
	analyzer := NewSentimentAnalyzer(clf, WithBatchSize(8))

	results, err := analyzer.AnalyzeBatch(context.Background(), []string{"one", "two"})

	require.NoError(t, err)
	assert.Equal(t, []models.SentimentResult{models.ErrorSentiment(), models.ErrorSentiment()}, results)
}
