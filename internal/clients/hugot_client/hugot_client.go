package hugot_client

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelineBackends"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/spacesedan/newsmood/internal/analysis"
	"github.com/spacesedan/newsmood/internal/models"
)

type HugotOptions struct {
	// Model is a Hugging Face model id with an ONNX export.
	Model    string
	ModelDir string
	// MultiLabel returns a score for every label instead of only the top
	// one. Scores stay a softmax distribution either way.
	MultiLabel bool
}

// HugotClient runs a text-classification model in process.
type HugotClient struct {
	mu       sync.Mutex
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
}

// NewHugotClient loads the model from ModelDir, downloading it first if it is
// not there yet.
func NewHugotClient(opts HugotOptions) (*HugotClient, error) {
	if err := os.MkdirAll(opts.ModelDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("[HugotClient] create model directory: %w", err)
	}

	modelPath := localModelPath(opts.ModelDir, opts.Model)
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		slog.Info("[HugotClient] Model not found, downloading...", slog.String("model", opts.Model))
		modelPath, err = hugot.DownloadModel(opts.Model, opts.ModelDir, hugot.NewDownloadOptions())
		if err != nil {
			return nil, fmt.Errorf("[HugotClient] download %s: %w", opts.Model, err)
		}
		slog.Info("[HugotClient] Model downloaded successfully", slog.String("path", modelPath))
	} else {
		slog.Info("[HugotClient] Using existing model", slog.String("path", modelPath))
	}

	session, err := hugot.NewORTSession()
	if err != nil {
		return nil, fmt.Errorf("[HugotClient] initialize session: %w", err)
	}

	config := hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      pipelineName(opts.Model),
		Options:   pipelineOptions(opts.MultiLabel),
	}

	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		_ = session.Destroy()
		return nil, fmt.Errorf("[HugotClient] initialize pipeline: %w", err)
	}

	return &HugotClient{session: session, pipeline: pipeline}, nil
}

func (h *HugotClient) Classify(ctx context.Context, text string) ([]models.Prediction, error) {
	out, err := h.ClassifyBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (h *HugotClient) ClassifyBatch(ctx context.Context, texts []string) ([][]models.Prediction, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	output, err := h.pipeline.RunPipeline(texts)
	h.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("[HugotClient] %w: %w", analysis.ErrClassifierUnavailable, err)
	}
	return toPredictions(output.ClassificationOutputs, len(texts))
}

func (h *HugotClient) Close() error {
	if h.session == nil {
		return nil
	}
	return h.session.Destroy()
}

func toPredictions(outputs [][]pipelines.ClassificationOutput, want int) ([][]models.Prediction, error) {
	if len(outputs) != want {
		return nil, fmt.Errorf("[HugotClient] %w: got %d results for %d inputs", analysis.ErrMalformedOutput, len(outputs), want)
	}
	out := make([][]models.Prediction, len(outputs))
	for i, labels := range outputs {
		out[i] = make([]models.Prediction, 0, len(labels))
		for _, l := range labels {
			out[i] = append(out[i], models.Prediction{Label: l.Label, Score: float64(l.Score)})
		}
	}
	return out, nil
}

// pipelineOptions always sets softmax: hugot falls back to sigmoid for
// multi-label pipelines, which would stop the emotion scores summing to 1.
func pipelineOptions(multiLabel bool) []pipelineBackends.PipelineOption[*pipelines.TextClassificationPipeline] {
	opts := []pipelineBackends.PipelineOption[*pipelines.TextClassificationPipeline]{pipelines.WithSoftmax()}
	if multiLabel {
		return append(opts, pipelines.WithMultiLabel())
	}
	return append(opts, pipelines.WithSingleLabel())
}

// localModelPath mirrors where hugot.DownloadModel stores a model.
func localModelPath(dir, model string) string {
	return filepath.Join(dir, strings.ReplaceAll(model, "/", "_"))
}

func pipelineName(model string) string {
	return "newsmood-" + strings.ReplaceAll(model, "/", "-")
}
