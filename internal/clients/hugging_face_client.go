package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/spacesedan/newsmood/internal/analysis"
	"github.com/spacesedan/newsmood/internal/models"
)

const HF_INFERENCE_ENDPOINT = "https://router.huggingface.co/hf-inference/models"

type HuggingFaceOptions struct {
	BaseURL string
	Token   string
	Model   string
	// TopK asks the endpoint for the k best labels. 0 leaves it to the model.
	TopK int
	// MaxAttempts bounds DoWithRetry. 1 disables retries.
	MaxAttempts int
	Timeout     time.Duration
	Backoff     time.Duration
}

// HuggingFaceClient calls the hosted text-classification inference endpoint
// of a single model.
type HuggingFaceClient struct {
	Client      *http.Client
	endpoint    string
	token       string
	model       string
	topK        int
	maxAttempts int
	backoff     time.Duration
}

func NewHuggingFaceClient(opts HuggingFaceOptions) *HuggingFaceClient {
	if opts.BaseURL == "" {
		opts.BaseURL = HF_INFERENCE_ENDPOINT
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.MaxAttempts > MAX_RETRIES {
		opts.MaxAttempts = MAX_RETRIES
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = INITIAL_BACKOFF
	}

	slog.Info("[HuggingFaceClient] Initializing Client",
		slog.String("model", opts.Model),
		slog.Duration("timeout", opts.Timeout),
		slog.Int("max_attempts", opts.MaxAttempts))

	return &HuggingFaceClient{
		Client:      &http.Client{Timeout: opts.Timeout},
		endpoint:    opts.BaseURL + "/" + opts.Model,
		token:       opts.Token,
		model:       opts.Model,
		topK:        opts.TopK,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
	}
}

type hfRequest struct {
	Inputs     any           `json:"inputs"`
	Parameters *hfParameters `json:"parameters,omitempty"`
}

type hfParameters struct {
	TopK int `json:"top_k,omitempty"`
}

func (h *HuggingFaceClient) Classify(ctx context.Context, text string) ([]models.Prediction, error) {
	out, err := h.post(ctx, text, 1)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (h *HuggingFaceClient) ClassifyBatch(ctx context.Context, texts []string) ([][]models.Prediction, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return h.post(ctx, texts, len(texts))
}

// DoWithRetry sends the request built by newReq, retrying transport errors,
// 429 and 5xx responses up to maxAttempts with exponential backoff. A fresh
// request is built for every attempt so the body can be replayed.
func (h *HuggingFaceClient) DoWithRetry(ctx context.Context, newReq func() (*http.Request, error)) (*http.Response, error) {
	var resp *http.Response
	var err error
	backoff := h.backoff

	for attempt := 0; attempt < h.maxAttempts; attempt++ {
		var req *http.Request
		req, err = newReq()
		if err != nil {
			return nil, err
		}

		resp, err = h.Client.Do(req)
		if err == nil && !retryable(resp.StatusCode) {
			return resp, nil
		}
		if attempt == h.maxAttempts-1 {
			break
		}

		slog.Warn("[HuggingFaceClient] Request failed, will retry",
			slog.Int("attempt", attempt+1),
			slog.String("error", errMsg(err, resp)))
		if resp != nil {
			resp.Body.Close()
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, MAX_BACKOFF)
	}

	return resp, err
}

func (h *HuggingFaceClient) post(ctx context.Context, inputs any, want int) ([][]models.Prediction, error) {
	payload := hfRequest{Inputs: inputs}
	if h.topK > 0 {
		payload.Parameters = &hfParameters{TopK: h.topK}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("[HuggingFaceClient] marshal input: %w", err)
	}

	start := time.Now()
	resp, err := h.DoWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("[HuggingFaceClient] build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", USER_AGENT)
		if h.token != "" {
			req.Header.Set("Authorization", "Bearer "+h.token)
		}
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("[HuggingFaceClient] %w: %w", analysis.ErrClassifierUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("[HuggingFaceClient] %w: read response: %w", analysis.ErrClassifierUnavailable, err)
	}

	if err := statusError(resp.StatusCode, respBody); err != nil {
		slog.Error("[HuggingFaceClient] Inference request failed",
			slog.String("model", h.model),
			slog.Int("status", resp.StatusCode),
			getPreview(respBody))
		return nil, err
	}

	out, err := parsePredictions(respBody, want)
	if err != nil {
		slog.Error("[HuggingFaceClient] Failed to parse response",
			slog.String("model", h.model),
			slog.String("error", err.Error()),
			getPreview(respBody),
			slog.Int("raw_response_length", len(respBody)))
		return nil, err
	}

	slog.Debug("[HuggingFaceClient] Inference request successful",
		slog.String("model", h.model),
		slog.Int("texts", want),
		slog.Duration("elapsed", time.Since(start)))
	return out, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// statusError maps the endpoint's status codes onto classifier failure kinds.
func statusError(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusBadRequest,
		status == http.StatusRequestEntityTooLarge,
		status == http.StatusUnprocessableEntity:
		return fmt.Errorf("[HuggingFaceClient] %w: status %d: %s", analysis.ErrInputRejected, status, apiError(body))
	default:
		return fmt.Errorf("[HuggingFaceClient] %w: status %d: %s", analysis.ErrClassifierUnavailable, status, apiError(body))
	}
}

func apiError(body []byte) string {
	if msg := gjson.GetBytes(body, "error"); msg.Exists() {
		return msg.String()
	}
	return getPreview(body).Value.String()
}

// parsePredictions accepts both shapes the endpoint returns: a flat list of
// label/score objects for one input, or one such list per input.
func parsePredictions(body []byte, want int) ([][]models.Prediction, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("[HuggingFaceClient] %w: invalid JSON", analysis.ErrMalformedOutput)
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, fmt.Errorf("[HuggingFaceClient] %w: expected an array", analysis.ErrMalformedOutput)
	}

	items := root.Array()
	var groups []gjson.Result
	if len(items) > 0 && items[0].IsObject() {
		groups = []gjson.Result{root}
	} else {
		groups = items
	}
	if len(groups) != want {
		return nil, fmt.Errorf("[HuggingFaceClient] %w: got %d results for %d inputs", analysis.ErrMalformedOutput, len(groups), want)
	}

	out := make([][]models.Prediction, len(groups))
	for i, group := range groups {
		if !group.IsArray() {
			return nil, fmt.Errorf("[HuggingFaceClient] %w: result %d is not a list", analysis.ErrMalformedOutput, i)
		}
		for _, p := range group.Array() {
			label, score := p.Get("label"), p.Get("score")
			if label.Type != gjson.String || score.Type != gjson.Number {
				return nil, fmt.Errorf("[HuggingFaceClient] %w: result %d has no label/score", analysis.ErrMalformedOutput, i)
			}
			out[i] = append(out[i], models.Prediction{Label: label.String(), Score: score.Float()})
		}
	}
	return out, nil
}

func getPreview(respBody []byte) slog.Attr {
	raw := string(respBody)
	if len(raw) > 50 {
		raw = raw[:50]
	}
	return slog.String("raw_response", raw)
}

func errMsg(err error, resp *http.Response) string {
	if err != nil {
		return err.Error()
	}
	if resp != nil {
		return fmt.Sprintf("status code %d", resp.StatusCode)
	}
	return "unknown error"
}
