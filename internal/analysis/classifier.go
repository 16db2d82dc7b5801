// Package analysis annotates articles with sentiment and emotion scores and
// aggregates them into per-article and corpus-wide statistics.
package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/spacesedan/newsmood/internal/models"
)

// Classifier is a text-classification model. Classify is called once per
// text and blocks until the model answers.
type Classifier interface {
	Classify(ctx context.Context, text string) ([]models.Prediction, error)
}

// BatchClassifier is implemented by classifiers that can score several texts
// in one call. The i-th element of the result belongs to texts[i].
type BatchClassifier interface {
	Classifier
	ClassifyBatch(ctx context.Context, texts []string) ([][]models.Prediction, error)
}

var (
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	ErrMalformedOutput       = errors.New("malformed model output")
	ErrInputRejected         = errors.New("input rejected by classifier")
)

type ErrorKind int

const (
	KindUnavailable ErrorKind = iota + 1
	KindMalformedOutput
	KindInputRejected
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindMalformedOutput:
		return "malformed_output"
	case KindInputRejected:
		return "input_rejected"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindMalformedOutput:
		return ErrMalformedOutput
	case KindInputRejected:
		return ErrInputRejected
	default:
		return ErrClassifierUnavailable
	}
}

// Error is returned by the analyzers when a classifier call fails. The
// analyzers still hand back the sentinel result alongside it.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("classify (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// classifyError maps a classifier failure onto an error kind. Anything that
// is not explicitly malformed output or a rejected input counts as the
// classifier being unavailable.
func classifyError(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, ErrMalformedOutput):
		return &Error{Kind: KindMalformedOutput, Err: err}
	case errors.Is(err, ErrInputRejected):
		return &Error{Kind: KindInputRejected, Err: err}
	default:
		return &Error{Kind: KindUnavailable, Err: err}
	}
}

func malformed(format string, args ...any) *Error {
	return &Error{Kind: KindMalformedOutput, Err: fmt.Errorf("%w: "+format, append([]any{ErrMalformedOutput}, args...)...)}
}
