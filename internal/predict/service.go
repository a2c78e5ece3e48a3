package predict

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/Brownie44l1/deepeye-api/internal/diagnosis"
	"github.com/Brownie44l1/deepeye-api/internal/model"
	"github.com/Brownie44l1/deepeye-api/internal/preprocess"
)

// Service runs the prediction pipeline: preprocess, infer, aggregate, interpret.
type Service interface {
	Predict(ctx context.Context, image []byte, modelName string) (*diagnosis.Result, error)
	Ensemble(ctx context.Context, image []byte) (*diagnosis.Result, error)
}

type predictService struct {
	registry     *model.Registry
	preprocessor *preprocess.Preprocessor
	opts         diagnosis.Options
	inflight     *semaphore.Weighted
	log          logrus.FieldLogger
}

// Options configures a Service.
type Options struct {
	Interpret diagnosis.Options
	// MaxConcurrentInferences bounds model calls across all requests.
	// Zero means runtime.NumCPU().
	MaxConcurrentInferences int
}

func NewService(registry *model.Registry, pre *preprocess.Preprocessor, opts Options, log logrus.FieldLogger) Service {
	limit := opts.MaxConcurrentInferences
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	return &predictService{
		registry:     registry,
		preprocessor: pre,
		opts:         opts.Interpret,
		inflight:     semaphore.NewWeighted(int64(limit)),
		log:          log,
	}
}

func (s *predictService) Predict(ctx context.Context, image []byte, modelName string) (*diagnosis.Result, error) {
	input, err := s.preprocessor.Tensor(image)
	if err != nil {
		return nil, err
	}

	entry, err := s.registry.Resolve(modelName)
	if err != nil {
		return nil, err
	}

	probs, err := s.infer(ctx, entry, input)
	if err != nil {
		return nil, err
	}

	result, err := diagnosis.Interpret(probs, entry.DisplayName, s.opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", entry.DisplayName, err)
	}

	s.log.WithFields(logrus.Fields{
		"model":      result.ModelUsed,
		"disease":    result.Disease,
		"confidence": result.Confidence,
	}).Info("prediction completed")
	return result, nil
}

func (s *predictService) Ensemble(ctx context.Context, image []byte) (*diagnosis.Result, error) {
	input, err := s.preprocessor.Tensor(image)
	if err != nil {
		return nil, err
	}

	entries := s.registry.Loaded()
	if len(entries) == 0 {
		return nil, model.ErrNoModels
	}

	vectors := make([]diagnosis.Probabilities, len(entries))
	names := make([]string, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	for i, e := range entries {
		i, e := i, e
		names[i] = e.DisplayName
		g.Go(func() error {
			probs, err := s.infer(gctx, e, input)
			if err != nil {
				return err
			}
			vectors[i] = probs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	avg, err := diagnosis.Average(vectors)
	if err != nil {
		return nil, err
	}

	result, err := diagnosis.Interpret(avg, diagnosis.EnsembleName(names), s.opts)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"model":      result.ModelUsed,
		"disease":    result.Disease,
		"confidence": result.Confidence,
	}).Info("ensemble prediction completed")
	return result, nil
}

// infer runs one model under the inference limit. Once started, inference
// runs to completion; ctx only bounds the wait for a slot.
func (s *predictService) infer(ctx context.Context, e *model.Entry, input *model.Tensor) (diagnosis.Probabilities, error) {
	if err := s.inflight.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%s: wait for inference slot: %w", e.DisplayName, err)
	}
	defer s.inflight.Release(1)

	scores, err := e.Model.Predict(input)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.DisplayName, err)
	}
	if len(scores) != len(diagnosis.Labels) {
		return nil, fmt.Errorf("%s: %w: got %d, want %d", e.DisplayName, diagnosis.ErrLabelMismatch, len(scores), len(diagnosis.Labels))
	}

	probs := make(diagnosis.Probabilities, len(scores))
	for i, v := range scores {
		probs[i] = float64(v)
	}
	return probs, nil
}
