package diagnosis

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrLabelMismatch is returned when a vector does not have one score per label.
var ErrLabelMismatch = errors.New("probability vector length does not match class labels")

// Options controls the parts of the response that differ between deployments.
type Options struct {
	// NormalDiseaseName replaces "Normal" as the disease name when nothing is detected.
	NormalDiseaseName string
	// OmitPredictedClass drops the raw class key from the result.
	OmitPredictedClass bool
}

// Interpret converts a probability vector into a Result.
// Ties in the maximum score resolve to the lowest index.
func Interpret(probs Probabilities, modelName string, opts Options) (*Result, error) {
	if len(probs) != len(Labels) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrLabelMismatch, len(probs), len(Labels))
	}

	idx := Argmax(probs)
	label := Labels[idx]
	confidence := percent(probs[idx])
	detected := label != Normal

	severity := SeverityNotApplicable
	if detected {
		severity = Severity(confidence)
	}

	disease := label.DisplayName()
	if !detected && opts.NormalDiseaseName != "" {
		disease = opts.NormalDiseaseName
	}

	all := make(map[string]float64, len(Labels))
	for i, l := range Labels {
		all[string(l)] = percent(probs[i])
	}

	res := &Result{
		ModelUsed:       modelName,
		Detected:        detected,
		Disease:         disease,
		Confidence:      confidence,
		Severity:        severity,
		Recommendations: Recommend(label),
		AllPredictions:  all,
	}
	if !opts.OmitPredictedClass {
		res.PredictedClass = string(label)
	}
	return res, nil
}

// Argmax returns the index of the first maximum value.
func Argmax(probs Probabilities) int {
	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return best
}

// Severity maps a confidence percentage (0-100) to a severity label.
func Severity(confidence float64) string {
	switch {
	case confidence >= 90:
		return SeveritySevere
	case confidence >= 70:
		return SeverityModerate
	default:
		return SeverityMild
	}
}

// Average returns the element-wise mean of the vectors.
func Average(vectors []Probabilities) (Probabilities, error) {
	if len(vectors) == 0 {
		return nil, errors.New("no probability vectors to average")
	}

	out := make(Probabilities, len(vectors[0]))
	for _, v := range vectors {
		if len(v) != len(out) {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrLabelMismatch, len(v), len(out))
		}
		for i, p := range v {
			out[i] += p
		}
	}

	n := float64(len(vectors))
	for i := range out {
		out[i] /= n
	}
	return out, nil
}

// EnsembleName is the model_used value for an averaged prediction.
func EnsembleName(models []string) string {
	return "Ensemble (" + strings.Join(models, ", ") + ")"
}

// percent scales a probability to a percentage with one decimal place.
func percent(p float64) float64 {
	return math.Round(p*1000) / 10
}
