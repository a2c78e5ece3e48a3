package diagnosis

import (
	"errors"
	"reflect"
	"testing"
)

func TestInterpretTieBreaksToLowestIndex(t *testing.T) {
	res, err := Interpret(Probabilities{0.25, 0.25, 0.25, 0.25}, "MobileNet", Options{})
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if res.PredictedClass != "cataract" {
		t.Fatalf("expected cataract, got %q", res.PredictedClass)
	}
	if res.Confidence != 25.0 {
		t.Fatalf("expected confidence 25.0, got %v", res.Confidence)
	}
	if !res.Detected || res.Severity != SeverityMild {
		t.Fatalf("expected detected mild, got detected=%v severity=%q", res.Detected, res.Severity)
	}
}

func TestInterpretSeverityBoundaries(t *testing.T) {
	cases := []struct {
		name  string
		score float64
		want  string
		conf  float64
	}{
		{"exactly 90", 0.9, SeveritySevere, 90.0},
		{"just below 90", 0.899, SeverityModerate, 89.9},
		{"exactly 70", 0.7, SeverityModerate, 70.0},
		{"just below 70", 0.699, SeverityMild, 69.9},
		{"rounds up to 90", 0.89996, SeveritySevere, 90.0},
		{"certain", 1.0, SeveritySevere, 100.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rest := (1 - tc.score) / 3
			probs := Probabilities{rest, rest, tc.score, rest}
			res, err := Interpret(probs, "ResNet", Options{})
			if err != nil {
				t.Fatalf("interpret: %v", err)
			}
			if res.PredictedClass != "glaucoma" {
				t.Fatalf("expected glaucoma, got %q", res.PredictedClass)
			}
			if res.Confidence != tc.conf {
				t.Fatalf("expected confidence %v, got %v", tc.conf, res.Confidence)
			}
			if res.Severity != tc.want {
				t.Fatalf("expected severity %q, got %q", tc.want, res.Severity)
			}
		})
	}
}

func TestSeverityThresholds(t *testing.T) {
	cases := map[float64]string{
		100:  SeveritySevere,
		90:   SeveritySevere,
		89.9: SeverityModerate,
		70:   SeverityModerate,
		69.9: SeverityMild,
		0:    SeverityMild,
	}
	for conf, want := range cases {
		if got := Severity(conf); got != want {
			t.Fatalf("Severity(%v) = %q, want %q", conf, got, want)
		}
	}
}

func TestInterpretNormalIsNotDetected(t *testing.T) {
	for _, score := range []float64{0.3, 0.75, 0.99} {
		rest := (1 - score) / 3
		res, err := Interpret(Probabilities{rest, rest, rest, score}, "DenseNet", Options{})
		if err != nil {
			t.Fatalf("interpret: %v", err)
		}
		if res.Detected {
			t.Fatalf("normal must not be detected (score %v)", score)
		}
		if res.Severity != SeverityNotApplicable {
			t.Fatalf("expected N/A severity, got %q", res.Severity)
		}
		if res.Disease != "Normal" {
			t.Fatalf("expected disease Normal, got %q", res.Disease)
		}
	}
}

func TestInterpretOptions(t *testing.T) {
	opts := Options{NormalDiseaseName: "No Disease", OmitPredictedClass: true}

	res, err := Interpret(Probabilities{0, 0, 0, 1}, "MobileNet", opts)
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if res.Disease != "No Disease" {
		t.Fatalf("expected No Disease, got %q", res.Disease)
	}
	if res.PredictedClass != "" {
		t.Fatalf("predicted class should be omitted, got %q", res.PredictedClass)
	}

	res, err = Interpret(Probabilities{0, 1, 0, 0}, "MobileNet", opts)
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if res.Disease != "Diabetic Retinopathy" {
		t.Fatalf("detected disease name must not be replaced, got %q", res.Disease)
	}
}

func TestInterpretAllPredictions(t *testing.T) {
	res, err := Interpret(Probabilities{0.1234, 0.5678, 0.2, 0.1088}, "EfficientNetB0", Options{})
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	want := map[string]float64{
		"cataract":             12.3,
		"diabetic_retinopathy": 56.8,
		"glaucoma":             20.0,
		"normal":               10.9,
	}
	if !reflect.DeepEqual(res.AllPredictions, want) {
		t.Fatalf("unexpected all_predictions %v", res.AllPredictions)
	}
	if res.Disease != "Diabetic Retinopathy" || res.ModelUsed != "EfficientNetB0" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Recommendations) != 5 {
		t.Fatalf("expected 5 recommendations, got %d", len(res.Recommendations))
	}
}

func TestInterpretIsDeterministic(t *testing.T) {
	probs := Probabilities{0.05, 0.15, 0.6, 0.2}
	first, err := Interpret(probs, "ResNet", Options{})
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Interpret(probs, "ResNet", Options{})
		if err != nil {
			t.Fatalf("interpret: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("results differ: %+v vs %+v", first, again)
		}
	}
}

func TestInterpretRejectsWrongLength(t *testing.T) {
	_, err := Interpret(Probabilities{0.5, 0.5}, "ResNet", Options{})
	if !errors.Is(err, ErrLabelMismatch) {
		t.Fatalf("expected ErrLabelMismatch, got %v", err)
	}
}

func TestAverageTwoModels(t *testing.T) {
	avg, err := Average([]Probabilities{{1, 0, 0, 0}, {0, 1, 0, 0}})
	if err != nil {
		t.Fatalf("average: %v", err)
	}
	if !reflect.DeepEqual(avg, Probabilities{0.5, 0.5, 0, 0}) {
		t.Fatalf("unexpected average %v", avg)
	}

	res, err := Interpret(avg, EnsembleName([]string{"MobileNet", "ResNet"}), Options{})
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if res.PredictedClass != "cataract" || res.Confidence != 50.0 {
		t.Fatalf("expected cataract at 50.0, got %q at %v", res.PredictedClass, res.Confidence)
	}
	if res.ModelUsed != "Ensemble (MobileNet, ResNet)" {
		t.Fatalf("unexpected model name %q", res.ModelUsed)
	}
}

func TestAverageDividesByContributors(t *testing.T) {
	avg, err := Average([]Probabilities{{0.9, 0.1, 0, 0}, {0.6, 0.1, 0.3, 0}, {0.3, 0.1, 0.6, 0}})
	if err != nil {
		t.Fatalf("average: %v", err)
	}
	want := Probabilities{0.6, 0.1, 0.3, 0}
	for i := range want {
		if diff := avg[i] - want[i]; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("index %d: got %v, want %v", i, avg[i], want[i])
		}
	}
}

func TestAverageErrors(t *testing.T) {
	if _, err := Average(nil); err == nil {
		t.Fatalf("expected error for empty input")
	}
	if _, err := Average([]Probabilities{{1, 0, 0, 0}, {1, 0}}); !errors.Is(err, ErrLabelMismatch) {
		t.Fatalf("expected ErrLabelMismatch, got %v", err)
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[ClassLabel]string{
		DiabeticRetinopathy: "Diabetic Retinopathy",
		Cataract:            "Cataract",
		Normal:              "Normal",
	}
	for label, want := range cases {
		if got := label.DisplayName(); got != want {
			t.Fatalf("%q.DisplayName() = %q, want %q", label, got, want)
		}
	}
}
