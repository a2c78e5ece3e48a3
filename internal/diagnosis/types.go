package diagnosis

import "strings"

// ClassLabel is one of the retinal conditions the classifiers were trained on.
type ClassLabel string

const (
	Cataract            ClassLabel = "cataract"
	DiabeticRetinopathy ClassLabel = "diabetic_retinopathy"
	Glaucoma            ClassLabel = "glaucoma"
	Normal              ClassLabel = "normal"
)

// Labels is the model output order: index i of every probability vector is Labels[i].
var Labels = []ClassLabel{Cataract, DiabeticRetinopathy, Glaucoma, Normal}

// DisplayName turns "diabetic_retinopathy" into "Diabetic Retinopathy".
func (l ClassLabel) DisplayName() string {
	words := strings.Split(string(l), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// Probabilities holds one softmax score per label, in Labels order.
type Probabilities []float64

// Severity levels reported for detected conditions.
const (
	SeveritySevere        = "Severe"
	SeverityModerate      = "Moderate"
	SeverityMild          = "Mild"
	SeverityNotApplicable = "N/A"
)

// Result is the JSON body returned by both prediction endpoints.
type Result struct {
	ModelUsed       string             `json:"model_used"`
	Detected        bool               `json:"detected"`
	Disease         string             `json:"disease"`
	PredictedClass  string             `json:"predicted_class,omitempty"`
	Confidence      float64            `json:"confidence"`
	Severity        string             `json:"severity"`
	Recommendations []string           `json:"recommendations"`
	AllPredictions  map[string]float64 `json:"all_predictions"`
}
