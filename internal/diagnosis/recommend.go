package diagnosis

var baseRecommendations = []string{
	"⚠️ This is an AI analysis tool - always consult healthcare professionals",
	"Schedule a comprehensive eye examination with an ophthalmologist",
}

var conditionRecommendations = map[ClassLabel][]string{
	DiabeticRetinopathy: {
		"Monitor blood sugar levels regularly and maintain good diabetic control",
		"Follow up with your endocrinologist for diabetes management",
		"Consider laser treatment if recommended by your doctor",
	},
	Glaucoma: {
		"Monitor intraocular pressure regularly",
		"Use prescribed eye drops as directed",
		"Avoid activities that may increase eye pressure",
	},
	Cataract: {
		"Discuss surgical options with your ophthalmologist",
		"Use proper lighting when reading or working",
		"Consider updating eyeglass prescription",
	},
}

var wellnessRecommendations = []string{
	"Maintain regular eye check-ups",
	"Protect eyes from UV radiation",
	"Follow a healthy diet rich in eye-friendly nutrients",
}

// Recommend returns the advisory strings for a label. The slice is freshly
// allocated, so callers may modify it.
func Recommend(label ClassLabel) []string {
	specific, ok := conditionRecommendations[label]
	if !ok {
		specific = wellnessRecommendations
	}

	out := make([]string, 0, len(baseRecommendations)+len(specific))
	out = append(out, baseRecommendations...)
	return append(out, specific...)
}
