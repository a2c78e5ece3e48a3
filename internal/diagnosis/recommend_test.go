package diagnosis

import "testing"

func TestRecommendConditionSpecific(t *testing.T) {
	cases := []struct {
		label ClassLabel
		third string
	}{
		{DiabeticRetinopathy, "Monitor blood sugar levels regularly and maintain good diabetic control"},
		{Glaucoma, "Monitor intraocular pressure regularly"},
		{Cataract, "Discuss surgical options with your ophthalmologist"},
		{Normal, "Maintain regular eye check-ups"},
		{ClassLabel("unknown"), "Maintain regular eye check-ups"},
	}

	for _, tc := range cases {
		got := Recommend(tc.label)
		if len(got) != 5 {
			t.Fatalf("%s: expected 5 recommendations, got %d", tc.label, len(got))
		}
		if got[0] != baseRecommendations[0] || got[1] != baseRecommendations[1] {
			t.Fatalf("%s: recommendations must start with the base advice, got %v", tc.label, got[:2])
		}
		if got[2] != tc.third {
			t.Fatalf("%s: expected %q, got %q", tc.label, tc.third, got[2])
		}
	}
}

func TestRecommendReturnsFreshSlice(t *testing.T) {
	first := Recommend(Glaucoma)
	first[0] = "changed"
	first[4] = "changed"

	second := Recommend(Glaucoma)
	if second[0] == "changed" || second[4] == "changed" {
		t.Fatalf("catalog was mutated through a returned slice")
	}
}
