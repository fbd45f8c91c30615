package scoring

import (
	"testing"

	"github.com/AnshRaj112/calmsteps-backend/internal/models"
)

func TestClassify_Boundaries(t *testing.T) {
	cases := []struct {
		score int
		want  models.RiskLevel
	}{
		{0, models.RiskLow},
		{4, models.RiskLow},
		{5, models.RiskModerate},
		{7, models.RiskModerate},
		{8, models.RiskHigh},
		{11, models.RiskHigh},
		{12, models.RiskCrisis},
		{15, models.RiskCrisis},
	}
	for _, tc := range cases {
		if got := Classify(tc.score); got != tc.want {
			t.Errorf("Classify(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestNeedsEscalation_AllScores(t *testing.T) {
	for score := 0; score <= MaxRiskScore; score++ {
		level := Classify(score)
		want := level == models.RiskHigh || level == models.RiskCrisis
		if got := NeedsEscalation(level); got != want {
			t.Errorf("score %d (%s): NeedsEscalation = %v, want %v", score, level, got, want)
		}
		if got := NeedsEscalation(level); got != (score >= 8) {
			t.Errorf("score %d: escalation should start at 8", score)
		}
	}
}

func TestScore_ScenarioB(t *testing.T) {
	responses := map[string]interface{}{
		"anxietyFrequency":    float64(3),
		"worryFrequency":      float64(3),
		"depressionFrequency": float64(2),
		"anhedoniaFrequency":  float64(1),
		"suicidalThoughts":    "yes",
	}
	r := Assess(responses)
	if r.Score != 14 {
		t.Fatalf("score = %d, want 14", r.Score)
	}
	if r.Level != models.RiskCrisis || !r.NeedsEscalation {
		t.Fatalf("got %+v", r)
	}
	if len(r.IncompleteFields) != 0 {
		t.Fatalf("unexpected incomplete fields: %v", r.IncompleteFields)
	}
}

func TestScore_FlagWeights(t *testing.T) {
	cases := []struct {
		name      string
		responses map[string]interface{}
		want      int
	}{
		{"empty", map[string]interface{}{}, 0},
		{"nil map", nil, 0},
		{"poor sleep", map[string]interface{}{"sleepQuality": "poor"}, 1},
		{"good sleep", map[string]interface{}{"sleepQuality": "good"}, 0},
		{"self harm", map[string]interface{}{"selfHarm": "yes"}, 3},
		{"substance increased", map[string]interface{}{"substanceUse": "increased"}, 2},
		{"substance same", map[string]interface{}{"substanceUse": "same"}, 0},
		{"case insensitive", map[string]interface{}{"suicidalThoughts": " Yes "}, 5},
		{"all flags", map[string]interface{}{
			"sleepQuality": "poor", "suicidalThoughts": "yes", "selfHarm": "yes", "substanceUse": "increased",
		}, 11},
		{"saturates", map[string]interface{}{
			"anxietyFrequency": 3, "worryFrequency": 3, "depressionFrequency": 3, "anhedoniaFrequency": 3,
			"sleepQuality": "poor", "suicidalThoughts": "yes", "selfHarm": "yes", "substanceUse": "increased",
		}, 15},
		{"string likert", map[string]interface{}{"anxietyFrequency": "2"}, 2},
		{"garbage likert", map[string]interface{}{"anxietyFrequency": "often", "worryFrequency": true}, 0},
		{"out of range clamps", map[string]interface{}{"anxietyFrequency": float64(9), "worryFrequency": float64(-4)}, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Score(tc.responses); got != tc.want {
				t.Fatalf("Score = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestScore_Monotonic(t *testing.T) {
	base := map[string]interface{}{
		"anxietyFrequency":    float64(1),
		"worryFrequency":      float64(2),
		"depressionFrequency": float64(0),
		"anhedoniaFrequency":  float64(1),
		"selfHarm":            "yes",
	}
	for _, field := range LikertFields {
		prev := -1
		for v := 0; v <= 3; v++ {
			r := copyResponses(base)
			r[field] = float64(v)
			got := Score(r)
			if got < prev {
				t.Fatalf("%s=%d decreased score %d -> %d", field, v, prev, got)
			}
			prev = got
		}
	}
}

func TestAssess_ReportsMissingFields(t *testing.T) {
	r := Assess(map[string]interface{}{"anxietyFrequency": float64(2), "worryFrequency": nil})
	if len(r.IncompleteFields) != 3 {
		t.Fatalf("incomplete = %v", r.IncompleteFields)
	}
	if r.Score != 2 || r.Level != models.RiskLow || r.NeedsEscalation {
		t.Fatalf("got %+v", r)
	}
}

func copyResponses(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
