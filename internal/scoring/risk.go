// Package scoring turns questionnaire answers and progress counters into the
// numbers shown to users and used for escalation.
package scoring

import (
	"math"
	"strconv"
	"strings"

	"github.com/AnshRaj112/calmsteps-backend/internal/models"
)

// MaxRiskScore is the saturation point of Score.
const MaxRiskScore = 15

// Likert sub-scores summed into the base score, each 0-3.
var LikertFields = []string{
	"anxietyFrequency",
	"worryFrequency",
	"depressionFrequency",
	"anhedoniaFrequency",
}

type flagWeight struct {
	field  string
	value  string
	weight int
}

var flagWeights = []flagWeight{
	{field: "sleepQuality", value: "poor", weight: 1},
	{field: "suicidalThoughts", value: "yes", weight: 5},
	{field: "selfHarm", value: "yes", weight: 3},
	{field: "substanceUse", value: "increased", weight: 2},
}

// Result is the outcome of scoring one questionnaire.
type Result struct {
	Score            int
	Level            models.RiskLevel
	NeedsEscalation  bool
	IncompleteFields []string
}

// Score sums the Likert sub-scores and the flag penalties, saturating at
// MaxRiskScore. Missing or unreadable answers count as zero.
func Score(responses map[string]interface{}) int {
	total := 0
	for _, f := range LikertFields {
		if v, ok := likert(responses[f]); ok {
			total += v
		}
	}
	for _, fw := range flagWeights {
		if matches(responses[fw.field], fw.value) {
			total += fw.weight
		}
	}
	if total > MaxRiskScore {
		total = MaxRiskScore
	}
	return total
}

// Classify buckets a score: >=12 crisis, >=8 high, >=5 moderate, else low.
func Classify(score int) models.RiskLevel {
	switch {
	case score >= 12:
		return models.RiskCrisis
	case score >= 8:
		return models.RiskHigh
	case score >= 5:
		return models.RiskModerate
	default:
		return models.RiskLow
	}
}

func NeedsEscalation(level models.RiskLevel) bool {
	return level == models.RiskHigh || level == models.RiskCrisis
}

// Assess scores responses and lists which Likert fields were missing.
func Assess(responses map[string]interface{}) Result {
	score := Score(responses)
	level := Classify(score)
	var missing []string
	for _, f := range LikertFields {
		if _, ok := likert(responses[f]); !ok {
			missing = append(missing, f)
		}
	}
	return Result{
		Score:            score,
		Level:            level,
		NeedsEscalation:  NeedsEscalation(level),
		IncompleteFields: missing,
	}
}

// likert reads a 0-3 answer from a decoded JSON value. Out of range values are
// clamped; non-numeric values are treated as missing.
func likert(v interface{}) (int, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	n := int(math.Round(f))
	if n < 0 {
		n = 0
	}
	if n > 3 {
		n = 3
	}
	return n, true
}

func matches(v interface{}, want string) bool {
	s, ok := v.(string)
	return ok && strings.EqualFold(strings.TrimSpace(s), want)
}
