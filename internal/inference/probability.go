package inference

import "github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/apptype"

// UncertainLabel is reported when no label clears the threshold.
const (
	UncertainLabel       = "UNCERTAIN"
	UncertainProbability = 1.0
)

// MaxProbability returns the most probable label, or UNCERTAIN when even that
// is below threshold. It returns nil for a result with no probabilities.
// Ties keep the first label.
func MaxProbability(res apptype.ClassificationResult, threshold float64) *apptype.ClassificationProbability {
	return pick(res, func(a, b float64) bool { return a > b }, func(p float64) bool { return p < threshold })
}

// MinProbability returns the least probable label, or UNCERTAIN when even
// that is above threshold. Call it with threshold 1.0 to never report UNCERTAIN.
func MinProbability(res apptype.ClassificationResult, threshold float64) *apptype.ClassificationProbability {
	return pick(res, func(a, b float64) bool { return a < b }, func(p float64) bool { return p > threshold })
}

func pick(res apptype.ClassificationResult, better func(a, b float64) bool, uncertain func(float64) bool) *apptype.ClassificationProbability {
	if len(res.Probabilities) == 0 {
		return nil
	}
	best := res.Probabilities[0]
	for _, p := range res.Probabilities[1:] {
		if better(p.Probability, best.Probability) {
			best = p
		}
	}
	if uncertain(best.Probability) {
		return &apptype.ClassificationProbability{Label: UncertainLabel, Probability: UncertainProbability}
	}
	return &best
}
