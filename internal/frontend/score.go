package frontend

import "gonum.org/v1/gonum/stat/distuv"

// Score draws a presentation-only focus score. The boolean verdict is the
// ground truth; the sampled value just adds dashboard variance. Focused
// scores land in [0.5, 1.0], unfocused in [0, 0.5].
func Score(focused bool) float64 {
	mu, lo, hi := 0.25, 0.0, 0.5
	if focused {
		mu, lo, hi = 0.75, 0.5, 1.0
	}
	s := distuv.Normal{Mu: mu, Sigma: 0.1}.Rand()
	return min(max(s, lo), hi)
}
