package patterns

import (
	"fmt"
	"math"

	"ChessFlow/internal/domain/models"
)

// Feature weights. The six terms sum to 100 for an exact match.
const (
	flowExactPoints    = 25.0
	flowRelatedPoints  = 12.0
	intensityMaxPoints = 20.0
	volatilityMax      = 15.0
	sideExactPoints    = 20.0
	sideContestedHalf  = 10.0
	centerMaxPoints    = 10.0
	wingsMaxPoints     = 10.0
)

// Similarity scores how close two characteristic vectors are on a 0-100
// scale. Closeness terms decay linearly and floor at zero.
func Similarity(a, b models.Characteristics) (float64, []string) {
	score := 0.0
	var factors []string

	switch {
	case a.FlowDirection == b.FlowDirection:
		score += flowExactPoints
		factors = append(factors, fmt.Sprintf("flow direction %s", a.FlowDirection))
	case relatedFlow(a.FlowDirection, b.FlowDirection):
		score += flowRelatedPoints
		factors = append(factors, fmt.Sprintf("related flow %s/%s", a.FlowDirection, b.FlowDirection))
	}

	if pts := closeness(a.Intensity, b.Intensity, 100, intensityMaxPoints); pts > 0 {
		score += pts
		if pts > intensityMaxPoints/2 {
			factors = append(factors, "comparable intensity")
		}
	}

	if pts := closeness(a.Volatility, b.Volatility, 100, volatilityMax); pts > 0 {
		score += pts
		if pts > volatilityMax/2 {
			factors = append(factors, "comparable volatility")
		}
	}

	switch {
	case a.DominantSide == b.DominantSide:
		score += sideExactPoints
		factors = append(factors, fmt.Sprintf("dominant side %s", a.DominantSide))
	case a.DominantSide == models.SideContested || b.DominantSide == models.SideContested:
		score += sideContestedHalf
	}

	if pts := closeness(a.CenterControl, b.CenterControl, 200, centerMaxPoints); pts > 0 {
		score += pts
		if pts > centerMaxPoints/2 {
			factors = append(factors, "similar center control")
		}
	}

	wings := closeness(a.KingsideLoad, b.KingsideLoad, 400, wingsMaxPoints/2) +
		closeness(a.QueensideLoad, b.QueensideLoad, 400, wingsMaxPoints/2)
	if wings > 0 {
		score += wings
		if wings > wingsMaxPoints/2 {
			factors = append(factors, "similar wing activity")
		}
	}

	return score, factors
}

// closeness maps |a-b| onto [0, max] with linear decay over span.
func closeness(a, b, span, max float64) float64 {
	pts := max * (1 - math.Abs(a-b)/span)
	if pts < 0 {
		return 0
	}
	return pts
}
