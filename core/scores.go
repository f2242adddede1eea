package core

import "math"

// Pitch statuses carried by the engagement store. Anything else is treated
// as pending.
const (
	PitchApprove = "approve"
	PitchReject  = "reject"
)

// RoundTo rounds half away from zero to the given number of decimals.
func RoundTo(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}

// SafeRate returns round(num/den*scale, decimals), or 0 when den is 0.
// Zero denominators mean "no data", never an error.
func SafeRate(num, den, scale float64, decimals int) float64 {
	if den == 0 {
		return 0
	}
	return RoundTo(num/den*scale, decimals)
}

// CompletionPercent returns the 0-100 progress of completed out of total
// activities, rounded to the nearest integer. 0 when total is 0.
func CompletionPercent(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// PitchScore derives the 0-100 viability score of a pitch: base 80 on
// approval, 20 on rejection, 50 otherwise, plus a funding bonus of
// min(20, funding/1000), capped at 100. One decimal. Fixed business rule.
func PitchScore(status string, funding float64) float64 {
	base := 50.0
	switch status {
	case PitchApprove:
		base = 80
	case PitchReject:
		base = 20
	}
	var bonus float64
	if funding > 0 {
		bonus = math.Min(20, funding/1000)
	}
	return RoundTo(math.Min(100, base+bonus), 1)
}
