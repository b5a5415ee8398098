package domain

import "math"

// GradeFor maps a percentage to its (gpa, grade) tier. Boundaries are
// inclusive at the lower bound of each tier and are part of the public
// contract; published marksheets depend on them staying put.
func GradeFor(percentage float64) (gpa float64, grade string) {
	switch {
	case percentage >= 90:
		return 4.0, "A+"
	case percentage >= 80:
		return 3.7, "A"
	case percentage >= 70:
		return 3.3, "A-"
	case percentage >= 65:
		return 3.0, "B+"
	case percentage >= 60:
		return 2.7, "B"
	case percentage >= 55:
		return 2.3, "B-"
	case percentage >= 50:
		return 2.0, "C+"
	case percentage >= 45:
		return 1.7, "C"
	case percentage >= 40:
		return 1.3, "D"
	default:
		return 0.0, "F"
	}
}

// Round2 rounds to two decimal places, the precision stored on summaries.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Percentage computes the rounded percentage, guarding a zero total.
func Percentage(obtained, total int) float64 {
	if total <= 0 {
		return 0
	}
	return Round2(float64(obtained) / float64(total) * 100)
}
