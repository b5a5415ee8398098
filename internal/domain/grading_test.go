package domain

import "testing"

func TestGradeForBoundaries(t *testing.T) {
	cases := []struct {
		percentage float64
		gpa        float64
		grade      string
	}{
		{100, 4.0, "A+"},
		{90, 4.0, "A+"},
		{89.99, 3.7, "A"},
		{80, 3.7, "A"},
		{70, 3.3, "A-"},
		{65, 3.0, "B+"},
		{60, 2.7, "B"},
		{55, 2.3, "B-"},
		{50, 2.0, "C+"},
		{45, 1.7, "C"},
		{40, 1.3, "D"},
		{39.99, 0.0, "F"},
		{0, 0.0, "F"},
	}
	for _, c := range cases {
		gpa, grade := GradeFor(c.percentage)
		if gpa != c.gpa || grade != c.grade {
			t.Errorf("GradeFor(%v) = %v/%s, want %v/%s", c.percentage, gpa, grade, c.gpa, c.grade)
		}
	}
}

func TestPercentageRounding(t *testing.T) {
	// 90/150 is exactly 60%; the two-decimal rounding must not drift below
	// the B boundary.
	if got := Percentage(90, 150); got != 60.00 {
		t.Fatalf("Percentage(90, 150) = %v, want 60.00", got)
	}
	if got := Percentage(1, 3); got != 33.33 {
		t.Fatalf("Percentage(1, 3) = %v, want 33.33", got)
	}
	if got := Percentage(2, 3); got != 66.67 {
		t.Fatalf("Percentage(2, 3) = %v, want 66.67", got)
	}
}

func TestPercentageZeroTotal(t *testing.T) {
	if got := Percentage(10, 0); got != 0 {
		t.Fatalf("Percentage with zero total = %v, want 0", got)
	}
	if got := Percentage(0, -5); got != 0 {
		t.Fatalf("Percentage with negative total = %v, want 0", got)
	}
}
