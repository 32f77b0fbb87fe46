// Package results derives weighted academic metrics from loaded grade
// data. Everything here is a pure function of its inputs so the engine can
// run as on-read aggregation without materialized state.
package results

import (
	"math"

	"github.com/dputra/student-records-api/internal/models"
)

// Status classifies a weighted course average.
type Status string

const (
	StatusPass          Status = "Pass"
	StatusSupplementary Status = "Supplementary"
	StatusFailed        Status = "Failed"
)

// Classification thresholds, closed-open: [50,100] Pass, [40,50)
// Supplementary, [0,40) Failed.
const (
	passThreshold          = 50.0
	supplementaryThreshold = 40.0
)

// WeightedAverage computes the weighted course average for the grades of
// one enrollment. Only grade types with at least one recorded grade
// contribute their weight to the denominator, so an enrollment missing a
// grade type is renormalized rather than penalized. ok is false when no
// grade carries a recognized weighted type.
func WeightedAverage(grades []models.Grade, weights map[models.GradeType]int) (avg float64, ok bool) {
	sum := 0.0
	totalWeight := 0
	present := make(map[models.GradeType]bool, len(weights))
	counts := make(map[models.GradeType]int, len(weights))
	sums := make(map[models.GradeType]int, len(weights))

	for _, grade := range grades {
		weight, known := weights[grade.GradeType]
		if !known || weight <= 0 {
			continue
		}
		present[grade.GradeType] = true
		counts[grade.GradeType]++
		sums[grade.GradeType] += grade.GradeValue
	}
	if len(present) == 0 {
		return 0, false
	}

	// Several grades of the same type average within the type first, so a
	// type's configured weight never exceeds its share.
	for gradeType := range present {
		weight := weights[gradeType]
		typeAvg := float64(sums[gradeType]) / float64(counts[gradeType])
		sum += typeAvg * float64(weight)
		totalWeight += weight
	}

	return round2(sum / float64(totalWeight)), true
}

// Classify maps a weighted average onto a pass status.
func Classify(avg float64) Status {
	switch {
	case avg >= passThreshold:
		return StatusPass
	case avg >= supplementaryThreshold:
		return StatusSupplementary
	default:
		return StatusFailed
	}
}

// GPA is the unweighted mean of per-course weighted averages on the 0-100
// scale. ok is false when the student has no course with a grade.
func GPA(courseAverages []float64) (gpa float64, ok bool) {
	if len(courseAverages) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, avg := range courseAverages {
		sum += avg
	}
	return round2(sum / float64(len(courseAverages))), true
}

// GradePoint converts a 0-100 GPA onto the 4-point scale using fixed
// breakpoints: [90,100] 4.0, [80,90) 3.0, [70,80) 2.0, [60,70) 1.0,
// otherwise 0.0.
func GradePoint(gpa float64) float64 {
	switch {
	case gpa >= 90:
		return 4.0
	case gpa >= 80:
		return 3.0
	case gpa >= 70:
		return 2.0
	case gpa >= 60:
		return 1.0
	default:
		return 0.0
	}
}

// AttendanceRate returns present sessions over total sessions as a
// percentage; late counts as attended for rate purposes.
func AttendanceRate(present, late, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round2(float64(present+late) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
