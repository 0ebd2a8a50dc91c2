package okr

import "time"

const DefaultAtRiskWindow = 5 * 24 * time.Hour

// Classify assigns the health status for a progress value and optional deadline.
// The 50-75 band, and sub-50 progress without a near deadline, stay on_track.
// A deadline already in the past counts as near.
func Classify(progress int, deadline *time.Time, now time.Time, atRiskWindow time.Duration) Status {
	if atRiskWindow <= 0 {
		atRiskWindow = DefaultAtRiskWindow
	}
	switch {
	case progress >= 100:
		return StatusCompleted
	case progress >= 75:
		return StatusOnTrack
	case progress < 50 && deadline != nil && deadline.Sub(now) <= atRiskWindow:
		return StatusAtRisk
	default:
		return StatusOnTrack
	}
}
