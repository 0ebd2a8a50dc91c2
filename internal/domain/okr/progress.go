package okr

import "math"

// MetricProgress maps a key result's metric values onto an integer in [0,100].
// A zero span means the target is already met. The same clamp-and-round rule
// applies to every metric kind.
func MetricProgress(kind MetricKind, start, target, actual float64) int {
	span := target - start
	if span == 0 {
		return 100
	}
	raw := (actual - start) / span * 100
	if math.IsNaN(raw) {
		return 0
	}
	return clampProgress(math.Round(clampFloat(raw, 0, 100)))
}

// AggregateProgress is round(mean(progresses)), or 0 for an empty list.
func AggregateProgress(progresses []int) int {
	if len(progresses) == 0 {
		return 0
	}
	sum := 0
	for _, p := range progresses {
		sum += p
	}
	return clampProgress(math.Round(float64(sum) / float64(len(progresses))))
}

func AggregateKeyResults(krs []KeyResult) int {
	return AggregateProgress(keyResultProgresses(krs))
}

func keyResultProgresses(krs []KeyResult) []int {
	out := make([]int, 0, len(krs))
	for _, kr := range krs {
		out = append(out, kr.Progress)
	}
	return out
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampProgress(v float64) int {
	return int(clampFloat(v, 0, 100))
}
