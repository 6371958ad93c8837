package checkpoint

import (
	"fmt"
	"time"
)

// Interruption thresholds for recovery-confidence decay. Confidence is full
// for short gaps and steps down past eight hours and past a day.
const (
	freshInterruption   = time.Hour
	staleInterruption   = 8 * time.Hour
	ancientInterruption = 24 * time.Hour
)

// progressFraming maps a progress fraction to the operator-facing framing
// used in recovery hints.
func progressFraming(progress float64) (framing, action string) {
	switch {
	case progress < 0.25:
		return "early", "Little work is committed; consider restarting the pipeline from scratch if the workspace is suspect."
	case progress < 0.75:
		return "midway", "Resume from this checkpoint; completed hooks will not be re-executed."
	default:
		return "nearing completion", "Resume from this checkpoint; only the final stages remain."
	}
}

// buildSummary produces the one-paragraph summary stored with a checkpoint.
func buildSummary(framing string, stageIndex, totalStages, completedHooks, artifactCount int) string {
	return fmt.Sprintf(
		"Execution was %s: stage %d of %d, %d hooks completed, %d artifacts produced.",
		framing, stageIndex, totalStages, completedHooks, artifactCount)
}

// decayConfidence derives a recovery-success estimate from the interruption
// length: full confidence under an hour, reduced past eight hours, further
// reduced past a day.
func decayConfidence(interruption time.Duration) float64 {
	switch {
	case interruption < freshInterruption:
		return 0.95
	case interruption < staleInterruption:
		return 0.85
	case interruption < ancientInterruption:
		return 0.6
	default:
		return 0.35
	}
}

// progressFraction computes completed-stage progress, clamped to [0, 1].
func progressFraction(stageIndex, totalStages int) float64 {
	if totalStages <= 0 {
		return 0
	}
	p := float64(stageIndex) / float64(totalStages)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
