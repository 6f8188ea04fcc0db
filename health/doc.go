// Package health turns raw device metrics into a normalized health verdict.
//
// A Reading carries the metric Snapshot (cpu, memory, disk, network), the
// service health of the device's main process and its display state. A
// Scorer maps a Reading onto per-component scores in [0, 100], a weighted
// overall score and a Status:
//
//	scorer, err := health.NewScorer(health.DefaultWeights(), health.DefaultThresholds())
//	score := scorer.Score(reading)
//	summary := health.Summarize(score)
//
// Scoring never fails outright. Malformed input produces a critical Score
// with Error set, so a broken collector shows up as the worst possible
// state rather than a silent success.
//
// # Monitor
//
// Monitor ties a Source to a Scorer and keeps the last good Report, which is
// served marked Stale while the Source is failing.
package health
