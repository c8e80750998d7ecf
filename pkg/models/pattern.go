package models

import "time"

// Pattern holds learned statistics for a (task category, agent) pair.
// Counts are monotonically non-decreasing; the average duration is an
// exponential moving average weighting recent observations more heavily.
type Pattern struct {
	// Category is the task category half of the key.
	Category string `json:"category"`
	// AgentID is the agent half of the key.
	AgentID string `json:"agent_id"`
	// SuccessCount is the number of successful executions observed.
	SuccessCount int64 `json:"success_count"`
	// FailureCount is the number of failed executions observed.
	FailureCount int64 `json:"failure_count"`
	// AvgDuration is the EMA of observed execution durations.
	AvgDuration time.Duration `json:"avg_duration_ms"`
	// LastUpdated is when the pattern was last merged.
	LastUpdated time.Time `json:"last_updated"`
}

// Total returns the number of observations backing this pattern.
func (p *Pattern) Total() int64 {
	return p.SuccessCount + p.FailureCount
}

// SuccessRate returns the fraction of successful observations in [0,1].
// A pattern with no observations has rate 0.
func (p *Pattern) SuccessRate() float64 {
	total := p.Total()
	if total == 0 {
		return 0
	}
	return float64(p.SuccessCount) / float64(total)
}

// Observe merges one execution outcome into the pattern.
// The duration average follows new = alpha*observed + (1-alpha)*old,
// seeding from the first observation when no history exists.
func (p *Pattern) Observe(success bool, duration time.Duration, alpha float64) {
	if success {
		p.SuccessCount++
	} else {
		p.FailureCount++
	}
	if p.Total() == 1 || p.AvgDuration == 0 {
		p.AvgDuration = duration
	} else {
		p.AvgDuration = time.Duration(alpha*float64(duration) + (1-alpha)*float64(p.AvgDuration))
	}
	p.LastUpdated = time.Now()
}
