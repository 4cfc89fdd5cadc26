package tracking

import "time"

// HealthMetrics summarizes sync delivery health for one tenant over a
// rolling window. AckRate and AvgAckLatencyMs are nil, not zero, when no
// data exists to compute them.
type HealthMetrics struct {
	TenantID string `json:"tenantId"`
	WindowMs int64  `json:"windowMs"`

	// AckRate = acknowledged / (acknowledged + failed + expired).
	AckRate *float64 `json:"ackRate"`
	// AvgAckLatencyMs is the mean publish-to-ack latency over
	// acknowledged records only.
	AvgAckLatencyMs *float64 `json:"avgAckLatencyMs"`

	PendingCount      int `json:"pendingCount"`
	AcknowledgedCount int `json:"acknowledgedCount"`
	FailedCount       int `json:"failedCount"`
	ExpiredCount      int `json:"expiredCount"`
}

// Health computes metrics over records published within windowMs of now.
// Read-only: no record is mutated.
func (s *Store) Health(tenant string, windowMs int64, now time.Time) (HealthMetrics, error) {
	nowMs := now.UnixMilli()
	recs, err := s.ScanWindow(tenant, nowMs-windowMs, nowMs, 0)
	if err != nil {
		return HealthMetrics{}, err
	}

	m := HealthMetrics{TenantID: tenant, WindowMs: windowMs}
	var latencySumMs float64
	for _, rec := range recs {
		switch rec.Status {
		case StatusPublished:
			m.PendingCount++
		case StatusAcknowledged:
			m.AcknowledgedCount++
			if rec.AcknowledgedAt != nil {
				latencySumMs += float64(rec.AcknowledgedAt.Sub(rec.PublishedAt).Milliseconds())
			}
		case StatusFailed:
			m.FailedCount++
		case StatusExpired:
			m.ExpiredCount++
		}
	}

	if denom := m.AcknowledgedCount + m.FailedCount + m.ExpiredCount; denom > 0 {
		rate := float64(m.AcknowledgedCount) / float64(denom)
		m.AckRate = &rate
	}
	if m.AcknowledgedCount > 0 {
		avg := latencySumMs / float64(m.AcknowledgedCount)
		m.AvgAckLatencyMs = &avg
	}
	return m, nil
}
