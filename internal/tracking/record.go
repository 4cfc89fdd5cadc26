package tracking

import "time"

// Status is the delivery lifecycle state of a tracked event.
type Status string

const (
	StatusPublished    Status = "PUBLISHED"
	StatusAcknowledged Status = "ACKNOWLEDGED"
	StatusFailed       Status = "FAILED"
	StatusExpired      Status = "EXPIRED"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusAcknowledged || s == StatusFailed || s == StatusExpired
}

// Valid reports whether s is one of the four defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPublished, StatusAcknowledged, StatusFailed, StatusExpired:
		return true
	}
	return false
}

// Record tracks one published event.
type Record struct {
	EventID             string     `json:"eventId"`
	TenantID            string     `json:"tenantId"`
	EventType           string     `json:"eventType"`
	ConsumerApplication string     `json:"consumerApplication"`
	Status              Status     `json:"status"`
	PublishedAt         time.Time  `json:"publishedAt"`
	AcknowledgedAt      *time.Time `json:"acknowledgedAt,omitempty"`
	RetryCount          int        `json:"retryCount"`
	LastError           string     `json:"lastError,omitempty"`
}
