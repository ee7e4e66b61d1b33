package analytics

import "time"

// Event is one analytics/billing telemetry record. Best-effort: failures to
// persist an event are logged and swallowed, never surfaced to the request
// that produced it.
type Event struct {
	ID         string
	UserID     string
	NanoSlug   string
	Step       *int
	EventType  string
	IPAddress  string
	Country    string
	Region     string
	UserAgent  string
	Browser    string
	OS         string
	OccurredAt time.Time
}
