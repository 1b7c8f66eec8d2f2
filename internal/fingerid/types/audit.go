package types

import "time"

// AuditEntry records one verification attempt. SubjectName is present only
// when the attempt was accepted.
type AuditEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	SubjectName string    `json:"subjectName,omitempty"`
	Score       int       `json:"score"`
	Success     bool      `json:"success"`
}
