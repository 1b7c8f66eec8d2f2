package types

import "time"

// Identity is one enrolled record in the gallery. The template blob is
// immutable once set; re-enrolling a name always creates a new record,
// so duplicate display names are allowed and ids are the only identity.
type Identity struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Template    string    `json:"template"` // vendor-encoded, base64
	EnrolledAt  time.Time `json:"enrolledAt"`
}
