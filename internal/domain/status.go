package domain

// Status represents the publication state of a scheduled entity
type Status string

const (
	// StatusPublished identifies entities visible to consumers
	StatusPublished Status = "published"
	// StatusUnpublished identifies entities hidden from consumers
	StatusUnpublished Status = "unpublished"
)

// Normalize coerces empty or unknown values to StatusUnpublished.
func (s Status) Normalize() Status {
	if s == StatusPublished {
		return StatusPublished
	}
	return StatusUnpublished
}
