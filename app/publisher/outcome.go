package publisher

// Outcome is the result of one publish attempt. The image-to-text fallback
// is an explicit branch of this type rather than error control flow.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomePosted
	OutcomePostedWithImage
	OutcomeSkippedStale
	OutcomeSkippedDuplicate
)

func (o Outcome) String() string {
	switch o {
	case OutcomePosted:
		return "posted"
	case OutcomePostedWithImage:
		return "posted_with_image"
	case OutcomeSkippedStale:
		return "skipped_stale"
	case OutcomeSkippedDuplicate:
		return "skipped_duplicate"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Posted reports whether the outcome represents a successful publish.
func (o Outcome) Posted() bool {
	return o == OutcomePosted || o == OutcomePostedWithImage
}
