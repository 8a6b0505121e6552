package board

// Status is the closed set of workflow states a task can be in. Every task
// holds exactly one of these at all times; an unrecognized string never
// reaches persistence because parsing is the only way in.
type Status string

const (
	StatusBacklog    Status = "BACKLOG"
	StatusInProgress Status = "IN_PROGRESS"
	StatusReview     Status = "REVIEW"
	StatusDone       Status = "DONE"
)

// ParseStatus maps a wire string to a Status. The second return is false for
// anything outside the closed set.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusBacklog, StatusInProgress, StatusReview, StatusDone:
		return Status(s), true
	default:
		return "", false
	}
}

// Valid reports whether s is one of the four workflow states.
func (s Status) Valid() bool {
	_, ok := ParseStatus(string(s))
	return ok
}

func (s Status) String() string { return string(s) }
