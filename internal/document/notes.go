package document

import (
	"fmt"
	"math"
	"time"
)

const dateFormat = "2006-01-02"

// Validity note texts.
const (
	NotesGeneric  = "This estimate is valid for a limited period."
	NotesIssueDay = "This estimate is valid on the issue date only."
)

// ValidityNotes derives the validity sentence from the issue and due dates
// (YYYY-MM-DD). Absent or unparseable dates yield NotesGeneric.
func ValidityNotes(issueDate, dueDate string) string {
	issue, err := time.Parse(dateFormat, issueDate)
	if err != nil {
		return NotesGeneric
	}
	due, err := time.Parse(dateFormat, dueDate)
	if err != nil {
		return NotesGeneric
	}

	days := int(math.Ceil(due.Sub(issue).Hours() / 24))
	switch {
	case days <= 0:
		return NotesIssueDay
	case days%7 == 0:
		return fmt.Sprintf("This estimate is valid for %s.", plural(days/7, "week"))
	default:
		return fmt.Sprintf("This estimate is valid for %s.", plural(days, "day"))
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
