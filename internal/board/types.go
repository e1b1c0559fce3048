package board

import (
	"errors"
	"time"
)

// ErrUnavailable marks a transient board failure that survived the
// single retry. Callers convert it to a "please retry" reply instead of
// treating it as a permanent fault.
var ErrUnavailable = errors.New("board unavailable")

// Record is one investor/lead row on the remote board. Date fields are
// calendar dates from the board's perspective; when present they are
// normalized to midnight in the board client's location.
type Record struct {
	ID           string
	Name         string
	Status       string
	Category     string
	Email        string
	Phone        string
	PersonIDs    []string
	LastContact  *time.Time
	NextFollowUp *time.Time
	Notes        string
	Permalink    string
}

// Column identifiers on the pipeline board. The board addresses fields
// by opaque column ids, not display titles.
const (
	ColumnStatus       = "status"
	ColumnCategory     = "category"
	ColumnEmail        = "contact_email"
	ColumnPhone        = "contact_phone"
	ColumnPeople       = "owner"
	ColumnLastContact  = "last_contact"
	ColumnNextFollowUp = "next_followup"
	ColumnNotes        = "notes"
)

// DateOnly formats a timestamp the way the board's date columns expect.
func DateOnly(t time.Time) string {
	return t.Format("2006-01-02")
}
