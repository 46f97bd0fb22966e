package service

import (
	"strings"
	"time"

	"github.com/iliyamo/leave-request-service/internal/repository"
)

// DaysBetween returns the inclusive number of calendar days from start to
// end.  Both instants are first reduced to their UTC date, so a request
// that starts and ends on the same day counts as 1.  When end is before
// start the result is zero or negative; rejecting that is up to the caller.
func DaysBetween(start, end time.Time) int {
	s, e := dateOf(start), dateOf(end)
	return int(e.Sub(s).Hours()/24) + 1
}

// dateOf truncates t to midnight UTC of its calendar day.
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts YYYY-MM-DD or an RFC3339 timestamp and returns the
// calendar date it names.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(repository.DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, newError(KindValidation, "invalid date %q: expected YYYY-MM-DD", s)
	}
	return dateOf(t), nil
}
