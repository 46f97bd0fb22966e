package service

import (
	"time"

	"github.com/iliyamo/leave-request-service/internal/model"
	"github.com/iliyamo/leave-request-service/internal/repository"
)

// Admit decides whether a request for [start, end] may be created given
// the requester's existing requests and current balance.  Denied requests
// no longer hold their dates.  It never mutates anything.
func Admit(existing []model.LeaveRequest, balance int, start, end time.Time) error {
	days := DaysBetween(start, end)
	if days <= 0 {
		return newError(KindValidation, "end date %s is before start date %s",
			end.Format(repository.DateLayout), start.Format(repository.DateLayout))
	}
	for _, r := range existing {
		if r.Status == model.StatusDenied {
			continue
		}
		if overlaps(start, end, r.StartDate, r.EndDate) {
			return newError(KindValidation, "dates overlap with leave request %d (%s to %s)",
				r.ID, r.StartDate.Format(repository.DateLayout), r.EndDate.Format(repository.DateLayout))
		}
	}
	if days > balance {
		return newError(KindValidation, "insufficient leave days: requested %d, remaining %d", days, balance)
	}
	return nil
}

// overlaps reports whether the inclusive ranges [aStart, aEnd] and
// [bStart, bEnd] share at least one calendar day.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	as, ae := dateOf(aStart), dateOf(aEnd)
	bs, be := dateOf(bStart), dateOf(bEnd)
	return !as.After(be) && !bs.After(ae)
}
