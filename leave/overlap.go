package leave

import "time"

// Overlaps reports whether two inclusive date ranges share at least one day.
// Ranges that merely touch (aEnd == bStart) overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !DateOf(aStart).After(DateOf(bEnd)) && !DateOf(aEnd).Before(DateOf(bStart))
}

// FindOverlap returns the first blocking request in existing that overlaps
// [start, end], or nil.
func FindOverlap(existing []Request, start, end time.Time) *Request {
	for i := range existing {
		r := existing[i]
		if !r.Status.Blocking() {
			continue
		}
		if Overlaps(r.StartDate, r.EndDate, start, end) {
			return &r
		}
	}
	return nil
}
