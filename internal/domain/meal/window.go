package meal

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// DayWindow returns the [start, end) instant range covering one full calendar
// day in loc. Start is wall-clock midnight of the given date; end is the next
// wall-clock midnight, so a DST day yields a 23h or 25h window rather than a
// fixed 24h offset.
func DayWindow(date string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	start, err := time.ParseInLocation(dateLayout, date, loc)

	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}

	end := start.AddDate(0, 0, 1)

	return start.UTC(), end.UTC(), nil
}
