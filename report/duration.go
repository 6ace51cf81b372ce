package report

import (
	"time"

	"github.com/hako/durafmt"
)

// Duration renders d by its two most significant non-zero units, e.g.
// "2 hours 3 minutes" or "1 day 4 hours". Sub-second parts are dropped.
func Duration(d time.Duration) string {
	if d < time.Second {
		return "0 seconds"
	}

	return durafmt.Parse(d.Truncate(time.Second)).LimitFirstN(2).String()
}
