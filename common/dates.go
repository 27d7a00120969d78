package common

import "time"

// Date truncates t to a UTC calendar date. Transaction, income and rate dates are all kept at this granularity.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
