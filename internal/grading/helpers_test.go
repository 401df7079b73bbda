package grading_test

import "time"

func testTime(offset int) time.Time {
	return time.Date(2026, 3, 1, 12, 0, offset, 0, time.UTC)
}
