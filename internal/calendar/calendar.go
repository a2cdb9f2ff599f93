// Package calendar gates the tick cycle to regular US trading hours.
// It is a boundary collaborator: a fixed-rule approximation of the NYSE
// calendar (full and half holidays beyond the closed list are not
// modeled).
package calendar

import "time"

// Exchange is the exchange-local timezone used throughout the system
// for trading-day cutoffs.
func Exchange() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback keeps the process alive on systems without tzdata;
		// ET is UTC-5 outside DST.
		return time.FixedZone("ET", -5*3600)
	}
	return loc
}

// IsTradingTime reports whether now falls inside the regular session:
// 09:30-16:00 ET, Monday-Friday, excluding full-day NYSE holidays.
func IsTradingTime(now time.Time) bool {
	et := now.In(Exchange())

	switch et.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	if isHoliday(et) {
		return false
	}

	minutes := et.Hour()*60 + et.Minute()
	return minutes >= 9*60+30 && minutes <= 16*60
}

func isHoliday(et time.Time) bool {
	y, m, d := et.Date()
	switch {
	case m == time.January && d == 1: // New Year's Day
		return true
	case m == time.June && d == 19: // Juneteenth
		return true
	case m == time.July && d == 4: // Independence Day
		return true
	case m == time.December && d == 25: // Christmas
		return true
	}
	if nthWeekday(y, time.January, time.Monday, 3) == dateOf(et) { // MLK
		return true
	}
	if nthWeekday(y, time.February, time.Monday, 3) == dateOf(et) { // Presidents' Day
		return true
	}
	if lastWeekday(y, time.May, time.Monday) == dateOf(et) { // Memorial Day
		return true
	}
	if nthWeekday(y, time.September, time.Monday, 1) == dateOf(et) { // Labor Day
		return true
	}
	if nthWeekday(y, time.November, time.Thursday, 4) == dateOf(et) { // Thanksgiving
		return true
	}
	if goodFriday(y) == dateOf(et) {
		return true
	}
	return false
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func nthWeekday(year int, month time.Month, wd time.Weekday, n int) time.Time {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for t.Weekday() != wd {
		t = t.AddDate(0, 0, 1)
	}
	return t.AddDate(0, 0, 7*(n-1))
}

func lastWeekday(year int, month time.Month, wd time.Weekday) time.Time {
	t := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	for t.Weekday() != wd {
		t = t.AddDate(0, 0, -1)
	}
	return t
}

// goodFriday derives from Easter via the anonymous Gregorian computus.
func goodFriday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	easter := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return easter.AddDate(0, 0, -2)
}
