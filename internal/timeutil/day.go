package timeutil

import "time"

// DaySeconds is the length of a local day in seconds.
const DaySeconds = 86400

// UnixTime pairs a Unix timestamp with the UTC offset (seconds east)
// that should be used when mapping it onto a calendar day.
type UnixTime struct {
	Time      int64
	UTCOffset int
}

// Now returns the current moment with the host's UTC offset.
func Now() UnixTime {
	now := time.Now()
	_, offset := now.Zone()
	return UnixTime{Time: now.Unix(), UTCOffset: offset}
}

// LocalDay returns the number of whole local days since the Unix epoch.
// Day 0 is 1970-01-01 in the local zone.
func (u UnixTime) LocalDay() int {
	return int((u.Time + int64(u.UTCOffset)) / DaySeconds)
}

// ShiftedBack returns the same moment moved back by offsetSeconds.
// Used to compute "today" relative to a configurable day start: an
// interval started at 01:30 with a two-hour day start offset still
// belongs to the previous local day.
func (u UnixTime) ShiftedBack(offsetSeconds int) UnixTime {
	return UnixTime{Time: u.Time - int64(offsetSeconds), UTCOffset: u.UTCOffset}
}

// WeekdayIndex maps a local day onto a weekday index where 0 is the
// configured week start. weekStart uses Monday-based numbering
// (0 = Monday .. 6 = Sunday). Unix day 0 was a Thursday.
func WeekdayIndex(localDay, weekStart int) int {
	mondayBased := ((localDay+3)%7 + 7) % 7
	return ((mondayBased-weekStart)%7 + 7) % 7
}
