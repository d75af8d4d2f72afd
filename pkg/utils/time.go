package utils

import "time"

// UnixMillis returns the current time in Unix milliseconds, the unit
// every OrderBookTop/TradeContext timestamp field uses.
func UnixMillis() int64 {
	return time.Now().UnixMilli()
}

// FromUnixMillis converts Unix milliseconds back to a UTC time.Time.
func FromUnixMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// UnixMicros returns the current time in Unix microseconds, used where
// fill/order latency needs finer resolution than milliseconds.
func UnixMicros() int64 {
	return time.Now().UnixMicro()
}

// FromUnixMicros converts Unix microseconds back to a UTC time.Time.
func FromUnixMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}

// FormatDuration renders a duration the way trace audit lines do:
// the coarsest non-zero unit first, collapsing to Go's native String()
// once the magnitude no longer benefits from day-granularity rounding.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		if hours > 0 {
			return (time.Duration(days*24+hours) * time.Hour).String()
		}
		return (time.Duration(days*24) * time.Hour).String()
	}

	if hours > 0 {
		if minutes > 0 {
			return (time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute).String()
		}
		return (time.Duration(hours) * time.Hour).String()
	}

	if minutes > 0 {
		if seconds > 0 {
			return (time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second).String()
		}
		return (time.Duration(minutes) * time.Minute).String()
	}

	return (time.Duration(seconds) * time.Second).String()
}

// ToUTC converts t to UTC.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// ToLocation converts t to loc, leaving t unchanged if loc is nil.
func ToLocation(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	return t.In(loc)
}

// ParseInLocation parses value against layout in loc, defaulting to UTC
// when loc is nil.
func ParseInLocation(layout, value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(layout, value, loc)
}
