package format

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// InputLayout is the value format of an HTML datetime-local input.
const InputLayout = "2006-01-02T15:04"

var ErrEmptyDateTime = errors.New("date and time cannot be empty")

var shortWeekdays = [...]string{"вс", "пн", "вт", "ср", "чт", "пт", "сб"}

// Months in the genitive case, as used after a day number.
var genitiveMonths = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// DateTime renders t in the Russian short form, e.g. "пн, 5 мая, 14:30".
// PRE: loc is non-nil
// POST: Returns weekday, day, genitive month and HH:MM in loc
func DateTime(t time.Time, loc *time.Location) string {
	lt := t.In(loc)
	return fmt.Sprintf("%s, %d %s, %02d:%02d",
		shortWeekdays[lt.Weekday()],
		lt.Day(),
		genitiveMonths[lt.Month()-1],
		lt.Hour(),
		lt.Minute(),
	)
}

// DateTimeInput renders t as a datetime-local value in loc.
func DateTimeInput(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(InputLayout)
}

// ParseDateTimeInput parses a datetime-local value as wall time in loc.
// Seconds are accepted because some browsers submit them.
// PRE: loc is non-nil
// POST: Returns the instant, or ErrEmptyDateTime for blank input
func ParseDateTimeInput(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrEmptyDateTime
	}
	for _, layout := range []string{InputLayout, InputLayout + ":05"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date and time %q", value)
}
