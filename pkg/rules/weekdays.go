package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
)

var weekdayNames = map[string]time.Weekday{
	"su": time.Sunday, "sun": time.Sunday, "sunday": time.Sunday,
	"m": time.Monday, "mon": time.Monday, "monday": time.Monday,
	"tu": time.Tuesday, "tue": time.Tuesday, "tuesday": time.Tuesday,
	"w": time.Wednesday, "wed": time.Wednesday, "wednesday": time.Wednesday,
	"th": time.Thursday, "thu": time.Thursday, "thursday": time.Thursday,
	"f": time.Friday, "fri": time.Friday, "friday": time.Friday,
	"sa": time.Saturday, "sat": time.Saturday, "saturday": time.Saturday,
}

func parseWeekday(name string) (time.Weekday, error) {
	day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", name)
	}
	return day, nil
}

func parseWeekdays(names []string) ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(names))
	for _, name := range names {
		day, err := parseWeekday(name)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, nil
}

func parseHalfDay(name string) (model.HalfDay, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "day", "all":
		return model.AllDay, nil
	case "am", "morning":
		return model.Morning, nil
	case "pm", "afternoon":
		return model.Afternoon, nil
	}
	return model.AllDay, fmt.Errorf("unknown half-day %q", name)
}

// halfDaySlot is the opening hours of a half-day on a date
func halfDaySlot(settings model.TimeSettings, date time.Time, half model.HalfDay) model.Slot {
	start, end := settings.DayStart, settings.DayFinish
	switch half {
	case model.Morning:
		end = settings.LunchStart
	case model.Afternoon:
		start = settings.LunchFinish
	}
	return model.Slot{Date: date, Start: start, Duration: end - start}
}
