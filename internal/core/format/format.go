// Package format turns telemetry values into the fixed strings shown on the
// dashboard.
package format

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

const (
	NoPlan          = "keiner"
	UnknownPercent  = "---"
	UnknownDistance = "-- km"
	UnknownTime     = "--:--"
)

var germanDays = [...]string{"Sonntag", "Montag", "Dienstag", "Mittwoch", "Donnerstag", "Freitag", "Samstag"}

// Power formats watts as "999W", "1.5kW" or "12kW". Sign is preserved.
func Power(watts float64) string {
	return tiered(watts, "W", "kW")
}

// Energy formats watt hours with the same tiers as Power.
func Energy(wh float64) string {
	return tiered(wh, "Wh", "kWh")
}

func tiered(v float64, unit, kiloUnit string) string {
	abs := math.Abs(v)
	switch {
	case abs < 1000:
		return strconv.Itoa(int(v)) + unit
	case abs < 10000:
		return fmt.Sprintf("%.1f%s", v/1000, kiloUnit)
	default:
		return fmt.Sprintf("%.0f%s", v/1000, kiloUnit)
	}
}

func Percentage(v float64) string {
	if v < 0 {
		return UnknownPercent
	}
	return strconv.Itoa(int(v)) + "%"
}

func Distance(v float64) string {
	if v < 0 {
		return UnknownDistance
	}
	return strconv.Itoa(int(v)) + "km"
}

// Duration formats a remaining time as "H:MM". Negative durations are unknown.
func Duration(d time.Duration) string {
	if d < 0 {
		return UnknownTime
	}
	minutes := int(d / time.Minute)
	return fmt.Sprintf("%d:%02d", minutes/60, minutes%60)
}

// PlanStart renders a projected charge start, or "--:--" when there is none.
func PlanStart(iso string, now time.Time) string {
	if iso == "" {
		return UnknownTime
	}
	return "|--> " + PlanTime(iso, now)
}

// PlanTime renders an ISO-8601 UTC timestamp relative to now as "Heute 14:30",
// "Morgen 07:00", a weekday name or "D.M.".
//
// The UTC to local shift is +1h, or +2h when now is in daylight saving time,
// regardless of the target date. Dates outside the current month are always
// rendered as "D.M.".
func PlanTime(iso string, now time.Time) string {
	if len(iso) < 19 {
		return NoPlan
	}
	fields := [5][2]int{{0, 4}, {5, 7}, {8, 10}, {11, 13}, {14, 16}}
	var parsed [5]int
	for i, f := range fields {
		n, err := strconv.Atoi(iso[f[0]:f[1]])
		if err != nil {
			return NoPlan
		}
		parsed[i] = n
	}
	year, month, day, hour, minute := parsed[0], parsed[1], parsed[2], parsed[3], parsed[4]
	if month < 1 || month > 12 {
		return NoPlan
	}

	offset := 1
	if now.IsDST() {
		offset = 2
	}
	hour += offset
	if hour >= 24 {
		hour -= 24
		day++
		if day > daysInMonth(year, month) {
			day = 1
			month++
			if month > 12 {
				month = 1
				year++
			}
		}
	}

	todayYear, todayMonth, todayDay := now.Date()
	var diff int
	switch {
	case year == todayYear && month == int(todayMonth):
		diff = day - todayDay
	case year > todayYear || (year == todayYear && month > int(todayMonth)):
		diff = 7
	default:
		diff = -7
	}

	var dayString string
	switch {
	case diff == 0:
		dayString = "Heute"
	case diff == 1:
		dayString = "Morgen"
	case diff >= 2 && diff < 7:
		weekday := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Weekday()
		dayString = germanDays[weekday]
	default:
		dayString = fmt.Sprintf("%d.%d.", day, month)
	}
	return fmt.Sprintf("%s %02d:%02d", dayString, hour, minute)
}

func daysInMonth(year, month int) int {
	days := [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
		days[1] = 29
	}
	return days[month-1]
}
