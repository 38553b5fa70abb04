package extract

import (
	"regexp"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
)

// datePattern matches a date-like token; separators . - / are equivalent.
// The last group may not run into further digits.
const datePattern = `\d{1,4}[./-]\d{1,2}[./-]\d{1,4}\b`

var reDateParts = regexp.MustCompile(`^(\d{1,4})[./-](\d{1,2})[./-](\d{1,4})$`)

type dateOrder int

const (
	dayMonthYear dateOrder = iota
	yearMonthDay
	monthDayYear
)

// dateOrders is tried in sequence; the first valid calendar date wins.
var dateOrders = []dateOrder{dayMonthYear, yearMonthDay, monthDayYear}

// ParseDate reads a date written with . - or / separators. Day-month-year
// is preferred, then year-month-day, then month-day-year. Years need four
// digits. Strings that form no valid calendar date in any order are
// rejected.
func ParseDate(s string) (civil.Date, bool) {
	m := reDateParts.FindStringSubmatch(s)
	if m == nil {
		return civil.Date{}, false
	}
	a, b, c := m[1], m[2], m[3]
	for _, order := range dateOrders {
		var y, mo, d string
		switch order {
		case dayMonthYear:
			d, mo, y = a, b, c
		case yearMonthDay:
			y, mo, d = a, b, c
		case monthDayYear:
			mo, d, y = a, b, c
		}
		if len(y) != 4 || len(d) > 2 || len(mo) > 2 {
			continue
		}
		year, _ := strconv.Atoi(y)
		month, _ := strconv.Atoi(mo)
		day, _ := strconv.Atoi(d)
		if month < 1 || month > 12 {
			continue
		}
		cd := civil.Date{Year: year, Month: time.Month(month), Day: day}
		if cd.IsValid() {
			return cd, true
		}
	}
	return civil.Date{}, false
}
