package usecase

import (
	"strconv"
	"strings"
	"time"

	"FinFolio/internal/domain/models"
	"FinFolio/pkg/util"
)

// DefaultHorizonYears is the lookback used when the horizon cannot be read.
const DefaultHorizonYears = 5

// HorizonYears reads a whole number of years from a free-text horizon:
// "7 years", "10-20 years" (upper bound), "long-term" (10), "medium-term" (5),
// "short-term" (1) or a bare integer. ok is false for anything else, including
// non-positive values.
func HorizonYears(horizon string) (years int, ok bool) {
	h := strings.ToLower(strings.TrimSpace(horizon))
	var err error
	switch {
	case h == "":
		return 0, false
	case strings.Contains(h, "year"):
		part := strings.TrimSpace(strings.SplitN(h, "year", 2)[0])
		if strings.Contains(part, "-") {
			pieces := strings.Split(part, "-")
			part = strings.TrimSpace(pieces[len(pieces)-1])
		} else if fields := strings.Fields(part); len(fields) > 0 {
			part = fields[len(fields)-1]
		}
		years, err = strconv.Atoi(part)
	case strings.Contains(h, "long-term"):
		years = 10
	case strings.Contains(h, "medium-term"):
		years = 5
	case strings.Contains(h, "short-term"):
		years = 1
	default:
		years, err = strconv.Atoi(h)
	}
	if err != nil || years <= 0 {
		return 0, false
	}
	return years, true
}

// ResolveRange picks the fetch window for a profile. Explicit start and end
// dates win when both parse; otherwise the window ends today
// and reaches back the horizon in years (defaultYears when unreadable).
func ResolveRange(p models.Profile, now time.Time, defaultYears int) (models.DateRange, string) {
	if p.StartDate != "" && p.EndDate != "" {
		start, okS := util.ParseDate(p.StartDate)
		end, okE := util.ParseDate(p.EndDate)
		if okS && okE {
			return models.DateRange{Start: start, End: end}, "explicit"
		}
	}

	years, ok := HorizonYears(string(p.TimeHorizon))
	if !ok {
		years = defaultYears
		if years <= 0 {
			years = DefaultHorizonYears
		}
	}
	end := models.DateOnly(now).AddDate(0, 0, 1)
	return models.DateRange{Start: models.DateOnly(now).AddDate(-years, 0, 0), End: end}, strconv.Itoa(years) + "y"
}
