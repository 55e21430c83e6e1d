package energy

import (
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"solarx/backend/services/monitor-service/internal/models"
)

// ErrInvalidRange is returned for an unknown history range name.
var ErrInvalidRange = errors.New("energy: invalid range")

const (
	RangeWeek  = "week"
	RangeMonth = "month"
	RangeYear  = "year"

	minDailyProduction = 0.5
	summaryLabelLayout = "Jan 2"
)

// DailySummary is one bar of the history chart.
type DailySummary struct {
	Month       string  `json:"month"`
	Production  float64 `json:"production"`
	Consumption float64 `json:"consumption"`
}

// RangeDays maps a history range to the number of days it covers.
func RangeDays(name string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case RangeWeek, "":
		return 7, nil
	case RangeMonth:
		return 30, nil
	case RangeYear:
		return 365, nil
	default:
		return 0, ErrInvalidRange
	}
}

type dayBucket struct {
	date        time.Time
	percentages []float64
}

// DailySummaries groups readings by calendar day in loc and derives production
// and consumption heuristics from the charge level. Readings without a valid
// percentage are ignored. Output is ordered by date.
func DailySummaries(readings []models.BatteryReading, loc *time.Location) []DailySummary {
	if loc == nil {
		loc = time.Local
	}

	byDay := make(map[string]*dayBucket)
	for _, r := range readings {
		pct, ok := validFloat(r.Percentage)
		if !ok {
			continue
		}
		local := r.CreatedAt.In(loc)
		key := local.Format(dayLayout)
		b, ok := byDay[key]
		if !ok {
			b = &dayBucket{date: time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)}
			byDay[key] = b
		}
		b.percentages = append(b.percentages, pct)
	}

	keys := make([]string, 0, len(byDay))
	for k := range byDay {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]DailySummary, 0, len(keys))
	for _, k := range keys {
		b := byDay[k]
		out = append(out, DailySummary{
			Month:       b.date.Format(summaryLabelLayout),
			Production:  dailyProduction(b.percentages),
			Consumption: dailyConsumption(b.percentages),
		})
	}
	return out
}

func dailyProduction(percentages []float64) float64 {
	avg := mean(percentages)
	weight := math.Min(float64(len(percentages))/10, 1)
	production := avg / 20 * (0.8 + 0.2*weight)
	return math.Max(production, minDailyProduction)
}

func dailyConsumption(percentages []float64) float64 {
	avg := mean(percentages)

	var decreases []float64
	for i := 1; i < len(percentages); i++ {
		if drop := percentages[i-1] - percentages[i]; drop > 0 {
			decreases = append(decreases, drop)
		}
	}
	if len(decreases) == 0 {
		return avg * 0.7
	}
	return avg*0.5 + mean(decreases)*2
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
