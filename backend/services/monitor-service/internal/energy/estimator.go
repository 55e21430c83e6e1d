package energy

import (
	"fmt"
	"math"
	"time"

	"solarx/backend/services/monitor-service/internal/models"
)

const (
	// BatteryCapacityAh is the nominal capacity of the storage bank.
	BatteryCapacityAh = 100.0
	// DefaultVoltage is assumed when a reading carries no usable voltage.
	DefaultVoltage = 12.0
	// MaxGap is the longest interval between two readings still treated as continuous.
	MaxGap = 2 * time.Hour
	// DefaultLookbackDays is how far back callers read when estimating.
	DefaultLookbackDays = 7

	dayLayout = "2006-01-02"
)

// Point is one bar in a production chart.
type Point struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
}

// Profile is the estimator result. Fallback marks the placeholder curve.
type Profile struct {
	Points   []Point `json:"points"`
	Fallback bool    `json:"fallback"`
}

// FallbackProfile returns the fixed curve shown when no usable readings exist.
func FallbackProfile() []Point {
	return []Point{
		{Time: "6 AM", Value: 0.2},
		{Time: "8 AM", Value: 1.5},
		{Time: "10 AM", Value: 3.8},
		{Time: "12 PM", Value: 5.2},
		{Time: "2 PM", Value: 4.8},
		{Time: "4 PM", Value: 3.2},
		{Time: "6 PM", Value: 1.0},
		{Time: "8 PM", Value: 0.1},
	}
}

// HourLabel renders an hour of day on a 12 hour clock.
func HourLabel(hour int) string {
	switch {
	case hour == 0:
		return "12 AM"
	case hour == 12:
		return "12 PM"
	case hour < 12:
		return fmt.Sprintf("%d AM", hour)
	default:
		return fmt.Sprintf("%d PM", hour%12)
	}
}

// Buckets holds kWh per calendar day (YYYY-MM-DD) and hour of day.
type Buckets map[string]*[24]float64

func (b Buckets) add(day string, hour int, kwh float64) {
	hours, ok := b[day]
	if !ok {
		hours = new([24]float64)
		b[day] = hours
	}
	hours[hour] += kwh
}

// Estimator turns battery charge deltas into an hourly production curve.
type Estimator struct {
	now func() time.Time
}

// NewEstimator builds an estimator. now fixes both "today" and the local
// time zone; nil means time.Now.
func NewEstimator(now func() time.Time) *Estimator {
	if now == nil {
		now = time.Now
	}
	return &Estimator{now: now}
}

// Estimate computes today's production from readings ordered by creation time.
// Readings are not re-sorted.
func (e *Estimator) Estimate(readings []models.BatteryReading) Profile {
	today := e.now()
	buckets, usable := e.bucketize(readings, today.Location())
	if usable == 0 {
		return Profile{Points: FallbackProfile(), Fallback: true}
	}

	hours := buckets[today.Format(dayLayout)]
	points := make([]Point, 24)
	for hour := range points {
		var value float64
		if hours != nil {
			value = hours[hour]
		}
		points[hour] = Point{Time: HourLabel(hour), Value: value}
	}
	return Profile{Points: points}
}

// HourlyProduction is Estimate without the fallback marker.
func (e *Estimator) HourlyProduction(readings []models.BatteryReading) []Point {
	return e.Estimate(readings).Points
}

// Bucketize exposes the per day, per hour sums and the number of usable pairs.
func (e *Estimator) Bucketize(readings []models.BatteryReading) (Buckets, int) {
	return e.bucketize(readings, e.now().Location())
}

func (e *Estimator) bucketize(readings []models.BatteryReading, loc *time.Location) (Buckets, int) {
	buckets := make(Buckets)
	usable := 0
	for i := 1; i < len(readings); i++ {
		prev, cur := readings[i-1], readings[i]

		if cur.CreatedAt.Sub(prev.CreatedAt) > MaxGap {
			continue
		}
		prevPct, ok := validFloat(prev.Percentage)
		if !ok {
			continue
		}
		curPct, ok := validFloat(cur.Percentage)
		if !ok {
			continue
		}
		usable++

		if curPct <= prevPct {
			continue
		}
		kwh := ChargeEnergy(curPct-prevPct, voltageOf(cur))
		local := cur.CreatedAt.In(loc)
		buckets.add(local.Format(dayLayout), local.Hour(), kwh)
	}
	return buckets, usable
}

// ChargeEnergy converts a percentage gain at the given voltage into kWh.
func ChargeEnergy(chargeDiff, voltage float64) float64 {
	return voltage * chargeDiff * BatteryCapacityAh / 100 / 1000
}

func voltageOf(r models.BatteryReading) float64 {
	if v, ok := validFloat(r.Voltage); ok && v > 0 {
		return v
	}
	return DefaultVoltage
}

func validFloat(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}
