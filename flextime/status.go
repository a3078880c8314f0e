package flextime

import (
	"github.com/shopspring/decimal"

	"github.com/warp/worktime-engine/worktime"
)

// Status is the traffic-light color of a flex balance.
type Status string

const (
	StatusGreen  Status = "green"
	StatusYellow Status = "yellow"
	StatusRed    Status = "red"
)

// Classify maps a balance in hours to a color. Bounds are inclusive:
// a balance exactly on Upper is still green.
func Classify(hours decimal.Decimal, t worktime.Thresholds) Status {
	switch {
	case hours.GreaterThanOrEqual(t.Lower) && hours.LessThanOrEqual(t.Upper):
		return StatusGreen
	case hours.GreaterThanOrEqual(t.RedLower) && hours.LessThanOrEqual(t.RedUpper):
		return StatusYellow
	default:
		return StatusRed
	}
}
