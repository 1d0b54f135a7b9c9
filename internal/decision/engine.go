// Package decision implements the umbrella decision rule. The engine is a
// pure function over a normalized observation: no I/O, no failure modes.
// Callers are responsible for clamping malformed provider input before it
// reaches Decide.
package decision

import (
	"fmt"
	"math"
	"strings"

	"umbrella/internal/types"
)

// rainVolumeThresholdMM is the minimum rain volume treated as "rain
// expected" when the current condition group is not itself precipitation.
const rainVolumeThresholdMM = 0.1

// humidityThresholdPercent is the humidity above which rain is considered
// likely even with no reported precipitation.
const humidityThresholdPercent = 85

// Fixed headlines, keyed only by the umbrella decision — never by which
// rule fired.
const (
	HeadlineUmbrella   = "Yes, bring an umbrella"
	HeadlineNoUmbrella = "No umbrella needed today"
)

// ReasonClear is the explanation used when no rule fires.
const ReasonClear = "Clear conditions expected"

// Decide evaluates the umbrella rules against an observation in fixed
// priority order; the first matching rule wins. The ordering is a designed
// tie-break:
//
//  1. Active precipitation (Rain, Drizzle, Thunderstorm)
//  2. Reported rain volume above the threshold
//  3. High humidity
//  4. Otherwise: no umbrella
//
// Temperature is carried through untouched; unit conversion belongs to the
// display boundary.
func Decide(obs types.WeatherObservation) types.UmbrellaRecommendation {
	rec := types.UmbrellaRecommendation{
		ConditionMain: obs.ConditionMain,
		TemperatureC:  obs.TemperatureC,
		PlaceName:     obs.PlaceName,
	}

	switch {
	case obs.ConditionMain.IsRaining():
		rec.NeedsUmbrella = true
		rec.Reason = fmt.Sprintf("It's %s right now", strings.ToLower(string(obs.ConditionMain)))
	case obs.RainVolumeMM > rainVolumeThresholdMM:
		rec.NeedsUmbrella = true
		rec.Reason = "Rain expected"
	case obs.HumidityPercent > humidityThresholdPercent:
		rec.NeedsUmbrella = true
		rec.Reason = "High chance of rain"
	default:
		rec.NeedsUmbrella = false
		rec.Reason = ReasonClear
	}

	if rec.NeedsUmbrella {
		rec.Headline = HeadlineUmbrella
	} else {
		rec.Headline = HeadlineNoUmbrella
	}

	return rec
}

// ToFahrenheit converts a Celsius temperature for display, rounding to the
// nearest integer.
func ToFahrenheit(celsius float64) int {
	return int(math.Round(celsius*9/5 + 32))
}

// ReminderContent produces the fixed title/body pair registered with the
// host scheduler for a recommendation.
func ReminderContent(rec types.UmbrellaRecommendation) types.ReminderContent {
	if rec.NeedsUmbrella {
		return types.ReminderContent{
			Title: "Take your umbrella!",
			Body:  "It's going to rain today.",
		}
	}
	return types.ReminderContent{
		Title: "No umbrella needed",
		Body:  "Clear skies ahead!",
	}
}
