package weather

import (
	"math"
	"strings"

	"github.com/i474232898/weatherki/internal/widget"
)

// AggregateReadings combines provider readings into the WeatherData shown on a widget.
// Numeric fields are averaged; the condition is picked by majority, ties going
// to the condition reported first. Wind speed is converted to km/h.
func AggregateReadings(loc Location, readings []ProviderReading) widget.WeatherData {
	if len(readings) == 0 {
		return widget.WeatherData{
			Condition: string(ConditionUnknown),
			Icon:      ConditionUnknown.Icon(),
			CityName:  loc.City,
			Country:   loc.Country,
		}
	}

	var (
		sumTemp     float64
		sumHumidity float64
		sumWind     float64
	)

	conditionCounts := make(map[Condition]int)
	var order []Condition

	for _, r := range readings {
		sumTemp += r.TemperatureC
		sumHumidity += r.HumidityPct
		sumWind += r.WindSpeedMS

		if conditionCounts[r.Condition] == 0 {
			order = append(order, r.Condition)
		}
		conditionCounts[r.Condition]++
	}

	n := float64(len(readings))

	// Pick majority condition.
	bestCond := ConditionUnknown
	bestCount := 0
	for _, cond := range order {
		if conditionCounts[cond] > bestCount {
			bestCount = conditionCounts[cond]
			bestCond = cond
		}
	}

	data := widget.WeatherData{
		Temperature: round1(sumTemp / n),
		Condition:   string(bestCond),
		Humidity:    math.Round(sumHumidity / n),
		WindSpeed:   round1(sumWind / n * 3.6),
		Icon:        bestCond.Icon(),
		CityName:    loc.City,
		Country:     loc.Country,
	}

	// The first provider that resolved the place wins.
	for _, r := range readings {
		if r.CityName != "" {
			data.CityName = r.CityName
			if r.Country != "" {
				data.Country = r.Country
			}
			break
		}
	}
	for _, r := range readings {
		if r.Condition == bestCond && r.Description != "" {
			data.Description = strings.ToLower(r.Description)
			break
		}
	}
	if data.Description == "" {
		data.Description = string(bestCond)
	}
	return data
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
