package presenter

import (
	"github.com/i474232898/weather-glance/internal/common"
	"github.com/i474232898/weather-glance/internal/precip"
	"github.com/i474232898/weather-glance/internal/weather"
)

// IconGlyphs maps the closed icon set to display glyphs.
var IconGlyphs = map[weather.Icon]string{
	weather.IconClearDay:          "☀️",
	weather.IconClearNight:        "🌙",
	weather.IconPartlyCloudyDay:   "⛅",
	weather.IconPartlyCloudyNight: "☁️",
	weather.IconCloudy:            "☁️",
	weather.IconFog:               "🌫️",
	weather.IconWind:              "💨",
	weather.IconRain:              "🌧️",
	weather.IconSleet:             "🌨️",
	weather.IconSnow:              "❄️",
	weather.IconHail:              "🌨️",
	weather.IconThunderstorm:      "⛈️",
	weather.IconUnknown:           "❔",
	weather.IconAlert:             "⚠️",
}

// ConditionDescriptions maps the closed condition set to short labels.
var ConditionDescriptions = map[weather.Condition]string{
	weather.ConditionDry:          "Dry",
	weather.ConditionFog:          "Fog",
	weather.ConditionRain:         "Rain",
	weather.ConditionSleet:        "Sleet",
	weather.ConditionSnow:         "Snow",
	weather.ConditionHail:         "Hail",
	weather.ConditionThunderstorm: "Thunderstorm",
	weather.ConditionUnknown:      "Unknown",
	weather.ConditionError:        "Weather data unavailable",
}

var precipGlyphs = map[precip.Kind]string{
	precip.KindRain: "💧",
	precip.KindSnow: "❄",
}

// Glyph returns the glyph for i. Unmapped icons get the unknown glyph.
func Glyph(i weather.Icon) string {
	if g, ok := IconGlyphs[i]; ok {
		return g
	}
	return IconGlyphs[weather.IconUnknown]
}

// Description returns the label for c. Unmapped conditions read as unknown.
func Description(c weather.Condition) string {
	if d, ok := ConditionDescriptions[c]; ok {
		return d
	}
	return ConditionDescriptions[weather.ConditionUnknown]
}

// IsNightIcon reports whether i is one of the night variants.
func IsNightIcon(i weather.Icon) bool {
	return common.HasAny(string(i), "night")
}

func precipGlyph(k precip.Kind) string {
	if g, ok := precipGlyphs[k]; ok {
		return g
	}
	return precipGlyphs[precip.KindRain]
}
