package weather

import (
	"time"
)

// Condition is the normalized precipitation/visibility condition of a sample.
// The set is closed: provider vocabularies are mapped onto it and anything
// unrecognized becomes ConditionUnknown.
type Condition string

const (
	ConditionDry          Condition = "dry"
	ConditionFog          Condition = "fog"
	ConditionRain         Condition = "rain"
	ConditionSleet        Condition = "sleet"
	ConditionSnow         Condition = "snow"
	ConditionHail         Condition = "hail"
	ConditionThunderstorm Condition = "thunderstorm"
	ConditionUnknown      Condition = "unknown"

	// ConditionError marks fallback records substituted after a failed fetch.
	// It never comes from a provider.
	ConditionError Condition = "error"
)

var conditions = map[string]Condition{
	"dry":          ConditionDry,
	"fog":          ConditionFog,
	"rain":         ConditionRain,
	"sleet":        ConditionSleet,
	"snow":         ConditionSnow,
	"hail":         ConditionHail,
	"thunderstorm": ConditionThunderstorm,
}

// ParseCondition maps a provider condition string onto the closed set.
// It never returns ConditionError.
func ParseCondition(s string) Condition {
	if c, ok := conditions[s]; ok {
		return c
	}
	return ConditionUnknown
}

// IsError reports whether c is the fallback marker.
func (c Condition) IsError() bool {
	return c == ConditionError
}

// Icon is the normalized pictogram code of a reading.
type Icon string

const (
	IconClearDay          Icon = "clear-day"
	IconClearNight        Icon = "clear-night"
	IconPartlyCloudyDay   Icon = "partly-cloudy-day"
	IconPartlyCloudyNight Icon = "partly-cloudy-night"
	IconCloudy            Icon = "cloudy"
	IconFog               Icon = "fog"
	IconWind              Icon = "wind"
	IconRain              Icon = "rain"
	IconSleet             Icon = "sleet"
	IconSnow              Icon = "snow"
	IconHail              Icon = "hail"
	IconThunderstorm      Icon = "thunderstorm"
	IconUnknown           Icon = "unknown"

	// IconAlert is shown for fallback records.
	IconAlert Icon = "alert"
)

var icons = map[string]Icon{
	string(IconClearDay):          IconClearDay,
	string(IconClearNight):        IconClearNight,
	string(IconPartlyCloudyDay):   IconPartlyCloudyDay,
	string(IconPartlyCloudyNight): IconPartlyCloudyNight,
	string(IconCloudy):            IconCloudy,
	string(IconFog):               IconFog,
	string(IconWind):              IconWind,
	string(IconRain):              IconRain,
	string(IconSleet):             IconSleet,
	string(IconSnow):              IconSnow,
	string(IconHail):              IconHail,
	string(IconThunderstorm):      IconThunderstorm,
}

// ParseIcon maps a provider icon string onto the closed set.
func ParseIcon(s string) Icon {
	if i, ok := icons[s]; ok {
		return i
	}
	return IconUnknown
}

// Coordinates is a WGS84 position.
type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// IsZero reports whether no position was configured.
func (c Coordinates) IsZero() bool {
	return c.Lat == 0 && c.Lon == 0
}

// RawHourlySample is one observation or forecast point as delivered by the
// provider. Timestamp is always UTC.
type RawHourlySample struct {
	Timestamp                time.Time `json:"timestamp"`
	Temperature              *float64  `json:"temperatureC"`
	Condition                Condition `json:"condition"`
	Icon                     Icon      `json:"icon"`
	PrecipitationMm          float64   `json:"precipitationMm"`
	PrecipitationProbability int       `json:"precipitationProbability"`
	CloudCoverPct            int       `json:"cloudCoverPct"`
}

// CurrentConditions is the single-point snapshot shown in the summary panel.
type CurrentConditions struct {
	Timestamp       time.Time `json:"timestamp"`
	Temperature     float64   `json:"temperatureC"`
	Condition       Condition `json:"condition"`
	Icon            Icon      `json:"icon"`
	PrecipitationMm float64   `json:"precipitationMm"`
	// Precipitation probability 30 and 60 minutes ahead, nil when the
	// provider could not tell.
	PrecipProbability30 *int `json:"precipProbability30"`
	PrecipProbability60 *int `json:"precipProbability60"`
	CloudCoverPct       int `json:"cloudCoverPct"`
}

// IsFallback reports whether c was substituted after a failed fetch.
func (c CurrentConditions) IsFallback() bool {
	return c.Condition.IsError()
}

// Float returns a pointer to v, for building samples.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}
