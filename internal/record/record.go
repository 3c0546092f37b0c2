package record

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/kjstillabower/clima/internal/condition"
	"github.com/kjstillabower/clima/internal/models"
)

// Record is the display-ready view of one current-conditions payload.
// Fields that were missing or malformed in the payload hold their zero value.
type Record struct {
	TemperatureCelsius int
	CityName           string
	ConditionCode      int
	HasCondition       bool // false when weather[0].id was absent or unreadable
	Coordinates        models.Coordinates
	Message            string
	Icon               condition.Icon
}

// DisplayTemperature formats the temperature with a degree sign, e.g. "23°".
func (r Record) DisplayTemperature() string {
	return strconv.Itoa(r.TemperatureCelsius) + "°"
}

// Parse maps an OpenWeatherMap current-conditions payload onto a Record.
// Parse never fails: invalid JSON, a non-object root, absent fields and
// type mismatches each fall back to that field's default.
func Parse(raw []byte) Record {
	var root map[string]any
	if err := json.Unmarshal(raw, &root); err != nil {
		root = nil
	}

	rec := Record{Icon: condition.IconDefault}

	if temp, ok := number(object(root, "main"), "temp"); ok {
		if t, ok := roundHalfUp(temp); ok {
			rec.TemperatureCelsius = t
		}
	}
	if name, ok := root["name"].(string); ok {
		rec.CityName = name
	}
	if id, ok := conditionID(root); ok {
		rec.ConditionCode = id
		rec.HasCondition = true
		rec.Icon = condition.IconFor(id)
	}

	coord := object(root, "coord")
	if lat, ok := number(coord, "lat"); ok {
		rec.Coordinates.Latitude = lat
	}
	if lon, ok := number(coord, "lon"); ok {
		rec.Coordinates.Longitude = lon
	}

	rec.Message = Message(rec.TemperatureCelsius)
	return rec
}

// conditionID reads weather[0].id, truncating fractional ids.
func conditionID(root map[string]any) (int, bool) {
	list, ok := root["weather"].([]any)
	if !ok || len(list) == 0 {
		return 0, false
	}
	first, ok := list[0].(map[string]any)
	if !ok {
		return 0, false
	}
	v, ok := number(first, "id")
	if !ok || !fitsInt32(v) {
		return 0, false
	}
	return int(v), true
}

func object(m map[string]any, key string) map[string]any {
	obj, _ := m[key].(map[string]any)
	return obj
}

// number reads a JSON number or a numeric string. Non-finite values are rejected.
func number(m map[string]any, key string) (float64, bool) {
	var f float64
	switch v := m[key].(type) {
	case float64:
		f = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// roundHalfUp rounds toward positive infinity on .5 (24.5 -> 25, -2.5 -> -2).
func roundHalfUp(f float64) (int, bool) {
	r := math.Floor(f + 0.5)
	if !fitsInt32(r) {
		return 0, false
	}
	return int(r), true
}

func fitsInt32(f float64) bool {
	return f >= math.MinInt32 && f <= math.MaxInt32
}
