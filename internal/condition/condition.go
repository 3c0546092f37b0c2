package condition

// Icon is the display category for an upstream weather condition code.
type Icon int

const (
	IconDefault Icon = iota
	IconThunderstorm
	IconDrizzle
	IconRain
	IconSnow
	IconAtmosphere
	IconClear
	IconClouds
)

// String returns the icon asset name.
func (i Icon) String() string {
	switch i {
	case IconThunderstorm:
		return "thunderstorm"
	case IconDrizzle:
		return "drizzle"
	case IconRain:
		return "rain"
	case IconSnow:
		return "snow"
	case IconAtmosphere:
		return "atmosphere"
	case IconClear:
		return "clear"
	case IconClouds:
		return "clouds"
	default:
		return "default_weather"
	}
}

// MarshalText encodes the icon as its asset name.
func (i Icon) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// IconFor maps an OpenWeatherMap condition id to an icon.
// Ranges are half-open except 800 (Clear) and the closed 801-804 Clouds band;
// anything above 804 maps to IconDefault.
func IconFor(code int) Icon {
	switch {
	case code < 300:
		return IconThunderstorm
	case code < 400:
		return IconDrizzle
	case code < 600:
		return IconRain
	case code < 700:
		return IconSnow
	case code < 800:
		return IconAtmosphere
	case code == 800:
		return IconClear
	case code <= 804:
		return IconClouds
	default:
		return IconDefault
	}
}
