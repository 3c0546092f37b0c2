package record

// MessageCategory groups temperatures into clothing advice.
type MessageCategory string

const (
	MessageIceCream MessageCategory = "ice_cream"
	MessageShorts   MessageCategory = "shorts"
	MessageJacket   MessageCategory = "jacket"
	MessageCold     MessageCategory = "cold"
)

// MessageCategoryFor applies the thresholds >25, >20, <10, in that order; 10-20 is jacket weather.
func MessageCategoryFor(tempCelsius int) MessageCategory {
	switch {
	case tempCelsius > 25:
		return MessageIceCream
	case tempCelsius > 20:
		return MessageShorts
	case tempCelsius < 10:
		return MessageCold
	default:
		return MessageJacket
	}
}

// Message returns the display text for the temperature's category.
func Message(tempCelsius int) string {
	switch MessageCategoryFor(tempCelsius) {
	case MessageIceCream:
		return "It’s 🍦 time"
	case MessageShorts:
		return "Time for shorts and 👕"
	case MessageCold:
		return "You’ll need 🧣 and 🧤"
	default:
		return "Bring a 🧥 just in case"
	}
}
