package types

import (
	"time"

	"github.com/google/uuid"
)

// TravelPace is the preferred rhythm of a trip day.
type TravelPace string

const (
	TravelPaceRelaxed  TravelPace = "relaxed"
	TravelPaceModerate TravelPace = "moderate"
	TravelPaceIntense  TravelPace = "intense"
)

// BudgetLevel is the spending band the traveler is comfortable with.
type BudgetLevel string

const (
	BudgetLevelBudget   BudgetLevel = "budget"
	BudgetLevelModerate BudgetLevel = "moderate"
	BudgetLevelLuxury   BudgetLevel = "luxury"
)

// Valid reports whether p is a known pace. The empty value is accepted as "not set".
func (p TravelPace) Valid() bool {
	switch p {
	case "", TravelPaceRelaxed, TravelPaceModerate, TravelPaceIntense:
		return true
	}
	return false
}

// Valid reports whether b is a known budget level. The empty value is accepted as "not set".
func (b BudgetLevel) Valid() bool {
	switch b {
	case "", BudgetLevelBudget, BudgetLevelModerate, BudgetLevelLuxury:
		return true
	}
	return false
}

type Traveler struct {
	Name      string   `json:"name"`
	Age       *int     `json:"age,omitempty"`
	Interests []string `json:"interests"`
}

// TravelProfile is the per-user preference record used to personalise every prompt.
type TravelProfile struct {
	UserID                   uuid.UUID   `json:"user_id"`
	Travelers                []Traveler  `json:"travelers"`
	DietaryRestrictions      []string    `json:"dietary_restrictions"`
	MobilityNotes            string      `json:"mobility_notes,omitempty"`
	Pace                     TravelPace  `json:"pace,omitempty"`
	BudgetLevel              BudgetLevel `json:"budget_level,omitempty"`
	PreferredCategories      []string    `json:"preferred_categories"`
	AvoidTopics              []string    `json:"avoid_topics"`
	Interests                []string    `json:"interests"`
	TransportationPreference string      `json:"transportation_preference,omitempty"`
	WeatherSensitivity       string      `json:"weather_sensitivity,omitempty"`
	MorningPreference        string      `json:"morning_preference,omitempty"`
	GroupDynamics            string      `json:"group_dynamics,omitempty"`
	SpecialOccasions         []string    `json:"special_occasions"`
	Notes                    string      `json:"notes,omitempty"`
	UpdatedAt                time.Time   `json:"updated_at"`
}

// TripConfig is the per-user trip window.
type TripConfig struct {
	UserID       uuid.UUID `json:"user_id"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
	HotelAddress string    `json:"hotel_address,omitempty"`
	Destination  string    `json:"destination,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TravelContext is rebuilt for every AI request and never persisted.
type TravelContext struct {
	UserID   uuid.UUID
	Profile  *TravelProfile
	Trip     *TripConfig
	Programs []Program
	AsOf     time.Time
	Region   string
}
