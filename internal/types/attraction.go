package types

// Attraction is a discovered place. It lives only in the client until accepted.
type Attraction struct {
	ID                string   `json:"id"`
	Name              string   `json:"name" validate:"required"`
	Type              string   `json:"type"`
	Address           string   `json:"address"`
	Hours             string   `json:"hours"`
	Description       string   `json:"description"`
	EstimatedDuration int      `json:"estimatedDuration" validate:"gte=0"`
	Neighborhood      string   `json:"neighborhood"`
	ImageURL          string   `json:"imageUrl,omitempty"`
	InfoURL           string   `json:"infoUrl,omitempty"`
	Rating            *float64 `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	ReviewCount       *int     `json:"reviewCount,omitempty" validate:"omitempty,gte=0"`
}

// ItineraryEntry is one scheduled leg of an organized day.
type ItineraryEntry struct {
	Title       string `json:"title" validate:"required"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Address     string `json:"address"`
	Description string `json:"description"`
	TravelTime  string `json:"travel_time,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// OrganizedItinerary is the structured plan returned by itinerary organization.
type OrganizedItinerary struct {
	Programs []ItineraryEntry `json:"programs" validate:"dive"`
	Summary  string           `json:"summary"`
	Warnings []string         `json:"warnings"`
}

// PDFNarrative holds the generated text for a printed day. Programs is indexed
// positionally and always has exactly one entry per input program.
type PDFNarrative struct {
	Intro    string   `json:"intro"`
	Programs []string `json:"programs"`
}
