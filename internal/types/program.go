package types

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the only accepted representation of a program date.
const DateLayout = "2006-01-02"

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// FAQItem is one cached question/answer pair generated for a program.
type FAQItem struct {
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer" validate:"required"`
	Details  string `json:"details,omitempty"`
}

// Program is a scheduled itinerary entry.
type Program struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	Title         string    `json:"title"`
	Date          string    `json:"date"`
	StartTime     *string   `json:"start_time,omitempty"`
	EndTime       *string   `json:"end_time,omitempty"`
	Address       *string   `json:"address,omitempty"`
	Description   *string   `json:"description,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
	AISuggestions *string   `json:"ai_suggestions,omitempty"`
	AIFAQ         []FAQItem `json:"ai_faq"`
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProgramPatch carries the mutable subset of a program. Nil fields are left untouched.
type ProgramPatch struct {
	Title       *string `json:"title,omitempty"`
	Date        *string `json:"date,omitempty"`
	StartTime   *string `json:"start_time,omitempty"`
	EndTime     *string `json:"end_time,omitempty"`
	Address     *string `json:"address,omitempty"`
	Description *string `json:"description,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// ParseDate parses a YYYY-MM-DD calendar day in local time. It never goes through
// UTC, so the returned day always matches the input string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", ErrValidation, s)
	}
	return t, nil
}

// FormatDate renders t as a local calendar day.
func FormatDate(t time.Time) string {
	return t.In(time.Local).Format(DateLayout)
}

// ValidClock reports whether s is an HH:MM 24h time.
func ValidClock(s string) bool {
	return clockPattern.MatchString(s)
}

// Validate checks the invariants every stored program must hold.
func (p *Program) Validate() error {
	if p.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if _, err := ParseDate(p.Date); err != nil {
		return err
	}
	for _, c := range []*string{p.StartTime, p.EndTime} {
		if c != nil && *c != "" && !ValidClock(*c) {
			return fmt.Errorf("%w: invalid time %q, expected HH:MM", ErrValidation, *c)
		}
	}
	return nil
}

// Str returns a pointer to s, or nil when s is empty.
func Str(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
