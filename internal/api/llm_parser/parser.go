// Package llmParser turns free-form model text into validated domain records.
package llmParser

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

var fencePattern = regexp.MustCompile("(?s)```([A-Za-z0-9_-]*)[ \t]*\r?\n?(.*?)```")

var (
	errNoPayload   = errors.New("no JSON payload found")
	errWrongShape  = errors.New("unexpected JSON shape")
	leadingNumber  = regexp.MustCompile(`-?\d+(?:[.,]\d+)?`)
	attractionKeys = []string{"attractions", "results", "items"}
)

// ExtractPayload returns the contents of the first fenced block that is not an
// action block, or the whole trimmed text when there is none.
func ExtractPayload(raw string) string {
	for _, m := range fencePattern.FindAllStringSubmatch(raw, -1) {
		if strings.EqualFold(m[1], actionFence) {
			continue
		}
		return strings.TrimSpace(m[2])
	}
	return strings.TrimSpace(raw)
}

// decode parses the payload strictly, then retries on the outermost bracketed
// span so a stray sentence around the JSON does not fail the whole response.
func decode(raw string, v any) error {
	payload := ExtractPayload(raw)
	if payload == "" {
		return errNoPayload
	}
	err := json.Unmarshal([]byte(payload), v)
	if err == nil {
		return nil
	}
	if span, ok := outermostJSON(payload); ok && span != payload {
		if err2 := json.Unmarshal([]byte(span), v); err2 == nil {
			return nil
		}
	}
	return err
}

func outermostJSON(s string) (string, bool) {
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return "", false
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// flexNumber accepts 90, 90.5, "90", "90 min" or "4,5".
type flexNumber struct {
	value float64
	set   bool
}

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		f.value, f.set = n, true
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return nil
	}
	m := leadingNumber.FindString(str)
	if m == "" {
		return nil
	}
	n, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	if err != nil {
		return nil
	}
	f.value, f.set = n, true
	return nil
}

// flexString accepts a string or a number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexString(n.String())
	}
	return nil
}

type rawAttraction struct {
	ID                flexString `json:"id"`
	Name              flexString `json:"name"`
	Type              flexString `json:"type"`
	Address           flexString `json:"address"`
	Hours             flexString `json:"hours"`
	Description       flexString `json:"description"`
	EstimatedDuration flexNumber `json:"estimatedDuration"`
	Neighborhood      flexString `json:"neighborhood"`
	ImageURL          flexString `json:"imageUrl"`
	InfoURL           flexString `json:"infoUrl"`
	Rating            flexNumber `json:"rating"`
	ReviewCount       flexNumber `json:"reviewCount"`
}

func (r rawAttraction) toAttraction() types.Attraction {
	a := types.Attraction{
		ID:                strings.TrimSpace(string(r.ID)),
		Name:              strings.TrimSpace(string(r.Name)),
		Type:              string(r.Type),
		Address:           string(r.Address),
		Hours:             string(r.Hours),
		Description:       string(r.Description),
		EstimatedDuration: int(r.EstimatedDuration.value),
		Neighborhood:      string(r.Neighborhood),
		ImageURL:          string(r.ImageURL),
		InfoURL:           string(r.InfoURL),
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	// Out-of-range numbers are the model guessing; they cost the field, not the batch.
	if a.EstimatedDuration < 0 {
		a.EstimatedDuration = 0
	}
	if r.Rating.set && r.Rating.value >= 0 && r.Rating.value <= 5 {
		v := r.Rating.value
		a.Rating = &v
	}
	if r.ReviewCount.set && r.ReviewCount.value >= 0 {
		v := int(r.ReviewCount.value)
		a.ReviewCount = &v
	}
	return a
}

// ParseAttractions accepts a bare array or an object wrapping one. Every record
// gets an id if the model did not supply one.
func ParseAttractions(raw string) ([]types.Attraction, error) {
	var rawList []rawAttraction
	if err := decodeList(raw, &rawList, attractionKeys); err != nil {
		return nil, types.NewMalformedOutputError(raw, err)
	}

	out := make([]types.Attraction, 0, len(rawList))
	for i, r := range rawList {
		a := r.toAttraction()
		if err := validate.Struct(a); err != nil {
			return nil, types.NewMalformedOutputError(raw, fmt.Errorf("attraction %d: %w", i, err))
		}
		out = append(out, a)
	}
	return out, nil
}

// decodeList decodes an array payload, or an object whose first matching key
// holds the array.
func decodeList[T any](raw string, dst *[]T, keys []string) error {
	var probe json.RawMessage
	if err := decode(raw, &probe); err != nil {
		return err
	}
	probe = json.RawMessage(strings.TrimSpace(string(probe)))
	if len(probe) == 0 {
		return errNoPayload
	}

	switch probe[0] {
	case '[':
		if err := json.Unmarshal(probe, dst); err != nil {
			return err
		}
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(probe, &obj); err != nil {
			return err
		}
		found := false
		for _, k := range keys {
			if v, ok := obj[k]; ok {
				if err := json.Unmarshal(v, dst); err != nil {
					return err
				}
				found = true
				break
			}
		}
		if !found {
			return errWrongShape
		}
	default:
		return errWrongShape
	}

	if *dst == nil {
		*dst = []T{}
	}
	return nil
}

// ParseItinerary expects {programs, summary, warnings}. Absent arrays come back empty.
func ParseItinerary(raw string) (*types.OrganizedItinerary, error) {
	var it types.OrganizedItinerary
	var probe json.RawMessage
	if err := decode(raw, &probe); err != nil {
		return nil, types.NewMalformedOutputError(raw, err)
	}
	if p := strings.TrimSpace(string(probe)); p == "" || p[0] != '{' {
		return nil, types.NewMalformedOutputError(raw, errWrongShape)
	}
	if err := json.Unmarshal(probe, &it); err != nil {
		return nil, types.NewMalformedOutputError(raw, err)
	}

	if it.Programs == nil {
		it.Programs = []types.ItineraryEntry{}
	}
	if it.Warnings == nil {
		it.Warnings = []string{}
	}
	if err := validate.Struct(it); err != nil {
		return nil, types.NewMalformedOutputError(raw, err)
	}
	return &it, nil
}

// ParseFAQ expects an array of {question, answer} or {"faq": [...]}.
func ParseFAQ(raw string) ([]types.FAQItem, error) {
	var items []types.FAQItem
	if err := decodeList(raw, &items, []string{"faq", "questions", "items"}); err != nil {
		return nil, types.NewMalformedOutputError(raw, err)
	}
	for i, it := range items {
		if err := validate.Struct(it); err != nil {
			return nil, types.NewMalformedOutputError(raw, fmt.Errorf("faq %d: %w", i, err))
		}
	}
	return items, nil
}

// ParseFAQOrEmpty degrades any failure to an empty list.
func ParseFAQOrEmpty(raw string) []types.FAQItem {
	items, err := ParseFAQ(raw)
	if err != nil {
		return []types.FAQItem{}
	}
	return items
}
