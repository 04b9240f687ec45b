// Package sanitizer cleans and bounds untrusted text before it is placed in a model prompt.
package sanitizer

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

type FieldType string

const (
	FieldMessage     FieldType = "message"
	FieldTitle       FieldType = "title"
	FieldAddress     FieldType = "address"
	FieldDescription FieldType = "description"
	FieldNotes       FieldType = "notes"
	FieldRegion      FieldType = "region"
	FieldTopic       FieldType = "topic"
	FieldContext     FieldType = "context"
	FieldSuggestions FieldType = "suggestions"
	FieldGeneric     FieldType = "generic"
)

// MaxLengths are rune ceilings per field type.
var MaxLengths = map[FieldType]int{
	FieldMessage:     4000,
	FieldTitle:       200,
	FieldAddress:     500,
	FieldDescription: 2000,
	FieldNotes:       2000,
	FieldRegion:      200,
	FieldTopic:       500,
	FieldContext:     8000,
	FieldSuggestions: 20000,
	FieldGeneric:     1000,
}

var (
	backtickRun = regexp.MustCompile("`{3,}")

	suspiciousPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions|prompts|rules)`),
		regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above|your)\s+(instructions|prompts|rules)`),
		regexp.MustCompile(`(?i)forget\s+(all\s+)?(previous|prior|your)\s+(instructions|rules)`),
		regexp.MustCompile(`(?i)ignore\s+(as\s+)?instru[çc][õo]es\s+anteriores`),
		regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|the)\b`),
		regexp.MustCompile(`(?i)act\s+as\s+(a|an)\s+(different|new)\b`),
		regexp.MustCompile(`(?i)new\s+instructions\s*:`),
		regexp.MustCompile(`(?i)system\s+prompt`),
		regexp.MustCompile(`(?i)\[/?(INST|SYS)\]`),
		regexp.MustCompile(`(?i)<\|?/?(system|assistant|user|im_start|im_end)\|?>`),
		regexp.MustCompile(`(?i)<</?SYS>>`),
		regexp.MustCompile(`(?im)^\s*(system|assistant)\s*:`),
	}
)

// MaxLength returns the ceiling for ft, falling back to the generic bound.
func MaxLength(ft FieldType) int {
	if n, ok := MaxLengths[ft]; ok {
		return n
	}
	return MaxLengths[FieldGeneric]
}

// Sanitize strips control characters (keeping newline and tab), collapses runs of
// three or more backticks, trims and truncates text to the bound of ft.
// Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(text string, ft FieldType) string {
	clean, _ := sanitize(text, ft)
	return clean
}

func sanitize(text string, ft FieldType) (string, bool) {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
	text = backtickRun.ReplaceAllString(text, "```")
	text = strings.TrimSpace(text)

	limit := MaxLength(ft)
	if utf8.RuneCountInString(text) <= limit {
		return text, false
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:limit])), true
}

// ContainsSuspiciousPatterns flags known prompt-injection phrasings. It never blocks.
func ContainsSuspiciousPatterns(text string) bool {
	for _, p := range suspiciousPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// SanitizeFields sanitizes every string reachable from fields. Strings and string
// slices use the type mapped for their key; nested maps are walked with the same
// mapping. Keys absent from types get the generic bound.
func SanitizeFields(fields map[string]any, types map[string]FieldType) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		ft, ok := types[k]
		if !ok {
			ft = FieldGeneric
		}
		out[k] = sanitizeValue(v, ft, types)
	}
	return out
}

func sanitizeValue(v any, ft FieldType, types map[string]FieldType) any {
	switch val := v.(type) {
	case string:
		return Sanitize(val, ft)
	case []string:
		res := make([]string, len(val))
		for i, s := range val {
			res[i] = Sanitize(s, ft)
		}
		return res
	case []any:
		res := make([]any, len(val))
		for i, item := range val {
			res[i] = sanitizeValue(item, ft, types)
		}
		return res
	case map[string]any:
		return SanitizeFields(val, types)
	default:
		return v
	}
}

// Sanitizer wraps the pure functions with logging and metrics.
type Sanitizer struct {
	logger    *slog.Logger
	onFlagged func(ctx context.Context, field FieldType)
}

func New(logger *slog.Logger, onFlagged func(ctx context.Context, field FieldType)) *Sanitizer {
	return &Sanitizer{logger: logger, onFlagged: onFlagged}
}

// Clean sanitizes text, logging truncation and flagging suspicious content.
// Suspicious input is only reported; the cleaned text is always returned.
func (s *Sanitizer) Clean(ctx context.Context, text string, ft FieldType) string {
	clean, truncated := sanitize(text, ft)
	if truncated {
		s.logger.WarnContext(ctx, "Input truncated",
			slog.String("field_type", string(ft)),
			slog.Int("original_length", utf8.RuneCountInString(text)),
			slog.Int("max_length", MaxLength(ft)))
	}
	if ContainsSuspiciousPatterns(clean) {
		s.logger.WarnContext(ctx, "Suspicious input detected",
			slog.Group("security",
				slog.String("field_type", string(ft)),
				slog.Int("length", len(clean))))
		if s.onFlagged != nil {
			s.onFlagged(ctx, ft)
		}
	}
	return clean
}

// CleanAll sanitizes a slice of strings with one field type, dropping empty results.
func (s *Sanitizer) CleanAll(ctx context.Context, values []string, ft FieldType) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if c := s.Clean(ctx, v, ft); c != "" {
			out = append(out, c)
		}
	}
	return out
}
