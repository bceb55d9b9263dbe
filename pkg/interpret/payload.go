package interpret

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingPillars is returned when a payload has no pillars object.
var ErrMissingPillars = errors.New("payload.pillars is required")

// Pillar is one of the four pillars: a heavenly stem over an earthly branch.
// Stems and branches may be written in Chinese characters or pinyin.
type Pillar struct {
	Stem   string `json:"stem"`
	Branch string `json:"branch"`
}

func (p *Pillar) String() string {
	if p == nil {
		return "unknown"
	}
	return strings.TrimSpace(p.Stem) + strings.TrimSpace(p.Branch)
}

// Pillars holds the year, month, day and hour pillars. The hour pillar is
// optional because many people do not know their birth hour.
type Pillars struct {
	Year  *Pillar `json:"year"`
	Month *Pillar `json:"month"`
	Day   *Pillar `json:"day"`
	Hour  *Pillar `json:"hour,omitempty"`
}

// Payload is the domain payload of an interpretation request.
type Payload struct {
	Pillars   *Pillars `json:"pillars"`
	Gender    string   `json:"gender,omitempty"`
	BirthDate string   `json:"birth_date,omitempty"`
	BirthTime string   `json:"birth_time,omitempty"`
	Location  string   `json:"location,omitempty"`
	Timezone  string   `json:"timezone,omitempty"`
	Name      string   `json:"name,omitempty"`
	Question  string   `json:"question,omitempty"`
}

// Decode parses a raw payload. A payload that is absent, not an object, or
// has no pillars yields ErrMissingPillars.
func Decode(raw json.RawMessage) (*Payload, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ErrMissingPillars
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingPillars, err)
	}
	if p.Pillars == nil {
		return nil, ErrMissingPillars
	}
	return &p, nil
}

// Validate checks that the year, month and day pillars are complete.
func (p *Payload) Validate() error {
	if p == nil || p.Pillars == nil {
		return ErrMissingPillars
	}
	required := []struct {
		name   string
		pillar *Pillar
	}{
		{"year", p.Pillars.Year},
		{"month", p.Pillars.Month},
		{"day", p.Pillars.Day},
	}
	for _, r := range required {
		if r.pillar == nil || strings.TrimSpace(r.pillar.Stem) == "" || strings.TrimSpace(r.pillar.Branch) == "" {
			return &InvalidPayloadError{Field: "pillars." + r.name, Message: "stem and branch are required"}
		}
	}
	if h := p.Pillars.Hour; h != nil && (strings.TrimSpace(h.Stem) == "") != (strings.TrimSpace(h.Branch) == "") {
		return &InvalidPayloadError{Field: "pillars.hour", Message: "stem and branch must be given together"}
	}
	return nil
}

// KeyFields returns the fields that identify an interpretation, for use as
// a coalescing key. The display name is excluded because it does not change
// the reading.
func (p *Payload) KeyFields() map[string]any {
	pillars := map[string]any{}
	if p.Pillars != nil {
		for name, pl := range map[string]*Pillar{
			"year":  p.Pillars.Year,
			"month": p.Pillars.Month,
			"day":   p.Pillars.Day,
			"hour":  p.Pillars.Hour,
		} {
			if pl != nil {
				pillars[name] = map[string]any{"stem": pl.Stem, "branch": pl.Branch}
			}
		}
	}
	return map[string]any{
		"pillars":    pillars,
		"gender":     p.Gender,
		"birth_date": p.BirthDate,
		"birth_time": p.BirthTime,
		"location":   p.Location,
		"timezone":   p.Timezone,
		"question":   p.Question,
	}
}

// InvalidPayloadError describes a malformed payload field.
type InvalidPayloadError struct {
	Field   string
	Message string
}

func (e *InvalidPayloadError) Error() string {
	return fmt.Sprintf("invalid payload field %q: %s", e.Field, e.Message)
}
