package interpret

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"tianji-hq/oracle/pkg/coalesce"
)

const samplePayload = `{
	"pillars": {
		"year":  {"stem": "庚", "branch": "午"},
		"month": {"stem": "辛", "branch": "巳"},
		"day":   {"stem": "甲", "branch": "子"},
		"hour":  {"stem": "戊", "branch": "辰"}
	},
	"gender": "Female",
	"birth_date": "1990-05-21",
	"birth_time": "08:30",
	"name": "Lin"
}`

func mustDecode(t *testing.T, raw string) *Payload {
	t.Helper()
	p, err := Decode(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	return p
}

func TestDecode_MissingPillars(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "absent", raw: ""},
		{name: "null", raw: "null"},
		{name: "not an object", raw: `"pillars"`},
		{name: "no pillars key", raw: `{"gender":"male"}`},
		{name: "null pillars", raw: `{"pillars":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(json.RawMessage(tt.raw))
			if !errors.Is(err, ErrMissingPillars) {
				t.Fatalf("expected ErrMissingPillars, got %v", err)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	p := mustDecode(t, samplePayload)

	prompt, err := BuildPrompt(p)
	if err != nil {
		t.Fatalf("BuildPrompt() failed: %v", err)
	}

	if prompt.System != SystemPrompt {
		t.Error("expected the shared system prompt")
	}
	for _, want := range []string{"Year: 庚午", "Day: 甲子", "Hour: 戊辰", "Gender: female", "Born: 1990-05-21 08:30"} {
		if !strings.Contains(prompt.User, want) {
			t.Errorf("user prompt missing %q:\n%s", want, prompt.User)
		}
	}
	if !strings.Contains(prompt.User, "general reading") {
		t.Error("expected a general reading request when no question is asked")
	}

	if !strings.HasPrefix(prompt.Fallback, "Lin, your day pillar is 甲子, making wood your day master.") {
		t.Errorf("unexpected fallback opening: %q", prompt.Fallback)
	}
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	a, err := BuildPrompt(mustDecode(t, samplePayload))
	if err != nil {
		t.Fatalf("BuildPrompt() failed: %v", err)
	}
	b, err := BuildPrompt(mustDecode(t, samplePayload))
	if err != nil {
		t.Fatalf("BuildPrompt() failed: %v", err)
	}
	if a != b {
		t.Error("identical payloads must produce identical prompts")
	}
}

func TestBuildPrompt_HourOptional(t *testing.T) {
	p := mustDecode(t, `{"pillars":{"year":{"stem":"jia","branch":"zi"},"month":{"stem":"yi","branch":"chou"},"day":{"stem":"bing","branch":"yin"}}}`)

	prompt, err := BuildPrompt(p)
	if err != nil {
		t.Fatalf("BuildPrompt() failed: %v", err)
	}
	if !strings.Contains(prompt.User, "Hour: unknown") {
		t.Errorf("expected unknown hour, got:\n%s", prompt.User)
	}
	if !strings.Contains(prompt.Fallback, "fire your day master") {
		t.Errorf("expected pinyin stems to resolve, got %q", prompt.Fallback)
	}
}

func TestBuildPrompt_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{name: "missing day", raw: `{"pillars":{"year":{"stem":"甲","branch":"子"},"month":{"stem":"乙","branch":"丑"}}}`, field: "pillars.day"},
		{name: "blank stem", raw: `{"pillars":{"year":{"stem":" ","branch":"子"},"month":{"stem":"乙","branch":"丑"},"day":{"stem":"丙","branch":"寅"}}}`, field: "pillars.year"},
		{name: "half hour", raw: `{"pillars":{"year":{"stem":"甲","branch":"子"},"month":{"stem":"乙","branch":"丑"},"day":{"stem":"丙","branch":"寅"},"hour":{"stem":"丁"}}}`, field: "pillars.hour"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildPrompt(mustDecode(t, tt.raw))
			var invalid *InvalidPayloadError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected InvalidPayloadError, got %T: %v", err, err)
			}
			if invalid.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, invalid.Field)
			}
		})
	}
}

func TestPillars_Balance(t *testing.T) {
	p := mustDecode(t, samplePayload)
	got := p.Pillars.Balance()

	want := map[Element]int{Metal: 2, Fire: 2, Wood: 1, Water: 1, Earth: 2}
	for e, n := range want {
		if got[e] != n {
			t.Errorf("%s: expected %d, got %d", e, n, got[e])
		}
	}
}

func TestKeyFields_StableAcrossIncidentalChanges(t *testing.T) {
	base := mustDecode(t, samplePayload)

	variant := mustDecode(t, samplePayload)
	variant.Gender = "  female "
	variant.Name = "Someone else"

	k1, err := coalesce.Key(base.KeyFields())
	if err != nil {
		t.Fatalf("Key() failed: %v", err)
	}
	k2, err := coalesce.Key(variant.KeyFields())
	if err != nil {
		t.Fatalf("Key() failed: %v", err)
	}
	if k1 != k2 {
		t.Error("gender case, whitespace and display name must not change the key")
	}

	variant.Question = "What about my career?"
	k3, _ := coalesce.Key(variant.KeyFields())
	if k3 == k1 {
		t.Error("a different question must change the key")
	}
}

func TestKeyFields_LocationAndTimezone(t *testing.T) {
	base := mustDecode(t, samplePayload)
	base.Location = "Shanghai"
	base.Timezone = "Asia/Shanghai"
	k0, _ := coalesce.Key(base.KeyFields())

	tests := []struct {
		name     string
		location string
		timezone string
		wantSame bool
	}{
		{name: "identical", location: "Shanghai", timezone: "Asia/Shanghai", wantSame: true},
		{name: "timezone case", location: " Shanghai ", timezone: "asia/shanghai", wantSame: true},
		{name: "other city", location: "Taipei", timezone: "Asia/Shanghai"},
		{name: "other timezone", location: "Shanghai", timezone: "Asia/Taipei"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustDecode(t, samplePayload)
			p.Location = tt.location
			p.Timezone = tt.timezone
			k, err := coalesce.Key(p.KeyFields())
			if err != nil {
				t.Fatalf("Key() failed: %v", err)
			}
			if (k == k0) != tt.wantSame {
				t.Errorf("same key = %v, want %v", k == k0, tt.wantSame)
			}
		})
	}
}
