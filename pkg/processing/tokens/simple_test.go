package tokens

import (
	"strings"
	"testing"
)

func TestSimpleEstimator_EstimateText(t *testing.T) {
	estimator := NewSimpleEstimator(nil)

	tests := []struct {
		name        string
		text        string
		kind        string
		expectedMin int
		expectedMax int
	}{
		{
			name:        "empty text",
			text:        "",
			kind:        "openai",
			expectedMin: 0,
			expectedMax: 0,
		},
		{
			name:        "single character",
			text:        "a",
			kind:        "openai",
			expectedMin: 1,
			expectedMax: 1,
		},
		{
			name:        "short text openai",
			text:        "Hello, world!",
			kind:        "openai",
			expectedMin: 3,
			expectedMax: 4,
		},
		{
			name:        "short text anthropic",
			text:        "Hello, world!",
			kind:        "anthropic",
			expectedMin: 4,
			expectedMax: 4,
		},
		{
			name:        "unknown kind uses default",
			text:        "Hello, world!",
			kind:        "mock",
			expectedMin: 3,
			expectedMax: 4,
		},
		{
			name:        "han characters count one each",
			text:        "甲木日主",
			kind:        "openai",
			expectedMin: 4,
			expectedMax: 4,
		},
		{
			name:        "mixed text",
			text:        "Day master 甲 (Wood)",
			kind:        "openai",
			expectedMin: 5,
			expectedMax: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := estimator.EstimateText(tt.text, tt.kind)
			if got < tt.expectedMin || got > tt.expectedMax {
				t.Errorf("EstimateText(%q) = %d, want between %d and %d", tt.text, got, tt.expectedMin, tt.expectedMax)
			}
		})
	}
}

func TestSimpleEstimator_PrefixAndCustomRatios(t *testing.T) {
	estimator := NewSimpleEstimator(map[string]float64{"deep": 2.0})

	text := strings.Repeat("x", 40)
	if got := estimator.EstimateText(text, "deepseek"); got != 20 {
		t.Errorf("prefix match = %d, want 20", got)
	}
	if got := estimator.EstimateText(text, "openai"); got != 10 {
		t.Errorf("fallback ratio = %d, want 10", got)
	}
}

func TestSimpleEstimator_EstimatePrompt(t *testing.T) {
	estimator := NewSimpleEstimator(nil)

	system := strings.Repeat("a", 40)
	user := strings.Repeat("b", 80)

	want := ConversationOverhead + 2*MessageOverhead + 10 + 20
	if got := estimator.EstimatePrompt(system, user, "openai"); got != want {
		t.Errorf("EstimatePrompt() = %d, want %d", got, want)
	}

	want = ConversationOverhead + MessageOverhead + 20
	if got := estimator.EstimatePrompt("", user, "openai"); got != want {
		t.Errorf("EstimatePrompt() without system = %d, want %d", got, want)
	}
}

func TestSimpleEstimator_ImplementsEstimator(t *testing.T) {
	var _ Estimator = NewSimpleEstimator(nil)
}
