package tokens

// Estimator estimates token counts for text.
type Estimator interface {
	// EstimateText estimates tokens for a single text string. kind is the
	// provider type ("openai", "anthropic", ...) and selects the ratio.
	EstimateText(text string, kind string) int

	// EstimatePrompt estimates tokens for a system and user prompt pair,
	// including message formatting overhead.
	EstimatePrompt(system, user string, kind string) int
}

// Overheads added by EstimatePrompt.
const (
	// MessageOverhead covers the role marker and message boundaries.
	MessageOverhead = 4

	// ConversationOverhead covers the reply priming tokens.
	ConversationOverhead = 3
)
