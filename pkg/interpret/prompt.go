package interpret

import (
	"fmt"
	"strings"
)

// SystemPrompt frames every interpretation.
const SystemPrompt = `You are an experienced BaZi (Four Pillars of Destiny) consultant.
Interpret the chart you are given in warm, plain language. Cover the day master,
the balance of the five elements, and practical guidance. Avoid fatalistic
predictions and medical, legal or financial advice. Answer in at most six short
paragraphs.`

// Prompt is everything a generation needs.
type Prompt struct {
	System   string
	User     string
	Fallback string
}

// BuildPrompt builds the prompts and the offline fallback for a payload.
func BuildPrompt(p *Payload) (Prompt, error) {
	if err := p.Validate(); err != nil {
		return Prompt{}, err
	}
	return Prompt{
		System:   SystemPrompt,
		User:     userPrompt(p),
		Fallback: fallback(p),
	}, nil
}

func userPrompt(p *Payload) string {
	var sb strings.Builder

	sb.WriteString("Four Pillars chart:\n")
	fmt.Fprintf(&sb, "- Year: %s\n", p.Pillars.Year)
	fmt.Fprintf(&sb, "- Month: %s\n", p.Pillars.Month)
	fmt.Fprintf(&sb, "- Day: %s\n", p.Pillars.Day)
	fmt.Fprintf(&sb, "- Hour: %s\n", p.Pillars.Hour)

	if g := strings.TrimSpace(p.Gender); g != "" {
		fmt.Fprintf(&sb, "Gender: %s\n", strings.ToLower(g))
	}
	if d := strings.TrimSpace(p.BirthDate); d != "" {
		birth := d
		if t := strings.TrimSpace(p.BirthTime); t != "" {
			birth += " " + t
		}
		if tz := strings.TrimSpace(p.Timezone); tz != "" {
			birth += " (" + tz + ")"
		}
		if loc := strings.TrimSpace(p.Location); loc != "" {
			birth += " in " + loc
		}
		fmt.Fprintf(&sb, "Born: %s\n", birth)
	}

	sb.WriteString("Element balance: ")
	sb.WriteString(formatBalance(p.Pillars.Balance()))
	sb.WriteString("\n")

	if q := strings.TrimSpace(p.Question); q != "" {
		fmt.Fprintf(&sb, "\nThe client asks: %s\n", q)
	} else {
		sb.WriteString("\nGive a general reading of this chart.\n")
	}
	return sb.String()
}

func formatBalance(counts map[Element]int) string {
	parts := make([]string, 0, len(Elements))
	for _, e := range Elements {
		parts = append(parts, fmt.Sprintf("%s %d", e, counts[e]))
	}
	return strings.Join(parts, ", ")
}

var elementAdvice = map[Element]string{
	Wood:  "growth, planning and generosity",
	Fire:  "expression, warmth and visibility",
	Earth: "stability, patience and care for others",
	Metal: "discipline, clarity and principled decisions",
	Water: "insight, adaptability and careful listening",
}

// fallback writes a short reading derived only from the element balance.
func fallback(p *Payload) string {
	counts := p.Pillars.Balance()

	strongest, weakest := Elements[0], Elements[0]
	for _, e := range Elements[1:] {
		if counts[e] > counts[strongest] {
			strongest = e
		}
		if counts[e] < counts[weakest] {
			weakest = e
		}
	}

	var sb strings.Builder
	if n := strings.TrimSpace(p.Name); n != "" {
		fmt.Fprintf(&sb, "%s, your ", n)
	} else {
		sb.WriteString("Your ")
	}
	fmt.Fprintf(&sb, "day pillar is %s", p.Pillars.Day)
	if e, ok := StemElement(p.Pillars.Day.Stem); ok {
		fmt.Fprintf(&sb, ", making %s your day master", e)
	}
	sb.WriteString(". ")

	fmt.Fprintf(&sb, "Across the chart the element balance is %s. ", formatBalance(counts))
	fmt.Fprintf(&sb, "%s is the most prominent element, which favours %s. ",
		capitalize(string(strongest)), elementAdvice[strongest])
	if counts[weakest] < counts[strongest] {
		fmt.Fprintf(&sb, "%s is the least represented, so consciously cultivating %s will bring the chart into better balance.",
			capitalize(string(weakest)), elementAdvice[weakest])
	} else {
		sb.WriteString("The elements are evenly represented, a sign of adaptability.")
	}
	return sb.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
