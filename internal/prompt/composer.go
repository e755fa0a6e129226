package prompt

import (
	"fmt"
	"strings"
)

// NegativeDelimiter separates the positive and negative halves of an
// art-director response.
const NegativeDelimiter = "NEGATIVE:"

// ArtDirection is the image prompt derived from one exchange.
type ArtDirection struct {
	Positive string
	Negative string
}

// Composer builds the chat contexts for the character and the art director.
// It has no side effects and is safe for concurrent use.
type Composer struct {
	persona         Persona
	negativePrompts bool
}

// NewComposer creates a Composer. When negativePrompts is set the art director
// is asked for a negative section and its output is split on NegativeDelimiter.
func NewComposer(p Persona, negativePrompts bool) *Composer {
	return &Composer{persona: p.withDefaults(), negativePrompts: negativePrompts}
}

// CharacterContext returns the character instruction, the well-formed part of
// history and the new user message, in that order.
func (c *Composer) CharacterContext(history []HistoryEntry, message string) []Message {
	turns := FilterHistory(history)
	msgs := make([]Message, 0, len(turns)+2)
	msgs = append(msgs, Message{Role: RoleSystem, Content: c.persona.CharacterPrompt})
	for _, t := range turns {
		msgs = append(msgs, Message{Role: t.Role, Content: t.Text})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: message})
	return msgs
}

// ArtDirectionContext returns the art-director instruction and a single user
// turn quoting the exchange.
func (c *Composer) ArtDirectionContext(message, reply string) []Message {
	system := c.persona.ArtDirectorPrompt
	if c.negativePrompts {
		system += "\n\n" + c.persona.NegativeGuidance
	}
	return []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: fmt.Sprintf("User: \"%s\"\n%s: \"%s\"", message, c.persona.Speaker, reply)},
	}
}

// ArtDirection interprets raw art-director output under the composer's
// negative-prompt policy.
func (c *Composer) ArtDirection(text string) ArtDirection {
	if !c.negativePrompts {
		return ArtDirection{Positive: strings.TrimSpace(text)}
	}
	return ParseArtDirection(text)
}

// ParseArtDirection splits text on the first NegativeDelimiter. Without a
// delimiter the whole text is the positive prompt.
func ParseArtDirection(text string) ArtDirection {
	pos, neg, found := strings.Cut(text, NegativeDelimiter)
	if !found {
		return ArtDirection{Positive: strings.TrimSpace(text)}
	}
	return ArtDirection{
		Positive: strings.TrimSpace(pos),
		Negative: strings.TrimSpace(neg),
	}
}
