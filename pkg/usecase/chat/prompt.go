package chat

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/recall/pkg/index"
	"github.com/m-mizutani/recall/pkg/model"
)

// Prompt sections are tagged variants: a retrieved memory can only ever
// render as background knowledge and a history turn only as
// conversation, so the labeling is enforced by structure rather than by
// convention at each call site.
type section interface {
	render(sb *strings.Builder)
}

// conversationTurn renders one past turn in the conversation section
type conversationTurn struct {
	turn model.HistoryTurn
}

func (s conversationTurn) render(sb *strings.Builder) {
	sb.WriteString(string(s.turn.Role))
	sb.WriteString(": ")
	sb.WriteString(s.turn.Text)
	sb.WriteString("\n")
}

// backgroundFact renders one retrieved memory, ranked by similarity
type backgroundFact struct {
	rank  int
	entry model.MemoryEntry
}

func (s backgroundFact) render(sb *strings.Builder) {
	fmt.Fprintf(sb, "%d. %s\n", s.rank, s.entry.Text)
}

// composePrompt builds the generation prompt in a fixed order: identity,
// recent conversation (chronological), background knowledge (ranked by
// similarity), current message. Identical inputs always produce an
// identical string; nothing non-deterministic (timestamps, scores) is
// rendered.
func composePrompt(identity string, turns []model.HistoryTurn, memories []index.Hit, message string) string {
	var sb strings.Builder

	sb.WriteString(strings.TrimRight(identity, "\n"))
	sb.WriteString("\n")

	if len(turns) > 0 {
		sb.WriteString("\n## Conversation so far\n")
		for _, turn := range turns {
			conversationTurn{turn: turn}.render(&sb)
		}
	}

	if len(memories) > 0 {
		sb.WriteString("\n## Background knowledge\n")
		sb.WriteString("Facts retrieved from memory, most relevant first. These are background, not part of the conversation.\n")
		for i, hit := range memories {
			backgroundFact{rank: i + 1, entry: hit.Entry}.render(&sb)
		}
	}

	sb.WriteString("\n## Current message\n")
	sb.WriteString("user: ")
	sb.WriteString(message)
	sb.WriteString("\n")

	return sb.String()
}

// ComposePromptForTest exposes composePrompt for tests
func ComposePromptForTest(identity string, turns []model.HistoryTurn, memories []index.Hit, message string) string {
	return composePrompt(identity, turns, memories, message)
}
