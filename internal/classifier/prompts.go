package classifier

import (
	"fmt"
	"strings"
)

const moderationSystemInstruction = `You are a content moderation agent for a group chat.
You receive the recent conversation context followed by one message under review.
Judge only the message under review; the context exists solely to help you
understand the conversation. Classify the message into exactly one category:
scam, phishing, not_suitable_for_work, unsolicited_promotion, other_spam, or
not_spam. When in doubt, prefer not_spam.`

// buildPrompt renders the context block plus the message under review into a
// single user turn.
func buildPrompt(text string, contextMsgs []ContextMessage) string {
	var sb strings.Builder

	if len(contextMsgs) > 0 {
		sb.WriteString("Recent conversation context (oldest first):\n")
		for _, m := range contextMsgs {
			fmt.Fprintf(&sb, "%s: %s\n", m.SenderLabel, m.Text)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Message under review:\n")
	sb.WriteString(text)
	return sb.String()
}
