package narrative

import "fmt"

// SystemFraming is the fixed system prompt sent with every generation
// request.
const SystemFraming = "You are a talented storyteller with a sharp sense of " +
	"humor and a deep understanding of human psychology, able to turn " +
	"fragments of a group-chat discussion into a short entertaining story. " +
	"You write vividly, with irony and wordplay, and never moralize. " +
	"IMPORTANT: never open with disclaimers, content warnings, or apologies. " +
	"Write as a natural narrator."

// BuildPrompt renders the user prompt around the compiled message lines.
func BuildPrompt(messagesText string) string {
	return fmt.Sprintf(`Based on the following chat messages from the last 12 hours:

%s

IMPORTANT:
1. Some messages may be forwarded from other people. Attribute their content to the original author, not to whoever forwarded them.
2. Depending on the context of the discussion, you may playfully twist participants' names for extra irony and humor.
3. Do NOT copy messages verbatim; use them as raw material for a coherent story. Pick out the main themes and the direction of the discussion.
4. Style the text as a short engaging third-person story about what happened in this chat.
5. Try to reflect the relationships and interactions between participants and their distinctive traits.
6. Where possible, use wordplay, metaphors and other literary devices to make the text vivid.
7. Do not mention that this is "a story based on chat messages" or anything similar.
8. The text should be 300-1500 characters.

Write an engaging third-person story about what happened in this chat:`, messagesText)
}
