package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"storybot/internal/generate"
	"storybot/internal/store"
)

// OutcomeKind identifies the result of one compilation pass.
type OutcomeKind int

const (
	Success OutcomeKind = iota
	NoNewMessages
	OnlyNoiseMessages
	RateLimited
	PayloadTooLarge
	GenerationFailed
)

// Outcome is the result of Compile. Text is set on Success only; Err
// carries the collaborator error for the failure kinds.
type Outcome struct {
	Kind OutcomeKind
	Text string
	Err  error
}

// Limits bound the size of one generation batch. Batches above MaxBatch
// keep the first KeepHead and last KeepTail messages: opening and
// closing context matter more to the narrative arc than the middle.
type Limits struct {
	MaxBatch int
	KeepHead int
	KeepTail int
}

// DefaultLimits returns the standard batch bounds.
func DefaultLimits() Limits {
	return Limits{MaxBatch: 50, KeepHead: 20, KeepTail: 30}
}

// DefaultTrigger is the command word whose variants are filtered out of
// the narrative input.
const DefaultTrigger = "wtf"

const unknownSender = "unknown sender"

// Compiler turns a chat's unprocessed messages into one generation
// request and consumes them on success.
type Compiler struct {
	log     *store.Log
	gen     generate.Generator
	trigger string
	limits  Limits
	logger  *zap.Logger
}

// NewCompiler creates a compiler. Empty trigger and zero limits fall
// back to the defaults.
func NewCompiler(log *store.Log, gen generate.Generator, trigger string, limits Limits, logger *zap.Logger) *Compiler {
	if trigger == "" {
		trigger = DefaultTrigger
	}
	if limits.MaxBatch <= 0 {
		limits = DefaultLimits()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler{log: log, gen: gen, trigger: strings.ToLower(trigger), limits: limits, logger: logger}
}

// Compile builds and sends one narrative request for the chat.
//
// On success every message that was unprocessed at the start is marked
// processed, including filtered-out noise and truncation discards: they
// were considered and must not resurface in a later compilation. No
// outcome other than Success consumes anything.
func (c *Compiler) Compile(ctx context.Context, chatID int64) Outcome {
	all := c.log.List(chatID)

	var unprocessed []store.Message
	var positions []int
	for i, m := range all {
		if !m.Processed {
			unprocessed = append(unprocessed, m)
			positions = append(positions, i)
		}
	}
	if len(unprocessed) == 0 {
		return Outcome{Kind: NoNewMessages}
	}

	eligible := c.filterNoise(chatID, unprocessed)
	if len(eligible) == 0 {
		// Pure noise was still considered; consume it so it cannot
		// resurface in a later compilation.
		c.log.MarkProcessed(chatID, positions)
		return Outcome{Kind: OnlyNoiseMessages}
	}

	participants := participants(eligible)
	c.logger.Info("compiling narrative batch",
		zap.Int64("chat_id", chatID),
		zap.Int("unprocessed", len(unprocessed)),
		zap.Int("eligible", len(eligible)),
		zap.Strings("participants", participants))

	retained := truncateBatch(eligible, c.limits)
	prompt := BuildPrompt(renderLines(retained))

	text, err := c.gen.Generate(ctx, SystemFraming, prompt)
	if err != nil {
		switch {
		case errors.Is(err, generate.ErrRateLimited):
			return Outcome{Kind: RateLimited, Err: err}
		case errors.Is(err, generate.ErrPayloadTooLarge):
			return Outcome{Kind: PayloadTooLarge, Err: err}
		default:
			return Outcome{Kind: GenerationFailed, Err: err}
		}
	}
	if strings.TrimSpace(text) == "" {
		return Outcome{Kind: GenerationFailed, Err: fmt.Errorf("generator returned empty text")}
	}

	c.log.MarkProcessed(chatID, positions)
	return Outcome{Kind: Success, Text: text}
}

// filterNoise drops trigger-command variants and messages with no
// derivable text body.
func (c *Compiler) filterNoise(chatID int64, msgs []store.Message) []store.Message {
	out := make([]store.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Body == "" {
			c.logger.Warn("dropping message without text body",
				zap.Int64("chat_id", chatID), zap.String("sender", m.Sender))
			continue
		}
		if c.isNoise(m.Body) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// isNoise reports whether the body is a trigger-command variant:
// the bare word, the slash command, the bot-addressed slash command, or
// an addressed mention of the trigger.
func (c *Compiler) isNoise(body string) bool {
	text := strings.ToLower(body)
	if text == c.trigger || text == "/"+c.trigger {
		return true
	}
	if strings.HasPrefix(text, "/"+c.trigger+"@") {
		return true
	}
	if strings.Contains(text, c.trigger) &&
		(strings.HasPrefix(text, "@") || strings.Contains(text, "@"+c.trigger)) {
		return true
	}
	return false
}

// truncateBatch keeps head and tail of an oversized batch in original
// chronological order.
func truncateBatch(msgs []store.Message, limits Limits) []store.Message {
	if len(msgs) <= limits.MaxBatch {
		return msgs
	}
	out := make([]store.Message, 0, limits.KeepHead+limits.KeepTail)
	out = append(out, msgs[:limits.KeepHead]...)
	out = append(out, msgs[len(msgs)-limits.KeepTail:]...)
	return out
}

// renderLines renders the retained messages into the payload body, one
// line per message in chronological order.
func renderLines(msgs []store.Message) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		sender := m.Sender
		if sender == "" {
			sender = "Unknown participant"
		}
		if m.IsForwarded {
			forwarder := m.ForwardedBy
			if forwarder == "" {
				forwarder = unknownSender
			}
			fmt.Fprintf(&b, "%s (forwarded from %s): %s", sender, forwarder, m.Body)
		} else {
			fmt.Fprintf(&b, "%s: %s", sender, m.Body)
		}
	}
	return b.String()
}

// participants lists the distinct senders in first-appearance order.
// Grouping by sender is informational; it never reorders the batch.
func participants(msgs []store.Message) []string {
	seen := make(map[string]struct{}, len(msgs))
	var out []string
	for _, m := range msgs {
		sender := m.Sender
		if sender == "" {
			sender = "Unknown participant"
		}
		if _, ok := seen[sender]; ok {
			continue
		}
		seen[sender] = struct{}{}
		out = append(out, sender)
	}
	return out
}
