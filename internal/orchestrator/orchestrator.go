package orchestrator

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"storybot/internal/narrative"
	"storybot/internal/store"
)

// Outcome is the terminal state of one narrative trigger.
type Outcome int

const (
	Delivered Outcome = iota
	NothingToReport
	InsufficientData
	GenerationError
)

// Result carries the terminal outcome and the user-facing reply. For
// GenerationError, Reason distinguishes the collaborator failure.
type Result struct {
	Outcome Outcome
	Reason  narrative.OutcomeKind
	Reply   string
}

// Thresholds gate whether compilation proceeds.
type Thresholds struct {
	// MinTotalBeforeBackfill: below this total, history is pulled first.
	MinTotalBeforeBackfill int
	// MinTotalToCompile: below this total after backfill, give up.
	MinTotalToCompile int
}

// DefaultThresholds returns the standard sufficiency gates.
func DefaultThresholds() Thresholds {
	return Thresholds{MinTotalBeforeBackfill: 10, MinTotalToCompile: 5}
}

// Fixed user-facing replies, one per terminal state (generation errors
// render per reason).
const (
	replyNothingToReport  = "Nothing to report: no new messages since the last story. Wait for the chat to pick up again."
	replyInsufficientData = "Not enough messages in the history to generate a story yet. Please wait until the chat accumulates more messages."
	replyRateLimited      = "Sorry, the story could not be generated because the request limit was exceeded. Please try again later."
	replyPayloadTooLarge  = "Could not generate a story: too many messages to process. Try again once the chat activity settles down."
	replyGenerationFailed = "Sorry, something went wrong while creating the story. Please try again later."
)

// Backfiller pulls additional history into the log.
type Backfiller interface {
	Backfill(ctx context.Context, chatID int64) (int, error)
}

// Compiler builds and sends one narrative request.
type Compiler interface {
	Compile(ctx context.Context, chatID int64) narrative.Outcome
}

// Orchestrator drives one narrative trigger through sufficiency checks,
// optional backfill, and compilation. At most one compilation per chat
// is in flight: concurrent triggers for the same chat share one run.
type Orchestrator struct {
	log        *store.Log
	backfiller Backfiller
	compiler   Compiler
	thresholds Thresholds
	logger     *zap.Logger
	flight     singleflight.Group
}

// New creates an orchestrator. Zero thresholds fall back to the defaults.
func New(log *store.Log, backfiller Backfiller, compiler Compiler, thresholds Thresholds, logger *zap.Logger) *Orchestrator {
	if thresholds.MinTotalBeforeBackfill <= 0 {
		thresholds = DefaultThresholds()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		log:        log,
		backfiller: backfiller,
		compiler:   compiler,
		thresholds: thresholds,
		logger:     logger,
	}
}

// Trigger runs the state machine for one on-demand request and returns
// the terminal result.
func (o *Orchestrator) Trigger(ctx context.Context, chatID int64) Result {
	key := strconv.FormatInt(chatID, 10)
	v, _, shared := o.flight.Do(key, func() (any, error) {
		return o.run(ctx, chatID), nil
	})
	if shared {
		o.logger.Debug("trigger joined in-flight run", zap.Int64("chat_id", chatID))
	}
	return v.(Result)
}

func (o *Orchestrator) run(ctx context.Context, chatID int64) Result {
	logger := o.logger.With(
		zap.String("request_id", uuid.NewString()),
		zap.Int64("chat_id", chatID))

	o.log.SweepExpired(chatID)

	// CheckSufficiency. Counts are re-read fresh at every stage; new
	// messages may arrive while collaborators are in flight.
	total := o.log.Count(chatID)
	logger.Info("narrative trigger", zap.Int("total", total))

	if total < o.thresholds.MinTotalBeforeBackfill {
		merged, err := o.backfiller.Backfill(ctx, chatID)
		if err != nil {
			logger.Warn("backfill failed", zap.Error(err))
			return Result{Outcome: InsufficientData, Reply: replyInsufficientData}
		}
		logger.Info("backfill complete", zap.Int("merged", merged))
	}

	if o.log.UnprocessedCount(chatID) == 0 {
		return Result{Outcome: NothingToReport, Reply: replyNothingToReport}
	}
	if o.log.Count(chatID) < o.thresholds.MinTotalToCompile {
		logger.Info("still not enough messages", zap.Int("total", o.log.Count(chatID)))
		return Result{Outcome: InsufficientData, Reply: replyInsufficientData}
	}

	out := o.compiler.Compile(ctx, chatID)
	switch out.Kind {
	case narrative.Success:
		logger.Info("narrative delivered", zap.Int("length", len(out.Text)))
		return Result{Outcome: Delivered, Reason: out.Kind, Reply: out.Text}
	case narrative.NoNewMessages, narrative.OnlyNoiseMessages:
		return Result{Outcome: NothingToReport, Reason: out.Kind, Reply: replyNothingToReport}
	case narrative.RateLimited:
		logger.Warn("generation rate limited", zap.Error(out.Err))
		return Result{Outcome: GenerationError, Reason: out.Kind, Reply: replyRateLimited}
	case narrative.PayloadTooLarge:
		logger.Warn("generation payload too large", zap.Error(out.Err))
		return Result{Outcome: GenerationError, Reason: out.Kind, Reply: replyPayloadTooLarge}
	default:
		logger.Warn("generation failed", zap.Error(out.Err))
		return Result{Outcome: GenerationError, Reason: out.Kind, Reply: replyGenerationFailed}
	}
}
