package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"numa/internal/core"
	"numa/internal/fim"
)

// defaultRequestDeadline bounds an entire HandleVoice/HandleText call —
// transcription, classification, and every downstream Ledger/Motor call
// share this one deadline, matching spec.md §5's "established once" rule.
const defaultRequestDeadline = 8 * time.Second

// FIM is the capability contract the Orchestrator depends on — explicit
// interfaces standing in for the teacher's duck-typed *ai.Agent, per
// spec.md §9.
type FIM interface {
	Transcribe(ctx context.Context, audioBytes []byte, languageHint string) (string, error)
	Classify(ctx context.Context, text string) ([]fim.IntentRecord, error)
	Humanize(ctx context.Context, instruction string, facts map[string]string) (string, error)
	AnalyzeDocument(ctx context.Context, documentBytes []byte, mimeType string) (fim.DocumentFacts, error)
}

// Orchestrator is the sole entry point per channel (spec.md §4.3),
// grounded on the teacher's appService: constructor-injected interface
// fields, no package-level mutable state.
type Orchestrator struct {
	ledger          core.LedgerService
	motor           FIM
	clock           Clock
	requestDeadline time.Duration
}

// NewOrchestrator constructs an Orchestrator. clock may be nil, in which
// case SystemClock is used. requestDeadline bounds an entire
// HandleVoice/HandleText call; zero means defaultRequestDeadline.
func NewOrchestrator(ledger core.LedgerService, motor FIM, clock Clock, requestDeadline ...time.Duration) *Orchestrator {
	if clock == nil {
		clock = SystemClock{}
	}
	deadline := defaultRequestDeadline
	if len(requestDeadline) > 0 && requestDeadline[0] > 0 {
		deadline = requestDeadline[0]
	}
	return &Orchestrator{ledger: ledger, motor: motor, clock: clock, requestDeadline: deadline}
}

// HandleVoice transcribes audio then delegates to HandleText, under one
// request-wide deadline established here and threaded through every
// downstream call (spec.md §5). A failed transcription never falls back to
// sending raw audio to the reasoning model — spec.md §4.3 forbids that path
// explicitly.
func (o *Orchestrator) HandleVoice(ctx context.Context, ownerID string, audioBytes []byte, languageHint string) ResponseEnvelope {
	ctx, cancel := context.WithTimeout(ctx, o.requestDeadline)
	defer cancel()

	text, err := o.motor.Transcribe(ctx, audioBytes, languageHint)
	if err != nil {
		if errors.Is(err, fim.ErrUnintelligibleAudio) {
			return errorEnvelope(ErrorKindUnintelligibleAudio, "no pude entender el audio, ¿puedes repetirlo?")
		}
		if errors.Is(err, fim.ErrTimeout) {
			return errorEnvelope(ErrorKindTimeout, "la transcripción tardó demasiado, intenta de nuevo")
		}
		return errorEnvelope(ErrorKindProvider, "hubo un problema al transcribir el audio")
	}
	return o.HandleText(ctx, ownerID, text)
}

// HandleText classifies text then dispatches the IntentRecords to their
// handlers. WRITE_LOG records are persisted sequentially, in FIM-emitted
// order; the first failure aborts the remaining writes and the envelope
// reports the partial result (spec.md §5 ordering guarantee). Of the
// non-WRITE_LOG records only the first is dispatched; any others are not
// handled.
func (o *Orchestrator) HandleText(ctx context.Context, ownerID string, text string) ResponseEnvelope {
	ctx, cancel := context.WithTimeout(ctx, o.requestDeadline)
	defer cancel()

	records, err := o.motor.Classify(ctx, text)
	if err != nil {
		if errors.Is(err, fim.ErrTimeout) {
			return errorEnvelope(ErrorKindTimeout, "la clasificación tardó demasiado, intenta de nuevo")
		}
		if errors.Is(err, fim.ErrBadIntentShape) {
			return errorEnvelope(ErrorKindProvider, "no pude interpretar la solicitud")
		}
		return errorEnvelope(ErrorKindProvider, "hubo un problema al interpretar el mensaje")
	}
	if len(records) == 0 {
		return errorEnvelope(ErrorKindProvider, "la clasificación no produjo ningún resultado")
	}

	var writeLogs []fim.IntentRecord
	var others []fim.IntentRecord
	for _, r := range records {
		if r.Intent == fim.IntentWriteLog {
			writeLogs = append(writeLogs, r)
		} else {
			others = append(others, r)
		}
	}

	if len(writeLogs) > 0 {
		envelope := o.handleWriteLogBatch(ctx, ownerID, writeLogs)
		if len(others) > 0 {
			if extra := o.dispatchOne(ctx, ownerID, others[0]); extra.Message != "" {
				envelope.Message = strings.TrimSpace(envelope.Message + " " + extra.Message)
			}
		}
		return envelope
	}

	return o.dispatchOne(ctx, ownerID, others[0])
}

// dispatchOne routes a single non-WRITE_LOG IntentRecord to its handler.
func (o *Orchestrator) dispatchOne(ctx context.Context, ownerID string, record fim.IntentRecord) ResponseEnvelope {
	switch record.Intent {
	case fim.IntentReadQuery:
		return o.handleReadQuery(ctx, ownerID, record)
	case fim.IntentConfirmUpdate:
		return o.handleConfirmUpdate(ctx, ownerID, record)
	case fim.IntentAdvice, fim.IntentPlan:
		return o.handleAdvicePlan(ctx, ownerID, record)
	case fim.IntentSteer:
		return o.handleSteer(record)
	case fim.IntentClarify:
		return o.handleClarify(record)
	default:
		return errorEnvelope(ErrorKindProvider, fmt.Sprintf("unhandled intent %s", record.Intent))
	}
}

// handleWriteLogBatch persists each WRITE_LOG record's Transaction
// sequentially, aborting on the first failure per spec.md §5.
func (o *Orchestrator) handleWriteLogBatch(ctx context.Context, ownerID string, records []fim.IntentRecord) ResponseEnvelope {
	var created []core.Transaction
	var total = newZeroDecimal()

	for _, r := range records {
		tx, err := o.createFromRecord(ctx, ownerID, r)
		if err != nil {
			msg := summarizeBatch(created, total)
			if msg != "" {
				msg += " "
			}
			msg += fmt.Sprintf("no se pudo registrar %q: %v", r.Entities.Concept, err)
			return transactionEnvelope(created, msg)
		}
		created = append(created, *tx)
		total = total.Add(tx.Amount)
	}

	return transactionEnvelope(created, summarizeBatch(created, total))
}
