// Package app implements the Orchestrator: the single entry point per
// channel (voice/text) that transcribes, classifies, and dispatches an
// utterance to the Ledger and Intent Motor, per spec.md §4.3.
package app

import "numa/internal/core"

// EnvelopeType is the closed discriminator for ResponseEnvelope.
type EnvelopeType string

const (
	EnvelopeTransaction EnvelopeType = "transaction"
	EnvelopeChat        EnvelopeType = "chat"
	EnvelopeError        EnvelopeType = "error"
)

// ErrorKind distinguishes the error envelope's failure mode.
type ErrorKind string

const (
	ErrorKindUnintelligibleAudio ErrorKind = "unintelligible_audio"
	ErrorKindTimeout             ErrorKind = "timeout"
	ErrorKindProvider            ErrorKind = "provider_error"
	ErrorKindValidation          ErrorKind = "validation_error"
)

// ResponseEnvelope is the exact shape named in spec.md §4.3.
type ResponseEnvelope struct {
	Type    EnvelopeType        `json:"type"`
	Data    []core.Transaction  `json:"data,omitempty"`
	Message string              `json:"message,omitempty"`
	Kind    ErrorKind           `json:"kind,omitempty"`
}

func chatEnvelope(message string) ResponseEnvelope {
	return ResponseEnvelope{Type: EnvelopeChat, Message: message}
}

func errorEnvelope(kind ErrorKind, message string) ResponseEnvelope {
	return ResponseEnvelope{Type: EnvelopeError, Kind: kind, Message: message}
}

func transactionEnvelope(txs []core.Transaction, message string) ResponseEnvelope {
	return ResponseEnvelope{Type: EnvelopeTransaction, Data: txs, Message: message}
}
