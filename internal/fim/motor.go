package fim

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/audio"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared/constant"
)

// Transcriber converts raw audio into text. The reasoning stage never sees
// raw audio — only the string this returns (spec.md §4.2 "text-only
// reasoning" hard constraint).
type Transcriber interface {
	Transcribe(ctx context.Context, audioBytes []byte, languageHint string) (string, error)
}

// Reasoner runs one structured-output completion against schema and
// returns the raw JSON payload. Capability contract per spec.md §9 —
// duck-typed provider clients made explicit.
type Reasoner interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, schema map[string]any, schemaName string) (json.RawMessage, error)
}

// DocumentAnalyzer extracts DocumentFacts from a receipt/invoice image or
// PDF.
type DocumentAnalyzer interface {
	AnalyzeDocument(ctx context.Context, documentBytes []byte, mimeType string) (DocumentFacts, error)
}

// DocumentFacts is the FIM document analyzer's output — same field names as
// internal/core.DocumentFacts, except that TotalAmount is the decimal string
// the model returned, which the caller parses before handing it to the
// Ledger; kept as a separate type because the fim package must not
// import internal/core (FIM is stateless and domain-agnostic about
// persistence, per spec.md §4.2's "no DB access" hard constraint).
type DocumentFacts struct {
	Vendor      string
	Date        *time.Time
	TotalAmount string
}

// Motor is the concrete Intent Motor, grounded on the teacher's ai.Agent:
// one openai.Client wrapped with per-call context.WithTimeout and a single
// jittered retry on ProviderError.
type Motor struct {
	client          *openai.Client
	reasoningModel  string
	sttModel        string
	sttLanguage     string
	confidenceFloor float64
	antThreshold    float64
	deadline        time.Duration
}

// Config bundles the environment-driven knobs Motor needs, read by
// internal/config and passed in at construction.
type Config struct {
	ReasoningModel          string
	STTModel                string
	STTLanguage             string
	IntentConfidenceThreshold float64
	AntExpenseThreshold     float64
	// RequestDeadline bounds every individual call Motor makes (transcribe,
	// complete, humanize, analyze_document). Zero means the 20s default.
	RequestDeadline time.Duration
}

// NewMotor constructs a Motor backed by the OpenAI Responses and Audio
// APIs, matching the teacher's openai.NewClient(option.WithAPIKey,
// option.WithMaxRetries) construction.
func NewMotor(apiKey string, cfg Config) *Motor {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(3),
	)
	model := cfg.ReasoningModel
	if model == "" {
		model = string(openai.ChatModelGPT4o)
	}
	sttModel := cfg.STTModel
	if sttModel == "" {
		sttModel = "whisper-1"
	}
	threshold := cfg.IntentConfidenceThreshold
	if threshold == 0 {
		threshold = 0.7
	}
	ant := cfg.AntExpenseThreshold
	if ant == 0 {
		ant = AntExpenseThreshold
	}
	deadline := cfg.RequestDeadline
	if deadline == 0 {
		deadline = 20 * time.Second
	}
	return &Motor{
		client:          &client,
		reasoningModel:  model,
		sttModel:        sttModel,
		sttLanguage:     cfg.STTLanguage,
		confidenceFloor: threshold,
		antThreshold:    ant,
		deadline:        deadline,
	}
}

// Transcribe delegates to the OpenAI Audio/Transcriptions API. Empty or
// whitespace-only output maps to ErrUnintelligibleAudio.
func (m *Motor) Transcribe(ctx context.Context, audioBytes []byte, languageHint string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.deadline)
	defer cancel()

	lang := languageHint
	if lang == "" {
		lang = m.sttLanguage
	}

	var text string
	err := m.withRetry(ctx, "transcribe", func() error {
		params := audio.TranscriptionNewParams{
			Model: audio.AudioModel(m.sttModel),
			File:  openai.File(bytes.NewReader(audioBytes), "audio.wav", "audio/wav"),
		}
		if lang != "" {
			params.Language = openai.String(lang)
		}
		resp, err := m.client.Audio.Transcriptions.New(ctx, params)
		if err != nil {
			return err
		}
		text = resp.Text
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", errProviderOrTimeout(ctx, err))
	}

	if isBlank(text) {
		return "", ErrUnintelligibleAudio
	}
	return text, nil
}

// Complete runs one Responses-API structured-output call and returns the
// raw JSON payload, honoring a per-call deadline and a single retry.
func (m *Motor) Complete(ctx context.Context, systemPrompt, userPrompt string, schema map[string]any, schemaName string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, m.deadline)
	defer cancel()

	var content string
	err := m.withRetry(ctx, "complete:"+schemaName, func() error {
		params := responses.ResponseNewParams{
			Model:        openai.ChatModel(m.reasoningModel),
			Instructions: openai.String(systemPrompt),
			Input: responses.ResponseNewParamsInputUnion{
				OfString: openai.String(userPrompt),
			},
			Text: responses.ResponseTextConfigParam{
				Format: responses.ResponseFormatTextConfigUnionParam{
					OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
						Type:   constant.JSONSchema("json_schema"),
						Name:   schemaName,
						Strict: openai.Bool(true),
						Schema: schema,
					},
				},
			},
		}
		resp, err := m.client.Responses.New(ctx, params)
		if err != nil {
			return err
		}
		if usage := resp.Usage; usage.TotalTokens > 0 {
			log.Printf("fim: openai usage (%s) — prompt: %d, completion: %d, total: %d tokens",
				schemaName, usage.InputTokens, usage.OutputTokens, usage.TotalTokens)
		}
		content = resp.OutputText()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("complete %s: %w", schemaName, errProviderOrTimeout(ctx, err))
	}
	if content == "" {
		return nil, fmt.Errorf("complete %s: %w", schemaName, ErrProviderError)
	}
	return json.RawMessage(content), nil
}

// withRetry runs fn once; on failure it sleeps a small jittered backoff and
// retries exactly once more, matching spec.md §5's "exactly one retry"
// rule. There is no third attempt — a second failure surfaces directly.
func (m *Motor) withRetry(ctx context.Context, op string, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}

	jitter := time.Duration(50+rand.Intn(150)) * time.Millisecond
	log.Printf("fim: %s failed, retrying once after %v: %v", op, jitter, err)
	select {
	case <-time.After(jitter):
	case <-ctx.Done():
		return err
	}

	return fn()
}

// errProviderOrTimeout classifies a failed OpenAI call as ErrTimeout when
// the call's own context deadline was exceeded, or ErrProviderError
// otherwise — giving callers a stable sentinel to branch on regardless of
// the underlying SDK error type.
func errProviderOrTimeout(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		log.Printf("fim: openai api error %d: %s", apiErr.StatusCode, apiErr.DumpResponse(true))
	}
	return fmt.Errorf("%w: %v", ErrProviderError, err)
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

// dataURL builds a base64 data: URL for image attachments, matching the
// teacher's InterpretDomainAction attachment encoding.
func dataURL(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}
