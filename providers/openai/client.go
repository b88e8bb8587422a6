package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"reprise/config"
	"reprise/mask"
	"reprise/providers"
)

const (
	proposePrompt = `You help a learner memorise short passages with cloze deletions.
Pick the words or short phrases whose recall matters most. Copy every phrase verbatim
from the text, including capitalisation and punctuation. Never give character offsets.
Return at most %d alternative sets as JSON: {"cloze_deletion_sets": [["phrase", ...], ...]}`

	judgePrompt = `You review cloze deletions. A set is acceptable when the hidden words are
the meaningful parts of the passage and the masked text is still answerable.
Reply as JSON: {"acceptable": true|false, "reason": "..."}`

	extractPrompt = `Split the text into self-contained passages worth remembering.
Each passage must be understandable on its own and quote the text faithfully.
Reply as JSON: {"motifs": ["...", ...]}`
)

// Client kapselt die Chat-Completions-API für Cloze-Vorschläge, Urteile und Extraktion.
type Client struct {
	Logger *zap.Logger
	Model  string
	api    *gopenai.Client
}

// NewClient erstellt einen neuen Client aus der Konfiguration.
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	apiCfg := gopenai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		apiCfg.BaseURL = cfg.OpenAIBaseURL
	}
	return &Client{
		Logger: logger.With(zap.String("provider", "openai"), zap.String("model", cfg.OpenAIModel)),
		Model:  cfg.OpenAIModel,
		api:    gopenai.NewClientWithConfig(apiCfg),
	}
}

type proposeResponse struct {
	Sets [][]string `json:"cloze_deletion_sets"`
}

// ProposeClozeSets fragt bis zu nMax Phrasensätze an.
func (c *Client) ProposeClozeSets(ctx context.Context, content string, nMax int) ([][]string, error) {
	var out proposeResponse
	if err := c.completeJSON(ctx, fmt.Sprintf(proposePrompt, nMax), content, 0.2, &out); err != nil {
		return nil, err
	}
	if out.Sets == nil {
		return nil, fmt.Errorf("%w: missing cloze_deletion_sets", providers.ErrMalformedResponse)
	}
	c.Logger.Debug("Cloze-Vorschläge erhalten.", zap.Int("sets", len(out.Sets)))
	return out.Sets, nil
}

type judgeResponse struct {
	Acceptable *bool  `json:"acceptable"`
	Reason     string `json:"reason"`
}

// JudgeClozeSet lässt einen aufgelösten Maskensatz bewerten.
func (c *Client) JudgeClozeSet(ctx context.Context, content string, pairs []mask.Pair) (bool, error) {
	masked, err := mask.Render(content, pairs, "___")
	if err != nil {
		return false, err
	}
	spans, err := mask.ExtractSpans(content, pairs)
	if err != nil {
		return false, err
	}
	user := fmt.Sprintf("Passage:\n%s\n\nMasked:\n%s\n\nHidden: %s", content, masked, strings.Join(spans, " | "))

	var out judgeResponse
	if err := c.completeJSON(ctx, judgePrompt, user, 0, &out); err != nil {
		return false, err
	}
	if out.Acceptable == nil {
		return false, fmt.Errorf("%w: missing acceptable", providers.ErrMalformedResponse)
	}
	c.Logger.Debug("Cloze-Urteil erhalten.", zap.Bool("acceptable", *out.Acceptable), zap.String("reason", out.Reason))
	return *out.Acceptable, nil
}

type extractResponse struct {
	Motifs []string `json:"motifs"`
}

// ExtractMotifs zerlegt freien Text in Motifs.
func (c *Client) ExtractMotifs(ctx context.Context, text string) ([]string, error) {
	var out extractResponse
	if err := c.completeJSON(ctx, extractPrompt, text, 0.2, &out); err != nil {
		return nil, err
	}
	if out.Motifs == nil {
		return nil, fmt.Errorf("%w: missing motifs", providers.ErrMalformedResponse)
	}
	return out.Motifs, nil
}

func (c *Client) completeJSON(ctx context.Context, system, user string, temperature float32, dst any) error {
	resp, err := c.api.CreateChatCompletion(ctx, gopenai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []gopenai.ChatCompletionMessage{
			{Role: gopenai.ChatMessageRoleSystem, Content: system},
			{Role: gopenai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temperature,
		ResponseFormat: &gopenai.ChatCompletionResponseFormat{
			Type: gopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		c.Logger.Warn("OpenAI-Aufruf fehlgeschlagen.", zap.Error(err))
		return classify(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("%w: no choices", providers.ErrMalformedResponse)
	}
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("%w: %v", providers.ErrMalformedResponse, err)
	}
	return nil
}

// classify trennt vorübergehende Fehler (Netz, 429, 5xx, Timeout eines
// Versuchs) von endgültigen (4xx, abgebrochener Aufrufer).
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr *gopenai.APIError
	if errors.As(err, &apiErr) {
		if providers.RetryableStatus(apiErr.HTTPStatusCode) {
			return &providers.TransientError{StatusCode: apiErr.HTTPStatusCode, Err: err}
		}
		return err
	}
	var reqErr *gopenai.RequestError
	if errors.As(err, &reqErr) {
		if providers.RetryableStatus(reqErr.HTTPStatusCode) {
			return &providers.TransientError{StatusCode: reqErr.HTTPStatusCode, Err: err}
		}
		return err
	}
	return &providers.TransientError{Err: err}
}
