// Package llm adapts an OpenAI-style chat completions endpoint to the
// metadata AI-provider interface.
package llm

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hondana/hondana/pkg/config"
	"github.com/hondana/hondana/pkg/errcodes"
	"github.com/hondana/hondana/pkg/metadata"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

const providerName = "LLM"

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func New(cfg *config.Config) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.LLMBaseURL, "/"),
		model:      cfg.LLMModel,
		httpClient: &http.Client{Timeout: cfg.LLMTimeout},
	}
}

// TagInferenceFields lists the individually inferable tag fields and their
// prompt names, in the order per-field steps resolve them.
func (c *Client) TagInferenceFields() []metadata.TagField {
	return []metadata.TagField{
		{Field: "Genre", Prompt: promptTagInferenceGenre},
		{Field: "Mood", Prompt: promptTagInferenceMood},
		{Field: "Mode", Prompt: promptTagInferenceMode},
		{Field: "Romance", Prompt: promptTagInferenceRomance},
	}
}

// CleanDescription asks the model for a short cleaned-up description.
func (c *Client) CleanDescription(ctx context.Context, title, author, description string) (string, string, error) {
	if err := c.requireConfig(); err != nil {
		return "", "", err
	}

	userContent := orDefault(title, "Unknown title") +
		" | author: " + orDefault(author, "Unknown author") +
		" | description: " + orDefault(description, "No description provided")

	choice, err := c.chat(ctx, promptCleanDescription, userContent)
	if err != nil {
		return "", "", err
	}
	content, err := choice.stringContent("LLM returned empty description.")
	if err != nil {
		return "", "", err
	}
	return content, choice.extractReasoning(), nil
}

// InferTags runs the full multi-field inference in a single call and returns
// flattened "field:value" tags.
func (c *Client) InferTags(ctx context.Context, description string) ([]string, string, error) {
	if err := c.requireConfig(); err != nil {
		return nil, "", err
	}

	choice, err := c.chat(ctx, promptTagInference, orDefault(description, "No description provided"))
	if err != nil {
		return nil, "", err
	}
	content, err := choice.stringContent("LLM returned empty tag JSON.")
	if err != nil {
		return nil, "", err
	}
	mapping, err := ParseJSONObject(content)
	if err != nil {
		return nil, "", err
	}
	return ParseTagMapping(mapping), choice.extractReasoning(), nil
}

// InferTagField infers a single field's value. The model responds with a
// JSON object; the field's value is coerced per field rules (Romance is a
// score clamped to [0, 1], everything else a non-empty string).
func (c *Client) InferTagField(ctx context.Context, description, field, prompt string) (string, string, error) {
	if err := c.requireConfig(); err != nil {
		return "", "", err
	}

	choice, err := c.chat(ctx, prompt, orDefault(description, "No description provided"))
	if err != nil {
		return "", "", err
	}
	content, err := choice.stringContent("LLM returned empty tag JSON.")
	if err != nil {
		return "", "", err
	}
	mapping, err := ParseJSONObject(content)
	if err != nil {
		return "", "", err
	}

	raw, ok := lookupField(mapping, field)
	if !ok {
		return "", "", errcodes.ProviderMalformed("LLM tag JSON missing field " + strconv.Quote(field) + ".")
	}
	value, err := CoerceTagValue(field, raw)
	if err != nil {
		return "", "", err
	}
	return value, choice.extractReasoning(), nil
}

// ParseJSONObject decodes model output that is expected to be a JSON object.
func ParseJSONObject(content string) (map[string]interface{}, error) {
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, errcodes.ProviderMalformed("LLM tag JSON invalid.")
	}
	return parsed, nil
}

// ParseTagMapping flattens a field→value object into "field:value" tags.
// List values produce one tag per element, and the model's "reasoning" key
// is skipped.
func ParseTagMapping(mapping map[string]interface{}) []string {
	tags := []string{}
	for key, value := range mapping {
		keyText := strings.TrimSpace(key)
		if keyText == "" || strings.EqualFold(keyText, "reasoning") {
			continue
		}
		if list, ok := value.([]interface{}); ok {
			for _, item := range list {
				if valueText := stringifyValue(item); valueText != "" {
					tags = append(tags, keyText+":"+valueText)
				}
			}
			continue
		}
		if valueText := stringifyValue(value); valueText != "" {
			tags = append(tags, keyText+":"+valueText)
		}
	}
	return tags
}

// CoerceTagValue validates and normalizes a single inferred field value.
// Romance is a numeric score clamped to [0, 1]; other fields are non-empty
// strings.
func CoerceTagValue(field string, value interface{}) (string, error) {
	if strings.EqualFold(field, "Romance") {
		score, ok := numericValue(value)
		if !ok {
			return "", errcodes.ProviderMalformed("LLM Romance value is not numeric.")
		}
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		return strconv.FormatFloat(score, 'g', -1, 64), nil
	}

	valueText := stringifyValue(value)
	if valueText == "" {
		return "", errcodes.ProviderMalformed("LLM returned an empty value for " + strconv.Quote(field) + ".")
	}
	return valueText, nil
}

func (c *Client) requireConfig() error {
	if c.baseURL == "" || c.model == "" {
		return errcodes.ProviderConfig("LLM_BASE_URL or LLM_MODEL not configured.")
	}
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

// chatChoice tolerates the response shapes different chat servers produce:
// content directly on the choice or nested in a message, reasoning on the
// choice, the message, or content parts.
type chatChoice struct {
	Content   json.RawMessage `json:"content"`
	Reasoning string          `json:"reasoning"`
	Message   *struct {
		Content   json.RawMessage `json:"content"`
		Reasoning string          `json:"reasoning"`
	} `json:"message"`
}

func (ch *chatChoice) rawContent() json.RawMessage {
	if len(ch.Content) > 0 {
		return ch.Content
	}
	if ch.Message != nil {
		return ch.Message.Content
	}
	return nil
}

func (ch *chatChoice) stringContent(emptyDetail string) (string, error) {
	raw := ch.rawContent()
	var content string
	if err := json.Unmarshal(raw, &content); err != nil {
		return "", errcodes.ProviderMalformed("LLM response content invalid.")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", errcodes.ProviderMalformed(emptyDetail)
	}
	return content, nil
}

func (ch *chatChoice) extractReasoning() string {
	if reasoning := strings.TrimSpace(ch.Reasoning); reasoning != "" {
		return reasoning
	}
	if ch.Message != nil {
		if reasoning := strings.TrimSpace(ch.Message.Reasoning); reasoning != "" {
			return reasoning
		}
	}

	// Some servers put reasoning inside structured content parts.
	raw := ch.rawContent()
	var part struct {
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal(raw, &part); err == nil {
		if reasoning := strings.TrimSpace(part.Reasoning); reasoning != "" {
			return reasoning
		}
	}
	var parts []struct {
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal(raw, &parts); err == nil {
		for _, p := range parts {
			if reasoning := strings.TrimSpace(p.Reasoning); reasoning != "" {
				return reasoning
			}
		}
	}
	return ""
}

func (c *Client) chat(ctx context.Context, systemPrompt, userContent string) (*chatChoice, error) {
	messages := make([]chatMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userContent})

	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0,
		MaxTokens:   512,
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return nil, errcodes.ProviderTimeout(providerName)
		}
		return nil, errcodes.ProviderUnavailable(providerName)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errcodes.ProviderUnavailable(providerName)
	}

	var body chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errcodes.ProviderMalformed("LLM response malformed.")
	}
	if len(body.Choices) == 0 {
		return nil, errcodes.ProviderMalformed("LLM response missing choices.")
	}
	return &body.Choices[0], nil
}

func lookupField(mapping map[string]interface{}, field string) (interface{}, bool) {
	for key, value := range mapping {
		if strings.EqualFold(strings.TrimSpace(key), field) {
			return value, true
		}
	}
	return nil, false
}

func numericValue(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

func stringifyValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

func orDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
