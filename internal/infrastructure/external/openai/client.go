package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/garyjia/finnexus/internal/application/port"
	"github.com/garyjia/finnexus/internal/domain/entity"
	"github.com/garyjia/finnexus/pkg/utils"
)

// NoTextFallback is returned when the model answers with empty text
const NoTextFallback = "I processed the request but received no text response."

var (
	// ErrEmptyReply is returned when the model returns no usable content
	ErrEmptyReply = errors.New("empty model reply")

	// ErrUnparsable is returned when the extraction reply is not a JSON object
	ErrUnparsable = errors.New("unparsable extraction payload")
)

// Config configures the OpenAI-compatible endpoint
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client implements port.Extractor and port.Assistant over chat completions
type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	prompts *PromptConfig
	logger  *zap.Logger
}

// NewClient creates a client. A nil prompts uses DefaultPrompts.
func NewClient(cfg Config, prompts *PromptConfig, logger *zap.Logger) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if prompts == nil {
		prompts = DefaultPrompts()
	}

	return &Client{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		prompts: prompts,
		logger:  logger,
	}
}

// extractionSchema mirrors the six fields of entity.ExtractedFields
var extractionSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"invoiceNo":  {Type: jsonschema.String, Nullable: true, Description: "The invoice number found on the document"},
		"clientName": {Type: jsonschema.String, Nullable: true, Description: "The name of the client or company billed"},
		"amount":     {Type: jsonschema.Number, Nullable: true, Description: "The total amount of the invoice"},
		"taxAmount":  {Type: jsonschema.Number, Nullable: true, Description: "The total tax amount"},
		"date":       {Type: jsonschema.String, Nullable: true, Description: "The issue date of the invoice in YYYY-MM-DD format"},
		"dueDate":    {Type: jsonschema.String, Nullable: true, Description: "The due date of the invoice in YYYY-MM-DD format"},
	},
}

// ExtractDraftFields sends the image to the vision model and parses its JSON reply
func (c *Client) ExtractDraftFields(ctx context.Context, data []byte, mimeType string) (entity.ExtractedFields, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	c.logger.Info("Extracting invoice fields",
		zap.String("mime_type", mimeType),
		zap.Int("size", len(data)))

	p := c.prompts.Extraction
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: p.System,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)),
							Detail: openai.ImageURLDetailHigh,
						},
					},
					{
						Type: openai.ChatMessagePartTypeText,
						Text: p.User,
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "invoice_fields",
				Schema: &extractionSchema,
			},
		},
	})
	if err != nil {
		c.logger.Error("Vision API call failed", zap.Error(err))
		return entity.ExtractedFields{}, &port.ExtractionError{Reason: "request failed", Err: err}
	}

	content := firstContent(resp)
	if content == "" {
		return entity.ExtractedFields{}, &port.ExtractionError{Reason: "no content", Err: ErrEmptyReply}
	}

	fields, err := parseExtraction(content)
	if err != nil {
		c.logger.Error("Failed to parse Vision API response",
			zap.Error(err),
			zap.String("content", utils.Truncate(content, 500)))
		return entity.ExtractedFields{}, &port.ExtractionError{Reason: "bad payload", Err: err}
	}

	c.logger.Info("Invoice fields extracted", zap.Strings("fields", fields.present))
	return fields.ExtractedFields, nil
}

// AnswerQuestion sends the question with the serialized snapshot as context
func (c *Client) AnswerQuestion(ctx context.Context, question string, snapshot entity.Snapshot) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	contextJSON, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", &port.CommunicationError{Err: fmt.Errorf("failed to encode snapshot: %w", err)}
	}

	prompt, err := c.prompts.renderQuestion(string(contextJSON), question)
	if err != nil {
		return "", &port.CommunicationError{Err: err}
	}

	p := c.prompts.Assistant
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		c.logger.Error("Chat API call failed", zap.Error(err))
		return "", &port.CommunicationError{Err: err}
	}

	text := firstContent(resp)
	if strings.TrimSpace(text) == "" {
		return NoTextFallback, nil
	}
	return text, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func firstContent(resp openai.ChatCompletionResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Message.Content
}

var (
	_ port.Extractor = (*Client)(nil)
	_ port.Assistant = (*Client)(nil)
)
