package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"clinic_booking_bot/internal/extractor"
)

// DefaultModel модель по умолчанию
const DefaultModel = "gemini-2.5-flash"

// Client реализует extractor.LLMClient через Gemini API
type Client struct {
	client  *genai.Client
	modelID string
}

var _ extractor.LLMClient = (*Client)(nil)

// New создает клиент Gemini
func New(ctx context.Context, apiKey, modelID string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}

	return &Client{
		client:  client,
		modelID: modelID,
	}, nil
}

// Complete отправляет запрос модели и возвращает текст ответа
func (c *Client) Complete(ctx context.Context, req extractor.LLMRequest) (extractor.LLMResponse, error) {
	if len(req.Messages) == 0 {
		return extractor.LLMResponse{}, errors.New("gemini: at least one message is required")
	}

	model := c.client.GenerativeModel(c.modelID)
	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(req.MaxTokens)
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}

	if len(req.System) > 0 {
		systemText := strings.Join(req.System, "\n\n")
		if strings.TrimSpace(systemText) != "" {
			model.SystemInstruction = genai.NewUserContent(genai.Text(systemText))
		}
	}

	cs := model.StartChat()
	for _, msg := range req.Messages[:len(req.Messages)-1] {
		content := strings.TrimSpace(msg.Content)
		if content == "" || msg.Role == extractor.ChatRoleSystem {
			continue
		}
		role := "user"
		if msg.Role == extractor.ChatRoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(content)},
		})
	}

	last := req.Messages[len(req.Messages)-1]
	resp, err := cs.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		return extractor.LLMResponse{}, fmt.Errorf("gemini: completion failed: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return extractor.LLMResponse{}, errors.New("gemini: no candidates returned")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return extractor.LLMResponse{}, errors.New("gemini: empty content returned")
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	return extractor.LLMResponse{
		Text:       strings.TrimSpace(text.String()),
		StopReason: candidate.FinishReason.String(),
	}, nil
}

// Close освобождает ресурсы клиента
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
