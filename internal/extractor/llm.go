package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"clinic_booking_bot/internal/calendar"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage сообщение для языковой модели
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMRequest запрос к языковой модели
type LLMRequest struct {
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	JSON        bool
}

// LLMResponse ответ языковой модели
type LLMResponse struct {
	Text       string
	StopReason string
}

// LLMClient клиент языковой модели
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

const systemPrompt = "You are an assistant that extracts structured information from natural language. " +
	"Respond with a single JSON object and nothing else."

// LLM извлекает поля с помощью языковой модели
type LLM struct {
	client     LLMClient
	clinicName string
}

// NewLLM создает извлекатель поверх клиента языковой модели
func NewLLM(client LLMClient, clinicName string) *LLM {
	return &LLM{client: client, clinicName: clinicName}
}

// Extract реализует Extractor
func (x *LLM) Extract(ctx context.Context, req Request) (Result, error) {
	prompt := x.prompt(req)

	resp, err := x.client.Complete(ctx, LLMRequest{
		System:      []string{systemPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens:   128,
		Temperature: 0,
		JSON:        true,
	})
	if err != nil {
		return Result{}, fmt.Errorf("llm extraction failed: %w", err)
	}

	fields, err := decodeObject(resp.Text)
	if err != nil {
		return Result{}, err
	}
	return fromFields(req, fields), nil
}

func (x *LLM) prompt(req Request) string {
	var b strings.Builder
	input := strconv.Quote(req.Text())

	switch r := req.(type) {
	case NameRequest:
		b.WriteString("Given the user's input, extract the user's name.\n")
		b.WriteString(`Respond strictly in the following JSON format: {"name": "name"}` + "\n")
		b.WriteString("- If the name cannot be confidently determined, set its value to false.\n")
	case DateRequest:
		b.WriteString("Given the user's input, extract the date of the appointment.\n")
		b.WriteString(`Respond strictly in the following JSON format: {"date": "YYYY-MM-DD"}` + "\n")
		writeDateRules(&b, r.Reference)
	case NameDateRequest:
		b.WriteString("Given the user's input, extract the user's name and selected date of the appointment.\n")
		b.WriteString(`Respond strictly in the following JSON format: {"name": "name", "date": "YYYY-MM-DD"}` + "\n")
		writeDateRules(&b, r.Reference)
		b.WriteString("- If the name cannot be confidently determined, set its value to false.\n")
	case TimeRequest:
		b.WriteString("Given the provided input, extract the time of day.\n")
		b.WriteString(`Respond strictly in the following JSON format: {"time": "HH"}` + "\n")
		b.WriteString("- If no am or pm is indicated, assume the time falls between 9 AM and 5 PM.\n")
		b.WriteString("- The time should be a number between 0 and 23 (24-hour format, without minutes).\n")
		b.WriteString("- If the input does not contain a valid or inferable time, set the value to false.\n")
	case IntentRequest:
		fmt.Fprintf(&b, "You are a helpful assistant for %s. ", x.clinicName)
		b.WriteString("Given the user's input, determine if the user wants to book an appointment.\n")
		b.WriteString(`Respond strictly in the following JSON format: {"trigger": true or false}` + "\n")
	}

	b.WriteString("- Do not include any explanation or additional text in your response.\n\n")
	fmt.Fprintf(&b, "User input: %s", input)
	return b.String()
}

func writeDateRules(b *strings.Builder, ref time.Time) {
	today := ref.Format(calendar.DateLayout)
	fmt.Fprintf(b, "- Inputs might be in DD/MM form.\n")
	fmt.Fprintf(b, "- If the date is incomplete or relative (e.g. \"next Friday\"), infer the full date based on today's date: %s (%s).\n",
		today, ref.Weekday())
	fmt.Fprintf(b, "- The derived date must be strictly after %s.\n", today)
	b.WriteString("- If the date cannot be confidently determined, set its value to false.\n")
}

// decodeObject разбирает JSON-объект, допускает обрамление ```json
func decodeObject(text string) (map[string]interface{}, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if i := strings.Index(text, "{"); i > 0 {
		text = text[i:]
	}
	if i := strings.LastIndex(text, "}"); i >= 0 && i < len(text)-1 {
		text = text[:i+1]
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, fmt.Errorf("llm returned malformed JSON: %w", err)
	}
	return fields, nil
}

func fromFields(req Request, fields map[string]interface{}) Result {
	var res Result
	switch req.(type) {
	case NameRequest, NameDateRequest:
		res.Name = stringField(fields["name"])
	}
	switch req.(type) {
	case DateRequest, NameDateRequest:
		res.Date = stringField(fields["date"])
	case TimeRequest:
		if h, ok := hourField(fields["time"]); ok {
			res.Hour = Hour(h)
		}
	case IntentRequest:
		res.BookingIntent = boolField(fields["trigger"])
	}
	return res
}

// stringField: false, null и "false" означают "не определено"
func stringField(v interface{}) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "false") || strings.EqualFold(s, "null") {
		return ""
	}
	return s
}

func hourField(v interface{}) (int, bool) {
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int(t), true
	case string:
		s := strings.TrimSpace(t)
		if i := strings.Index(s, ":"); i > 0 {
			s = s[:i]
		}
		h, err := strconv.Atoi(s)
		if err != nil {
			return 0, false
		}
		return h, true
	}
	return 0, false
}

func boolField(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "true")
	}
	return false
}
