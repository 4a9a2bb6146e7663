package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"barbershop-booking-backend/config"
)

// Message is one prior turn of the conversation, as relayed by the chat
// page.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BookingIntent is the JSON object the model is instructed to emit once
// it has collected a complete booking request. It is the only trigger for
// creating a booking.
type BookingIntent struct {
	Service       string `json:"service"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractIntent scans an assistant reply for a booking intent object. A
// reply with no JSON object, or one missing a required field, is plain
// assistant text and yields ok == false.
func ExtractIntent(reply string) (*BookingIntent, bool) {
	match := jsonObjectRe.FindString(reply)
	if match == "" {
		return nil, false
	}

	var intent BookingIntent
	if err := json.Unmarshal([]byte(match), &intent); err != nil {
		return nil, false
	}
	if intent.Date == "" || intent.Time == "" || intent.CustomerName == "" {
		return nil, false
	}
	if intent.Service == "" {
		intent.Service = "Haircut"
	}
	return &intent, true
}

// Client talks to the chat completion provider.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient creates a chat client. A non-empty BaseURL points the client
// at an alternative endpoint, which tests use to substitute a local
// server.
func NewClient(cfg config.ChatConfig) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(apiCfg),
		model: cfg.Model,
	}
}

// SlotSummary renders the available-slots map into the prompt form
// "2025-06-01 09:00, 2025-06-01 10:00".
func SlotSummary(slots map[string][]string) string {
	dates := make([]string, 0, len(slots))
	for d := range slots {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var entries []string
	for _, d := range dates {
		for _, t := range slots[d] {
			entries = append(entries, d+" "+t)
		}
	}
	if len(entries) == 0 {
		return "No slots available"
	}
	return strings.Join(entries, ", ")
}

func systemPrompt(slotInfo string) string {
	return "You are a polite barbershop assistant. " +
		"Available slots are: " + slotInfo + ".\n\n" +
		"Your task:\n" +
		"- Collect the customer's name\n" +
		"- Collect a valid available date (YYYY-MM-DD)\n" +
		"- Collect a valid available time (HH:MM)\n" +
		"- Optionally collect the customer's email address\n\n" +
		"Rules:\n" +
		"- If the user already gave name, date and time, respond ONLY with valid JSON:\n" +
		`{"service":"Haircut","date":"YYYY-MM-DD","time":"HH:MM","customer_name":"NAME","customer_email":"EMAIL or omit"}` + "\n" +
		"- Use double quotes for all keys and string values.\n" +
		"- Do NOT add any extra words or formatting. If something is missing, only ask for that piece."
}

// Complete runs one chat turn: the system prompt enumerating available
// slots, the relayed history, and the new user message.
func (c *Client) Complete(ctx context.Context, message string, history []Message, slots map[string][]string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(SlotSummary(slots))},
	}
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ClassifyIntent decides whether the user wants to book an appointment.
// It returns "book" or "other".
func (c *Client) ClassifyIntent(ctx context.Context, message string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You are an intent classifier. Decide if the user wants to BOOK an appointment (haircut). " +
					"Answer only 'book' or 'other'.",
			},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
	})
	if err != nil {
		return "", fmt.Errorf("intent classification failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("intent classification returned no choices")
	}

	if strings.Contains(strings.ToLower(resp.Choices[0].Message.Content), "book") {
		return "book", nil
	}
	return "other", nil
}
