package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"google.golang.org/genai"

	"siteops-backend/internal/metrics"
)

const DefaultChatModel = "gemini-2.5-flash"

var ErrChatInput = errors.New("transcribed text and user message are required")

const chatSystemPrompt = `You are an AI assistant helping users understand a CAT equipment training video. 

Video Transcription Context:
"%s"

Please answer user questions based on this video content. If the user asks about something not covered in the video, politely let them know that the information isn't available in this particular training video.

Be helpful, accurate, and focus on safety and proper equipment operation procedures mentioned in the video.`

type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

type ChatReply struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Completer turns a prompt into model text
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GeminiCompleter calls the Gemini API through the genai SDK
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

func NewGeminiCompleter(ctx context.Context, apiKey, model string) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if model == "" {
		model = DefaultChatModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiCompleter{client: client, model: model}, nil
}

func (g *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	return resp.Text(), nil
}

// BuildChatPrompt renders the transcript, prior turns and the new question
// into one prompt
func BuildChatPrompt(transcript, userMessage string, history []ChatMessage) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(chatSystemPrompt, transcript))
	b.WriteString("\n\n")

	for _, msg := range history {
		speaker := "Assistant"
		if msg.Role == "user" {
			speaker = "User"
		}
		b.WriteString(fmt.Sprintf("%s: %s\n", speaker, msg.Content))
	}

	b.WriteString(fmt.Sprintf("User: %s\nAssistant:", userMessage))
	return b.String()
}

type ChatService struct {
	completer Completer
	now       func() time.Time
}

func NewChatService(completer Completer) *ChatService {
	return &ChatService{completer: completer, now: time.Now}
}

func (s *ChatService) Available() bool {
	return s != nil && s.completer != nil
}

func (s *ChatService) Chat(ctx context.Context, transcript, userMessage string, history []ChatMessage) (*ChatReply, error) {
	if strings.TrimSpace(transcript) == "" || strings.TrimSpace(userMessage) == "" {
		return nil, ErrChatInput
	}
	if !s.Available() {
		return nil, fmt.Errorf("chat model is not configured")
	}

	log.Printf("🤖 Sending chat message (%d history turns)", len(history))

	started := time.Now()
	text, err := s.completer.Complete(ctx, BuildChatPrompt(transcript, userMessage, history))
	metrics.RecordExternalCall("chat_completion", time.Since(started), err)
	if err != nil {
		return nil, err
	}

	return &ChatReply{
		Success:   true,
		Message:   text,
		Timestamp: s.now().UTC().Format(time.RFC3339),
	}, nil
}
