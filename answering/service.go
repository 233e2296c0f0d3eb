/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package answering serves the ask endpoint: it forwards a game transcript to
// an OpenAI-compatible chat model and relays the reply as a frame stream.
package answering

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/Seednode/guessmaster/session"
	"github.com/Seednode/guessmaster/stream"
)

const (
	DefaultBaseURL = "http://127.0.0.1:11434/v1"
	DefaultModel   = "llama3.2:3b"

	maxMessageLength = 500
	maxRequestBody   = 1 << 20

	roleUser      = "user"
	roleAssistant = "assistant"
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Prompt  *Prompt
	Limit   int

	// Debug appends a diagnostic frame with the full prompt and reply.
	Debug bool

	Logger zerolog.Logger
}

type Service struct {
	client *openai.Client
	model  string
	prompt *Prompt
	limit  int
	debug  bool
	logger zerolog.Logger
}

func New(cfg Config) (*Service, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Limit < 1 {
		return nil, errors.Errorf("question limit must be positive, got %d", cfg.Limit)
	}
	if cfg.Prompt == nil {
		p, err := LoadPrompt("")
		if err != nil {
			return nil, err
		}
		cfg.Prompt = p
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return &Service{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.Model,
		prompt: cfg.Prompt,
		limit:  cfg.Limit,
		debug:  cfg.Debug,
		logger: cfg.Logger.With().Str("component", "answering").Logger(),
	}, nil
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Service) validate(history []stream.Message) error {
	if len(history) > 4*s.limit {
		return errors.Errorf("history too long (max %d entries)", 4*s.limit)
	}

	for i, m := range history {
		switch m.Role {
		case roleUser:
			if utf8.RuneCountInString(m.Content) > maxMessageLength {
				return errors.Errorf("message %d too long (max %d characters)", i, maxMessageLength)
			}
		case roleAssistant:
		default:
			return errors.Errorf("message %d has invalid role %q", i, m.Role)
		}
	}

	return nil
}

// asked counts model turns the way the game's turn counter does: the opening
// question always counts, and a question that follows "I don't know" does not.
func asked(history []stream.Message, limit int) int {
	n := 0
	prev := ""
	for _, m := range history {
		switch m.Role {
		case roleAssistant:
			if n == 0 || prev != session.Unknown.Text {
				n++
			}
		case roleUser:
			prev = m.Content
		}
	}
	return min(n, limit)
}

func (s *Service) messages(history []stream.Message) ([]openai.ChatCompletionMessage, error) {
	progress, err := s.prompt.Context(asked(history, s.limit), s.limit)
	if err != nil {
		return nil, err
	}

	out := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	out = append(out, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: s.prompt.System + "\n\n" + progress,
	})
	if s.prompt.Opening != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: s.prompt.Opening,
		})
	}
	for _, m := range history {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	return out, nil
}

func flatten(msgs []openai.ChatCompletionMessage) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req stream.AskRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	if err := s.validate(req.History); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msgs, err := s.messages(req.History)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to build prompt")
		writeError(w, http.StatusInternalServerError, "failed to build prompt")
		return
	}

	upstream, err := s.client.CreateChatCompletionStream(r.Context(), openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    msgs,
		Temperature: s.prompt.Style.Temperature,
		TopP:        s.prompt.Style.TopP,
		MaxTokens:   s.prompt.Style.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("model", s.model).Msg("failed to reach model")
		writeError(w, http.StatusBadGateway, "failed to connect to AI service")
		return
	}
	defer upstream.Close()

	sw := stream.NewWriter(w)

	var full strings.Builder
	for {
		resp, err := upstream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.logger.Error().Err(err).Msg("model stream failed")
			_ = sw.Error("AI service stream failed")
			return
		}

		if len(resp.Choices) == 0 {
			continue
		}

		chunk := resp.Choices[0].Delta.Content
		if chunk == "" {
			continue
		}
		full.WriteString(chunk)

		if err := sw.Content(chunk); err != nil {
			s.logger.Debug().Err(err).Msg("client went away mid-stream")
			return
		}
	}

	if s.debug {
		if err := sw.Diagnostic(flatten(msgs), full.String()); err != nil {
			return
		}
	}

	if err := sw.Done(); err != nil {
		return
	}

	s.logger.Info().
		Str("ip", r.RemoteAddr).
		Int("history", len(req.History)).
		Int("chars", full.Len()).
		Dur("elapsed", time.Since(startTime)).
		Msg("answered")
}
