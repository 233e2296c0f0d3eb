/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package answering

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/guessmaster/stream"
)

type chatRequest struct {
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// fakeModel serves chat completion chunks the way an OpenAI-compatible
// server does.
func fakeModel(t *testing.T, chunks []string, status int) (*httptest.Server, <-chan chatRequest) {
	t.Helper()

	got := make(chan chatRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}

		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		got <- req

		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"error":{"message":"model not loaded","type":"server_error"}}`)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			b, _ := json.Marshal(c)
			fmt.Fprintf(w, "data: {\"id\":\"x\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%s}}]}\n\n", b)
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)

	return srv, got
}

func newService(t *testing.T, baseURL string, debug bool) *Service {
	t.Helper()

	s, err := New(Config{
		BaseURL: baseURL + "/v1",
		Model:   "test-model",
		Limit:   20,
		Debug:   debug,
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)

	return s
}

func ask(t *testing.T, s *Service, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, stream.AskPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	return rec
}

func frames(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()

	r := stream.NewReader(io.NopCloser(bytes.NewReader(rec.Body.Bytes())), zerolog.Nop())
	var out []string
	for {
		f, err := r.Recv()
		if err != nil {
			require.ErrorIs(t, err, io.EOF)
			return out
		}
		out = append(out, f)
	}
}

func TestServeStreamsModelReply(t *testing.T) {
	upstream, got := fakeModel(t, []string{"Does it ", "", "have fur?"}, http.StatusOK)
	s := newService(t, upstream.URL, false)

	rec := ask(t, s, `{"history":[{"role":"assistant","content":"Is it alive?"},{"role":"user","content":"Yes"}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	require.Equal(t, []string{"Does it ", "have fur?"}, frames(t, rec))
	require.NotContains(t, rec.Body.String(), `"type":"debug"`)

	req := <-got
	require.Equal(t, "test-model", req.Model)
	require.True(t, req.Stream)
	require.Len(t, req.Messages, 4)
	require.Equal(t, "system", req.Messages[0].Role)
	require.Contains(t, req.Messages[0].Content, "You have asked 1 of 20 questions")
	require.Equal(t, "user", req.Messages[1].Role)
	require.Equal(t, "assistant", req.Messages[2].Role)
	require.Equal(t, "Is it alive?", req.Messages[2].Content)
	require.Equal(t, "Yes", req.Messages[3].Content)
}

func TestServeEmptyHistory(t *testing.T) {
	upstream, got := fakeModel(t, []string{"Is it alive?"}, http.StatusOK)
	s := newService(t, upstream.URL, false)

	rec := ask(t, s, `{"history":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"Is it alive?"}, frames(t, rec))

	req := <-got
	require.Len(t, req.Messages, 2)
	require.Contains(t, req.Messages[0].Content, "You have asked 0 of 20 questions")
}

func TestServeDebugFrame(t *testing.T) {
	upstream, _ := fakeModel(t, []string{"Is it a cat?"}, http.StatusOK)
	s := newService(t, upstream.URL, true)

	rec := ask(t, s, `{"history":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.Contains(t, body, `"type":"debug"`)
	require.Contains(t, body, `"full_response":"Is it a cat?"`)
	require.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"))

	// Diagnostic frames never leak into the visible text.
	require.Equal(t, []string{"Is it a cat?"}, frames(t, rec))
}

func TestServeUpstreamFailure(t *testing.T) {
	upstream, _ := fakeModel(t, nil, http.StatusInternalServerError)
	s := newService(t, upstream.URL, false)

	rec := ask(t, s, `{"history":[]}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, rec.Body.String(), "failed to connect to AI service")
}

func TestServeRejectsBadRequests(t *testing.T) {
	s := newService(t, "http://127.0.0.1:1", false)

	long := strings.Repeat("a", maxMessageLength+1)
	many := make([]stream.Message, 81)
	for i := range many {
		many[i] = stream.Message{Role: "user", Content: "Yes"}
	}
	manyJSON, err := json.Marshal(stream.AskRequest{History: many})
	require.NoError(t, err)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed", `{"history":`, "invalid JSON"},
		{"bad role", `{"history":[{"role":"system","content":"hi"}]}`, "invalid role"},
		{"too long", `{"history":[{"role":"user","content":"` + long + `"}]}`, "too long"},
		{"too many", string(manyJSON), "history too long"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := ask(t, s, tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var e map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
			require.Contains(t, e["error"], tc.want)
		})
	}
}

func TestServeLongAssistantTurnAllowed(t *testing.T) {
	upstream, _ := fakeModel(t, []string{"Does it fly?"}, http.StatusOK)
	s := newService(t, upstream.URL, false)

	long := strings.Repeat("b", maxMessageLength+50)
	rec := ask(t, s, `{"history":[{"role":"assistant","content":"`+long+`"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServeRejectsGet(t *testing.T) {
	s := newService(t, "http://127.0.0.1:1", false)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, stream.AskPath, nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestNewRejectsZeroLimit(t *testing.T) {
	_, err := New(Config{Limit: 0})
	require.Error(t, err)
}

func TestServeSkipsUnknownAnswersInProgress(t *testing.T) {
	upstream, got := fakeModel(t, []string{"Does it swim?"}, http.StatusOK)
	s := newService(t, upstream.URL, false)

	history := make([]stream.Message, 0, 38)
	for range 19 {
		history = append(history,
			stream.Message{Role: "assistant", Content: "Does it have fur?"},
			stream.Message{Role: "user", Content: "I don't know"},
		)
	}
	body, err := json.Marshal(stream.AskRequest{History: history})
	require.NoError(t, err)

	rec := ask(t, s, string(body))
	require.Equal(t, http.StatusOK, rec.Code)

	req := <-got
	require.Contains(t, req.Messages[0].Content, "You have asked 1 of 20 questions")
	require.NotContains(t, req.Messages[0].Content, "final chance")
}

func TestAskedFollowsTurnCounter(t *testing.T) {
	q := func(text string) stream.Message { return stream.Message{Role: "assistant", Content: text} }
	a := func(text string) stream.Message { return stream.Message{Role: "user", Content: text} }

	tests := []struct {
		name    string
		history []stream.Message
		limit   int
		want    int
	}{
		{"empty", nil, 20, 0},
		{"opening", []stream.Message{q("Is it alive?")}, 20, 1},
		{"opening after unknown still counts", []stream.Message{q("Is it alive?"), a("I don't know")}, 20, 1},
		{"yes and no count", []stream.Message{q("A?"), a("Yes"), q("B?"), a("No"), q("C?")}, 20, 3},
		{"unknown skips next", []stream.Message{q("A?"), a("I don't know"), q("B?"), a("Yes"), q("C?")}, 20, 2},
		{"capped", []stream.Message{q("A?"), a("Yes"), q("B?"), a("Yes"), q("C?"), a("Yes"), q("D?")}, 3, 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, asked(tc.history, tc.limit))
		})
	}
}
