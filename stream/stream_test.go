/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package stream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r *Reader) ([]string, error) {
	t.Helper()
	var out []string
	for {
		f, err := r.Recv()
		if err != nil {
			return out, err
		}
		out = append(out, f)
	}
}

func newTestReader(body string) *Reader {
	return NewReader(io.NopCloser(strings.NewReader(body)), zerolog.Nop())
}

func TestReaderConcatenatesFragmentsUntilDone(t *testing.T) {
	r := newTestReader("data: {\"content\":\"Is it \"}\n\n" +
		"data: {\"content\":\"alive?\"}\n\n" +
		"data: [DONE]\n\n" +
		"data: {\"content\":\"ignored\"}\n\n")

	got, err := readAll(t, r)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, []string{"Is it ", "alive?"}, got)

	_, err = r.Recv()
	require.ErrorIs(t, err, io.EOF)
}

func TestReaderSkipsMalformedAndDiagnosticFrames(t *testing.T) {
	r := newTestReader(": comment\n" +
		"event: message\n" +
		"data: {not json\n\n" +
		"data: {\"type\":\"debug\",\"full_prompt\":\"p\",\"full_response\":\"r\"}\n\n" +
		"data: {}\n\n" +
		"data:{\"content\":\"Does it bark?\"}\r\n\r\n" +
		"data: [DONE]\n\n")

	got, err := readAll(t, r)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, []string{"Does it bark?"}, got)
}

func TestReaderUnexpectedEnd(t *testing.T) {
	r := newTestReader("data: {\"content\":\"Does it\"}\n\n")

	got, err := readAll(t, r)
	require.ErrorIs(t, err, ErrUnexpectedEnd)
	require.Equal(t, []string{"Does it"}, got)
}

func TestReaderRemoteError(t *testing.T) {
	r := newTestReader("data: {\"type\":\"error\",\"error\":\"model unavailable\"}\n\n")

	_, err := r.Recv()
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	require.Equal(t, "model unavailable", remote.Message)
}

func TestReaderCloseIsIdempotent(t *testing.T) {
	r := newTestReader("")
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
}

func TestWriterRoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec)

	require.NoError(t, w.Content("Could it be "))
	require.NoError(t, w.Content("a \"kite\"?"))
	require.NoError(t, w.Diagnostic("prompt", "response"))
	require.NoError(t, w.Done())

	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	require.True(t, rec.Flushed)
	require.True(t, strings.HasSuffix(rec.Body.String(), "data: [DONE]\n\n"))

	got, err := readAll(t, NewReader(io.NopCloser(rec.Body), zerolog.Nop()))
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, "Could it be a \"kite\"?", strings.Join(got, ""))
}

type captured struct {
	method      string
	path        string
	contentType string
	body        []byte
}

func captureServer(t *testing.T, reply func(*Writer)) (*httptest.Server, <-chan captured) {
	t.Helper()

	got := make(chan captured, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- captured{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			body:        body,
		}
		reply(NewWriter(w))
	}))
	t.Cleanup(srv.Close)

	return srv, got
}

func TestClientOpenPostsHistory(t *testing.T) {
	srv, got := captureServer(t, func(w *Writer) {
		_ = w.Content("Is it a dog?")
		_ = w.Done()
	})

	c, err := NewClient(srv.URL + "/")
	require.NoError(t, err)
	require.Equal(t, srv.URL+AskPath, c.Endpoint())

	history := []Message{
		{Role: "assistant", Content: "Does it bark?"},
		{Role: "user", Content: "Yes"},
	}
	r, err := c.Open(context.Background(), history)
	require.NoError(t, err)
	defer r.Close()

	fragments, err := readAll(t, r)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, []string{"Is it a dog?"}, fragments)

	req := <-got
	require.Equal(t, http.MethodPost, req.method)
	require.Equal(t, AskPath, req.path)
	require.Equal(t, "application/json", req.contentType)

	var ask AskRequest
	require.NoError(t, json.Unmarshal(req.body, &ask))
	require.Equal(t, history, ask.History)
}

func TestClientOpenSendsEmptyHistoryAsArray(t *testing.T) {
	srv, got := captureServer(t, func(w *Writer) {
		_ = w.Done()
	})

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	r, err := c.Open(context.Background(), nil)
	require.NoError(t, err)
	defer r.Close()

	req := <-got
	require.JSONEq(t, `{"history":[]}`, string(req.body))
}

func TestClientOpenNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Open(context.Background(), nil)
	var status *StatusError
	require.ErrorAs(t, err, &status)
	require.Equal(t, http.StatusInternalServerError, status.Code)
	require.Equal(t, "upstream exploded", status.Body)
	require.Contains(t, err.Error(), "status: 500")
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	_, err := NewClient("/api")
	require.Error(t, err)

	_, err = NewClient("ftp://example.com")
	require.Error(t, err)
}
