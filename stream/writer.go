/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package stream

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Writer emits frames on an HTTP response, flushing after each one.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter sets the event-stream headers; nothing is written until the
// first frame.
func NewWriter(w http.ResponseWriter) *Writer {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, _ := w.(http.Flusher)

	return &Writer{w: w, flusher: flusher}
}

func (w *Writer) Content(s string) error {
	return w.frame(Frame{Content: s})
}

func (w *Writer) Diagnostic(prompt, response string) error {
	return w.frame(Frame{Type: TypeDebug, FullPrompt: prompt, FullResponse: response})
}

func (w *Writer) Error(msg string) error {
	return w.frame(Frame{Type: TypeError, Error: msg})
}

func (w *Writer) Done() error {
	return w.write(Done)
}

func (w *Writer) frame(f Frame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return errors.Wrap(err, "encode frame")
	}
	return w.write(string(b))
}

func (w *Writer) write(data string) error {
	if _, err := fmt.Fprintf(w.w, "%s %s\n\n", dataPrefix, data); err != nil {
		return errors.Wrap(err, "write frame")
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}
