/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package stream

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const maxFrameSize = 1 << 20

// Reader turns a response body into content fragments.
type Reader struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	logger  zerolog.Logger
	done    bool

	closeOnce sync.Once
	closeErr  error
}

func NewReader(body io.ReadCloser, logger zerolog.Logger) *Reader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 4096), maxFrameSize)

	return &Reader{
		body:    body,
		scanner: scanner,
		logger:  logger,
	}
}

// Recv returns the next content fragment, or io.EOF once the sentinel has
// been read. Frames that fail to decode are skipped. Diagnostic frames are
// logged and never returned.
func (r *Reader) Recv() (string, error) {
	if r.done {
		return "", io.EOF
	}

	for r.scanner.Scan() {
		line := strings.TrimRight(r.scanner.Text(), "\r")

		data, ok := strings.CutPrefix(line, dataPrefix)
		if !ok {
			continue
		}
		data = strings.TrimPrefix(data, " ")

		if data == Done {
			r.done = true
			return "", io.EOF
		}

		var f Frame
		if err := json.Unmarshal([]byte(data), &f); err != nil {
			r.logger.Debug().Err(err).Str("component", "stream").Msg("skipping undecodable frame")
			continue
		}

		switch f.Type {
		case TypeDebug:
			r.logger.Debug().
				Str("component", "stream").
				Str("full_prompt", f.FullPrompt).
				Str("full_response", f.FullResponse).
				Msg("answering service diagnostics")
			continue
		case TypeError:
			return "", &RemoteError{Message: f.Error}
		}

		if f.Content != "" {
			return f.Content, nil
		}
	}

	if err := r.scanner.Err(); err != nil {
		return "", errors.Wrap(err, "read stream")
	}

	return "", ErrUnexpectedEnd
}

// Close is safe to call more than once.
func (r *Reader) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.body.Close()
	})
	return r.closeErr
}
