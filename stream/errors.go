/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package stream

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrUnexpectedEnd is returned when the body ends before the sentinel.
var ErrUnexpectedEnd = errors.New("stream ended without end-of-stream marker")

// StatusError is a non-success response from the answering service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP error! status: %d", e.Code)
	}
	return fmt.Sprintf("HTTP error! status: %d: %s", e.Code, e.Body)
}

// RemoteError is an error frame sent by the service mid-stream.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "answering service: " + e.Message
}
