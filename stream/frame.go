/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package stream defines the wire protocol between the game and the
// answering service: a JSON request carrying the transcript, answered by a
// text/event-stream of data frames ending in a [DONE] sentinel.
package stream

// AskPath is where the answering service listens.
const AskPath = "/api/ask/"

const (
	dataPrefix = "data:"
	// Done ends every successful stream.
	Done = "[DONE]"
)

// Frame types. Content frames carry no type.
const (
	TypeDebug = "debug"
	TypeError = "error"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type AskRequest struct {
	History []Message `json:"history"`
}

// Frame is the JSON payload of a single data line.
type Frame struct {
	Type         string `json:"type,omitempty"`
	Content      string `json:"content,omitempty"`
	FullPrompt   string `json:"full_prompt,omitempty"`
	FullResponse string `json:"full_response,omitempty"`
	Error        string `json:"error,omitempty"`
}
