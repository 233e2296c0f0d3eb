/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package session implements the game session controller for GuessMaster 20Q.
//
// A Controller owns the transcript, the question counter and the current
// screen. Its Run loop is the only goroutine that touches that state, so
// player input and streamed model output are handled one event at a time.
// Presentation surfaces feed it input through Start, Answer, RespondToGuess
// and Reset, and render whatever arrives on their Sink.
//
// Model turns are fetched through an Answerer. Each request carries a
// generation number; a reset cancels the request and bumps the generation,
// so nothing from an abandoned request can reach the session afterwards.
package session
