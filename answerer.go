/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Seednode/guessmaster/session"
	"github.com/Seednode/guessmaster/stream"
)

// remoteAnswerer asks an answering service over HTTP.
type remoteAnswerer struct {
	client *stream.Client
}

func newRemoteAnswerer(baseURL string, logger zerolog.Logger) (*remoteAnswerer, error) {
	client, err := stream.NewClient(baseURL, stream.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	return &remoteAnswerer{client: client}, nil
}

func (a *remoteAnswerer) Ask(ctx context.Context, turns []session.Turn) (session.Stream, error) {
	history := make([]stream.Message, len(turns))
	for i, t := range turns {
		history[i] = stream.Message{Role: string(t.Role), Content: t.Text}
	}

	r, err := a.client.Open(ctx, history)
	if err != nil {
		return nil, err
	}

	return r, nil
}
