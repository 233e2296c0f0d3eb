/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Seednode/guessmaster/session"
)

type options struct {
	limit  int
	logger zerolog.Logger
	input  io.Reader
	output io.Writer
}

type Option func(*options)

func WithLimit(n int) Option {
	return func(o *options) {
		o.limit = n
	}
}

// WithLogger sets the session logger. It must not write to the terminal the
// program is drawing on.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithIO(in io.Reader, out io.Writer) Option {
	return func(o *options) {
		o.input = in
		o.output = out
	}
}

// programSink forwards controller events to the running program. Send
// returns immediately once the program has exited.
type programSink struct {
	p *tea.Program
}

func (s *programSink) Emit(ev session.Event) {
	s.p.Send(eventMsg{event: ev})
}

// Run plays in the terminal until the user quits or ctx is cancelled.
func Run(ctx context.Context, answerer session.Answerer, opts ...Option) error {
	o := options{
		limit:  session.DefaultLimit,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sink := &programSink{}
	controller := session.New(answerer, sink,
		session.WithLimit(o.limit),
		session.WithLogger(o.logger),
	)

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if o.input != nil {
		programOpts = append(programOpts, tea.WithInput(o.input))
	}
	if o.output != nil {
		programOpts = append(programOpts, tea.WithOutput(o.output))
	} else {
		programOpts = append(programOpts, tea.WithAltScreen())
	}

	sink.p = tea.NewProgram(NewModel(controller, controller.Limit()), programOpts...)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := controller.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		defer cancel()

		_, err := sink.p.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})

	return g.Wait()
}
