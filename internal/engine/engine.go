package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/swipepad/internal/domain"
	"github.com/roach88/swipepad/internal/session"
)

// Engine is the single-writer loop in front of one Session.
//
// Thread-safety model:
//   - Do() and the typed helpers: safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - Stop(): safe from any goroutine
type Engine struct {
	session *session.Session
	clock   *Clock
	queue   *commandQueue
	logger  *slog.Logger
}

// Reply is the result of an applied command.
type Reply struct {
	// Seq is the logical time at which the command was applied.
	Seq int64

	// Value is the command's reply value; see each command's doc.
	Value any
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine that owns s. After New, s must only be touched
// through the engine.
func New(s *session.Session, opts ...EngineOption) *Engine {
	e := &Engine{
		session: s,
		clock:   NewClock(),
		queue:   newCommandQueue(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run starts the single-writer loop.
// Blocks until ctx is cancelled or Stop() is called.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// After Stop, commands already queued are still applied before Run
// returns. After ctx is cancelled, they are answered with ENGINE_STOPPED.
// A failing command is logged and the loop continues.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting", "session", e.session.ID())

	for {
		env, ok := e.queue.TryDequeue()
		if ok {
			e.process(env)
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			e.drain()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes with the queue, so this fires
			// immediately once stopped.
			if e.queue.Len() == 0 && e.queue.Closed() {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue; Run returns once the queue is empty.
func (e *Engine) Stop() {
	e.queue.Close()
}

// Do enqueues cmd and waits for its reply.
//
// The returned error is the command's own error (a *domain.Error for
// session failures), a *RuntimeError from the engine, or ctx.Err() if the
// caller stopped waiting. A command whose caller stopped waiting may still
// be applied.
func (e *Engine) Do(ctx context.Context, cmd Command) (Reply, error) {
	env := envelope{ctx: ctx, cmd: cmd, reply: make(chan reply, 1)}
	if !e.queue.Enqueue(env) {
		return Reply{}, NewStoppedError(cmd.Name())
	}

	select {
	case r := <-env.reply:
		return Reply{Seq: r.seq, Value: r.value}, r.err
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// Swipe is Do(ctx, Swipe{dir}) with a typed result.
func (e *Engine) Swipe(ctx context.Context, dir domain.Direction) (session.SwipeResult, error) {
	r, err := e.Do(ctx, Swipe{Direction: dir})
	v, _ := r.Value.(session.SwipeResult)
	return v, err
}

// Checkout is Do(ctx, Checkout{}) with a typed result.
func (e *Engine) Checkout(ctx context.Context) (session.CheckoutResult, error) {
	r, err := e.Do(ctx, Checkout{})
	v, _ := r.Value.(session.CheckoutResult)
	return v, err
}

// Snapshot is Do(ctx, Snapshot{}) with a typed result.
func (e *Engine) Snapshot(ctx context.Context) (session.State, error) {
	r, err := e.Do(ctx, Snapshot{})
	v, _ := r.Value.(session.State)
	return v, err
}

// process applies one command and replies.
// CRITICAL: Called only from Run() goroutine - single-writer guarantee.
func (e *Engine) process(env envelope) {
	seq := e.clock.Next()
	value, err := e.apply(env)
	if err != nil {
		e.logger.Debug("command failed",
			"seq", seq,
			"command", env.cmd.Name(),
			"error", err,
		)
	} else {
		e.logger.Debug("command applied",
			"seq", seq,
			"command", env.cmd.Name(),
		)
	}
	env.reply <- reply{seq: seq, value: value, err: err}
}

func (e *Engine) apply(env envelope) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("command panicked",
				"command", env.cmd.Name(),
				"panic", fmt.Sprint(r),
			)
			value, err = nil, NewPanicError(env.cmd.Name(), r)
		}
	}()
	ctx := env.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return env.cmd.apply(ctx, e.session)
}

// drain answers every queued command with ENGINE_STOPPED.
func (e *Engine) drain() {
	for {
		env, ok := e.queue.TryDequeue()
		if !ok {
			return
		}
		env.reply <- reply{err: NewStoppedError(env.cmd.Name())}
	}
}
