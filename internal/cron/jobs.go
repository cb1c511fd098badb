package cron

import "context"

// funcJob adapts a plain function to the Job interface, the way most of
// this system's scheduled work is a thin call into pipeline/strategy/paper
// rather than a bespoke job type.
type funcJob struct {
	name string
	fn   func() error
}

func (j funcJob) Name() string { return j.name }
func (j funcJob) Run() error   { return j.fn() }

// NewJob wraps fn as a named Job.
func NewJob(name string, fn func() error) Job { return funcJob{name: name, fn: fn} }

// NewContextJob adapts a context-taking function (collector polls and the
// snapshot export need one) using ctx as a fixed background
// context, since robfig/cron invokes Run with no per-tick context of its
// own.
func NewContextJob(name string, ctx context.Context, fn func(context.Context) error) Job {
	return funcJob{name: name, fn: func() error { return fn(ctx) }}
}
