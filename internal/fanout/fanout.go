// Package fanout runs one operation over many inputs on a bounded worker pool.
//
// Every input gets exactly one Result at the same index, so callers can zip
// results back to their inputs. A failing, panicking or timed-out task only
// marks its own Result as failed; siblings keep running.
package fanout

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultWorkers = 20
	DefaultTimeout = 90 * time.Second
)

// ErrTimeout marks a task that did not finish within Options.Timeout.
var ErrTimeout = errors.New("fan-out task timed out")

// Result is the outcome of one task.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the task succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Options configures Do. Zero values fall back to the defaults.
type Options struct {
	Workers int
	// Timeout bounds each task. A timed-out task frees its worker slot while
	// fn keeps running in the background, so Workers is only a strict bound
	// for operations that return once their context is done.
	Timeout time.Duration
	Logger  *slog.Logger
}

func (o Options) normalized() Options {
	out := o
	if out.Workers <= 0 {
		out.Workers = DefaultWorkers
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

// Do executes fn once per input with at most opt.Workers tasks in flight and
// returns results in input order.
func Do[In, Out any](ctx context.Context, inputs []In, fn func(ctx context.Context, in In) (Out, error), opt Options) []Result[Out] {
	opt = opt.normalized()
	results := make([]Result[Out], len(inputs))

	// Plain Group: a failed task must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(opt.Workers)

	for i, in := range inputs {
		g.Go(func() error {
			results[i] = runTask(ctx, i, in, fn, opt)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Values returns the successful values and the number of failed results.
func Values[T any](results []Result[T]) ([]T, int) {
	out := make([]T, 0, len(results))
	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
			continue
		}
		out = append(out, r.Value)
	}
	return out, failed
}

func runTask[In, Out any](ctx context.Context, idx int, in In, fn func(context.Context, In) (Out, error), opt Options) Result[Out] {
	taskCtx, cancel := context.WithTimeout(ctx, opt.Timeout)
	defer cancel()

	done := make(chan Result[Out], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Result[Out]{Err: goerr.New("panic in fan-out task",
					goerr.V("recover", r),
					goerr.V("stack", string(debug.Stack())),
				)}
			}
		}()

		v, err := fn(taskCtx, in)
		done <- Result[Out]{Value: v, Err: err}
	}()

	var res Result[Out]
	select {
	case res = <-done:
	case <-taskCtx.Done():
		select {
		case res = <-done:
		default:
			res = Result[Out]{Err: abortError(ctx, opt.Timeout)}
		}
	}

	if res.Err != nil {
		opt.Logger.Warn("fan-out task failed", "index", idx, "error", res.Err)
	}
	return res
}

func abortError(parent context.Context, timeout time.Duration) error {
	if err := parent.Err(); err != nil {
		return goerr.Wrap(err, "fan-out task cancelled")
	}
	return goerr.Wrap(ErrTimeout, "fan-out task aborted", goerr.V("timeout", timeout.String()))
}
