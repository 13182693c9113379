package decorator

import (
	"context"

	"github.com/decocache/decocache/pkg/command"
)

// MatchResult decides whether and what a decoration stores. Construct one
// with AsIs, Skip, Value, or ValueWithOptions.
type MatchResult struct {
	kind  matchKind
	value any
	opts  command.PutOptions
}

type matchKind int

const (
	matchAsIs matchKind = iota
	matchSkip
	matchValue
	matchValueWithOptions
)

// AsIs stores the produced value unchanged.
func AsIs() MatchResult {
	return MatchResult{kind: matchAsIs}
}

// Skip stores nothing.
func Skip() MatchResult {
	return MatchResult{kind: matchSkip}
}

// Value stores v in place of the produced value.
func Value(v any) MatchResult {
	return MatchResult{kind: matchValue, value: v}
}

// ValueWithOptions stores v with extra overriding the decoration's base
// storage options.
func ValueWithOptions(v any, extra command.PutOptions) MatchResult {
	return MatchResult{kind: matchValueWithOptions, value: v, opts: extra}
}

// matched reports whether the result stores anything.
func (r MatchResult) matched() bool {
	return r.kind != matchSkip
}

// payload returns the value and options to store, given the produced value
// and the decoration's base options.
func (r MatchResult) payload(produced any, base command.PutOptions) (any, command.PutOptions) {
	switch r.kind {
	case matchValue:
		return r.value, base
	case matchValueWithOptions:
		return r.value, base.Merged(r.opts)
	default:
		return produced, base
	}
}

// MatchFunc is consulted before any gated write. It receives the produced
// value and the current invocation context.
type MatchFunc func(value any, c *Context) MatchResult

// matchAlways is the default match function: everything is stored as-is.
func matchAlways(any, *Context) MatchResult {
	return AsIs()
}

// storeGated writes value through the match gate. It reports whether a
// write happened; write failures are returned for the caller's on-error
// policy.
func (e *Engine) storeGated(ctx context.Context, h command.Handle, key string, value any, base command.PutOptions, match MatchFunc, dctx *Context) (bool, error) {
	res := match(value, dctx)
	if !res.matched() {
		return false, nil
	}
	v, opts := res.payload(value, base)
	if err := e.facade.Put(ctx, h, key, v, opts); err != nil {
		return false, err
	}
	e.countPut(h)
	return true, nil
}
