// Package decorator implements declarative caching decoration: read-through
// (Cacheable), write-through (CachePut), and invalidating (CacheEvict)
// wrappers around plain functions, backed by the command facade. Decorated
// calls carry an invocation context on the call path so cache and key
// resolvers can inspect the call that triggered them.
//
// Example usage:
//
//	engine := decorator.NewEngine(facade, decorator.WithLogger(logger))
//
//	getUser, err := engine.Cacheable(decorator.CacheableConfig{
//		Function: "GetUser",
//		Cache:    decorator.Cache("users"),
//		Key:      decorator.KeyContextFunc(func(c *decorator.Context) (any, error) {
//			return c.Args[0], nil
//		}),
//	}, loadUser)
//
//	user, err := getUser(ctx, userID)
package decorator

import (
	"context"
)

// Kind identifies which decoration wraps the current invocation.
type Kind int

const (
	KindCacheable Kind = iota
	KindCachePut
	KindCacheEvict
)

// String returns the kind's canonical name.
func (k Kind) String() string {
	switch k {
	case KindCacheable:
		return "cacheable"
	case KindCachePut:
		return "cache_put"
	case KindCacheEvict:
		return "cache_evict"
	default:
		return "unknown"
	}
}

// Ignored marks an argument position whose value must not be retained in
// the invocation context. Pass it in place of the real value when the
// argument is not bound to a name at the call site.
var Ignored = ignored{}

type ignored struct{}

// Context is the per-invocation record pushed onto the call path while a
// decorated function runs. It is immutable once created.
type Context struct {
	Kind     Kind
	Module   string
	Function string

	// Arity counts every argument position of the call, retained or not.
	Arity int

	// Args holds the retained argument values, in call order. Positions
	// passed as Ignored are omitted.
	Args []any

	parent *Context
}

// Parent returns the context of the enclosing decorated call, if the
// current call is nested inside one.
func (c *Context) Parent() *Context {
	return c.parent
}

// newContext builds the invocation record, sanitizing ignored positions.
func newContext(kind Kind, module, function string, args []any, parent *Context) *Context {
	retained := make([]any, 0, len(args))
	for _, a := range args {
		if _, skip := a.(ignored); skip {
			continue
		}
		retained = append(retained, a)
	}
	return &Context{
		Kind:     kind,
		Module:   module,
		Function: function,
		Arity:    len(args),
		Args:     retained,
		parent:   parent,
	}
}

type ctxKey struct{}

// push derives a child call context carrying c on top of the stack. The
// parent context is untouched, so the stack unwinds structurally on every
// exit path, panics included.
func push(ctx context.Context, c *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// Current returns the innermost decorated invocation on the call path,
// or false when the caller is not inside a decorated call.
func Current(ctx context.Context) (*Context, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Context)
	return c, ok
}

// Depth returns how many decorated invocations enclose the call path.
func Depth(ctx context.Context) int {
	c, ok := Current(ctx)
	if !ok {
		return 0
	}
	depth := 0
	for ; c != nil; c = c.parent {
		depth++
	}
	return depth
}
