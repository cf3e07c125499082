package internal

import "context"

// Isolator is an execution-isolation wrapper: it runs a view inside a
// resource-transaction boundary so that a failing view leaves no partial
// state behind. The concrete boundary (database transaction, etc.) is a
// collaborator concern; the engine only wraps and unwraps.
type Isolator interface {
	// Alias names the boundary. Views opt out per boundary via the
	// NonAtomic route option.
	Alias() string

	// Wrap returns a view that runs next inside the boundary.
	Wrap(next ViewFunc) ViewFunc
}

// TxRunner executes fn inside a transaction bound to the derived
// context. A non-nil error from fn rolls the transaction back.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// NewAtomic builds an Isolator from a transaction runner. The wrapped
// view sees the transaction through its request context.
func NewAtomic(alias string, run TxRunner) Isolator {
	return &atomicIsolator{alias: alias, run: run}
}

type atomicIsolator struct {
	alias string
	run   TxRunner
}

func (a *atomicIsolator) Alias() string {
	return a.alias
}

func (a *atomicIsolator) Wrap(next ViewFunc) ViewFunc {
	return func(r *Request) (*Response, error) {
		var resp *Response
		err := a.run(r.Context(), func(ctx context.Context) error {
			var verr error
			resp, verr = next(r.WithContext(ctx))
			return verr
		})
		if err != nil {
			return nil, err
		}
		return resp, nil
	}
}
