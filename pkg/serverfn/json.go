package serverfn

import (
	"bytes"
	"context"

	"github.com/bytedance/sonic"

	"github.com/vango-dev/suspense/internal/errors"
)

// JSON adapts a typed function into a server function that decodes its
// argument from and encodes its result to JSON. An empty body decodes to
// the zero argument.
func JSON[A, R any](name string, fn func(context.Context, A) (R, error)) Fn {
	return Fn{
		Name: name,
		Call: func(ctx context.Context, body []byte) ([]byte, error) {
			var args A
			if len(bytes.TrimSpace(body)) > 0 {
				if err := sonic.Unmarshal(body, &args); err != nil {
					return nil, errors.New("E082").WithDetailf("%s: %v", name, err).Wrap(err)
				}
			}
			result, err := fn(ctx, args)
			if err != nil {
				return nil, err
			}
			return sonic.Marshal(result)
		},
	}
}

// Decode unmarshals a JSON payload returned by a server function.
func Decode[R any](payload []byte) (R, error) {
	var out R
	if err := sonic.Unmarshal(payload, &out); err != nil {
		return out, errors.New("E082").Wrap(err)
	}
	return out, nil
}
