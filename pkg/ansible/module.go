package ansible

import (
	"context"
	"fmt"
	"io"
)

// Invocation is a validated module call. Params is the decoded parameter struct.
type Invocation[P any] struct {
	Params    P
	CheckMode bool
}

// Handler runs the module logic for a validated invocation
type Handler[P any] func(ctx context.Context, inv Invocation[P]) Result

// Run loads the arguments file named by argv[1], decodes it into P, calls
// handler and writes the result to w. It returns the process exit code.
func Run[P any](ctx context.Context, argv []string, w io.Writer, handler Handler[P]) int {
	if len(argv) < 2 {
		return Exit(w, Failure(fmt.Sprintf("usage: %s <args-file>", programName(argv)), nil))
	}

	args, err := LoadArgs(argv[1])
	if err != nil {
		return Exit(w, Failure("", err))
	}

	return Exit(w, Invoke(ctx, args, handler))
}

// Invoke decodes and validates args and calls handler. The handler is not
// called when validation fails, so no QRadar request is made for invalid
// arguments.
func Invoke[P any](ctx context.Context, args *Args, handler Handler[P]) Result {
	var params P
	if err := Decode(args.Params, &params); err != nil {
		return Failure("", err)
	}
	return handler(ctx, Invocation[P]{Params: params, CheckMode: args.CheckMode})
}

func programName(argv []string) string {
	if len(argv) == 0 {
		return "module"
	}
	return argv[0]
}
