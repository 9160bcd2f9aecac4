// Package errors provides structured, coded errors for the rendering engine
// and its tooling.
//
// # Error Categories
//
// Errors are organized into categories:
//   - runtime: render pass failures (a boundary panicked, a stream was cut short)
//   - hydration: server and client key sequences disagree
//   - stream: chunk delivery failures
//   - serverfn: server function dispatch errors
//   - config: invalid project configuration
//   - cli: command line errors
//
// # Error Codes
//
// Each error has a unique code (e.g., "E040") that maps to a short message,
// a detailed explanation and a documentation URL.
//
// # Usage
//
//	err := errors.New("E040").
//	    WithDetail(mismatch.String()).
//	    WithSuggestion("Render the same view on server and client")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E040: Hydration key mismatch
//	//
//	//   key 3: server "0-1-0", client "0-1f-0"
//	//
//	//   Hint: Render the same view on server and client
//	//
//	//   Learn more: https://suspense.vango.dev/errors/E040
//
// Errors wrap causes with Wrap and work with errors.Is and errors.As.
package errors
