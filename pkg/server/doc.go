// Package server is the HTTP surface of a suspense application.
//
// It serves pages in any render mode, runs server functions, pushes shared
// state over SSE and WebSocket, and hosts client-interactive documents
// whose patches travel over a WebSocket:
//
//	GET  /{page}?mode=ooo     page in the requested render mode
//	POST /api/{name}          server function call
//	GET  /api/events          SSE stream of shared state
//	GET  /api/events/ws       the same stream over WebSocket
//	GET  /api/live            live document over WebSocket
//	GET  /metrics             Prometheus exposition
//	GET  /healthz             liveness probe
//
// A Server is built from a Config and started with Run, which blocks until
// the context ends or the process receives SIGINT/SIGTERM.
package server
