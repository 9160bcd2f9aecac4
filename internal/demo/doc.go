// Package demo is the application served by "suspense serve": an
// isomorphic counter kept on the server and a page of suspense boundaries
// whose resources take a configurable time to resolve.
//
// The counter is changed through three server functions,
// get_server_count, adjust_server_count and clear_server_count, and every
// change is broadcast on a live.Hub so /api/events subscribers and live
// views see it.
package demo
