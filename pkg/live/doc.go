// Package live broadcasts a changing value to connected clients.
//
// A Hub keeps the current value and fans every published value out to its
// subscribers. Each subscriber has a bounded buffer; when a slow consumer's
// buffer is full the value is dropped for that subscriber only.
//
// SSEHandler and WebSocketHandler expose a Hub over HTTP. Both send the
// current value first and then every published value.
package live
