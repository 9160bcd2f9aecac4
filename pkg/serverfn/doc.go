// Package serverfn exposes named server functions over HTTP.
//
// A Registry is built once from its functions and is read-only afterwards:
//
//	reg, err := serverfn.NewRegistry(
//	    serverfn.JSON("adjust_server_count", adjust),
//	    serverfn.JSON("clear_server_count", clear),
//	)
//	router.Post("/api/{name}", reg.Handler(serverfn.HandlerConfig{}).ServeHTTP)
//
// A call is a POST with the encoded arguments as body. Clients that accept
// application/json get the payload with 200; plain form posts are redirected
// back to the Referer with 303 See Other and the payload as body.
package serverfn
