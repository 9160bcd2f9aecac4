// Package config loads the project configuration.
//
// The configuration lives in suspense.yaml (or suspense.yml, or
// suspense.json) at the project root. Missing fields take their defaults,
// durations are strings such as "500ms", and command-line flags override
// what the file says.
//
// # Configuration File Structure
//
//	name: counter
//	server:
//	  host: localhost
//	  port: 3000
//	  shutdownTimeout: 10s
//	render:
//	  mode: ooo
//	  clientScript: /pkg/client.js
//	log:
//	  level: info
//	  format: text
//	export:
//	  target: s3://my-bucket/site
//	  region: eu-west-1
//	demo:
//	  latency: 500ms
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Listening on", cfg.Address())
package config
