// Package integration runs berth end to end inside the test process: bolt
// storage, the drain monitor and the HTTP API, driven through pkg/client.
// Run with `go test ./test/...`; -short skips it.
package integration
