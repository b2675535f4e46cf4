// Package `relayd` implements line relay server over TCP.
//
// Every line a client sends is written to all other connected clients.
// Server is configured with environment variables (or .env file), run
//
//	go run . -help
//
// to list them with defaults. Quick test with two terminals:
//
//	nc localhost 8080
package main
