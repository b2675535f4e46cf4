// Package metrics defines the Prometheus collectors of the relay.
//
// Collectors are registered on the default registry at init and exposed by the admin server.
package metrics
