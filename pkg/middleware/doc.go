// Package middleware provides HTTP middleware for the board side-channel:
// OpenTelemetry tracing spans and Prometheus request metrics.
package middleware
