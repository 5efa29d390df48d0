// Package middleware provides HTTP middleware for the catalog server:
// access logging in W3C Extended Log Format, Prometheus request metrics
// with bounded label cardinality, and gzip response compression.
package middleware
