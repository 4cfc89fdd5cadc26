// Package httpserver exposes the sync core over a JSON HTTP API:
// event publishing, acknowledgment submission for downstream apps,
// tracking status and search, sync health, workflow operations, tenant
// creation, a health probe and Prometheus metrics.
package httpserver
