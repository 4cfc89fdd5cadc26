// Package stream implements the append-only transport underneath the
// cross-application sync pipeline: one durable log per (tenant, stream
// key), with per-consumer-group cursors committed independently of the
// append path. Delivery order is guaranteed only within a single log;
// different tenants or event types carry no mutual ordering.
//
// Stream keys follow the external naming contract, e.g.
// "crm:sync:role_updated" for events and "crm:sync:ack" for the
// acknowledgment stream of the "crm" application.
package stream
