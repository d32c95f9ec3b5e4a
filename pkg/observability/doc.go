/*
Package observability exposes the fiber runtime's diagnostic aggregates to
monitoring systems.

It provides a prometheus.Collector over the process-wide counters (context
switches, switch delay, long-run events, live fibers, reserved stack bytes),
suitable for registration alongside application metrics.
*/
package observability
