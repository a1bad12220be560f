// Package telemetry provides observability instrumentation for dbfarm:
// structured logging (zerolog), metrics (Prometheus), and distributed
// tracing (OpenTelemetry) around the provisioning pipelines and engine
// adapter calls.
package telemetry
