/*
Package observability provides event sinks for monitoring behavior trees and agents.

Every sink implements ports.EventSink and can be attached to a tree (tree.WithSink),
an agent (agent.WithSink) or a context (node.WithSink):

  - LogSink writes events to a slog.Logger.
  - Metrics records Prometheus counters and histograms.
  - Tracer turns tick and halt pairs into OpenTelemetry spans.
  - Multi fans one event out to several sinks.
*/
package observability
