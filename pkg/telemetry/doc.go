// Package telemetry provides the observability stack for vibe-setup:
// structured logging (zerolog), tracing (OpenTelemetry) and metrics
// (Prometheus), plus the pipeline observers that feed them and the run
// history.
//
// # Usage
//
// Initialize telemetry once at startup:
//
//	cfg := telemetry.DefaultConfig()
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// Hand the pieces to the pipeline:
//
//	p, err := pipeline.New(steps, st,
//	    pipeline.WithLogger(tel.Logger.Zerolog()),
//	    pipeline.WithTracer(tel.Tracer.Tracer()),
//	    pipeline.WithObserver(
//	        telemetry.NewRunObserver(tel.Logger, tel.Metrics),
//	        telemetry.NewHistoryObserver(history, tel.Logger, st.Location(), nil),
//	    ),
//	)
//
// # Logging
//
// Log levels are trace, debug, info, warn and error. The default is warn so
// that the progress table stays readable; --verbose switches to debug.
//
// # Metrics
//
// A setup run lives for seconds to minutes, so nothing is served over HTTP.
// When metrics.textfile_path is set, Shutdown writes the registry in the
// Prometheus text format for node_exporter's textfile collector.
//
// # Tracing
//
// The pipeline opens a "pipeline.run" span per invocation and a
// "pipeline.step" span per executed step. Exporters: otlp (gRPC), stdout,
// none.
package telemetry
