// Package instrumentation provides OpenTelemetry metrics and tracing for
// the authorization server, its storage layer, and the resource gateway.
//
// Initialize once at startup and pass the instance to the components that
// record metrics:
//
//	inst, err := instrumentation.New(instrumentation.Config{
//		ServiceName:    "docs-mcp-oauth",
//		ServiceVersion: "1.0.0",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer inst.Shutdown(context.Background())
//
// Providers default to no-ops, so an unconfigured instance costs nothing.
// Real exporters can be attached without changing call sites because all
// recording goes through the Metrics holder and the Meter/Tracer accessors.
//
// Counter and span attributes carry metadata only. Token values,
// authorization codes, and PKCE verifiers must never be recorded.
package instrumentation
