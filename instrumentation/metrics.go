package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metric instruments for the authorization server and
// the resource gateway.
type Metrics struct {
	// HTTP layer
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// OAuth flow
	AuthorizationStarted metric.Int64Counter
	CallbackProcessed    metric.Int64Counter
	CodeExchanged        metric.Int64Counter
	TokenRefreshed       metric.Int64Counter
	ClientRegistered     metric.Int64Counter

	// Security
	RateLimitExceeded    metric.Int64Counter
	PKCEValidationFailed metric.Int64Counter
	RefreshReuseDetected metric.Int64Counter

	// Resource gateway
	GatewayRequestsTotal metric.Int64Counter
	GatewayAuthFailures  metric.Int64Counter

	// Storage gauges, observed via RegisterStorageSizeCallbacks
	StoragePendingCount       metric.Int64ObservableGauge
	StorageCodesCount         metric.Int64ObservableGauge
	StorageClientsCount       metric.Int64ObservableGauge
	StorageRefreshTokensCount metric.Int64ObservableGauge
}

// newMetrics creates and registers all metric instruments.
func newMetrics(inst *Instrumentation) (*Metrics, error) {
	m := &Metrics{}

	httpMeter := inst.Meter("http")
	serverMeter := inst.Meter("server")
	securityMeter := inst.Meter("security")
	gatewayMeter := inst.Meter("gateway")
	storageMeter := inst.Meter("storage")

	var err error
	m.HTTPRequestsTotal, err = httpMeter.Int64Counter(
		"oauth.http.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http.requests.total counter: %w", err)
	}

	m.HTTPRequestDuration, err = httpMeter.Float64Histogram(
		"oauth.http.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http.request.duration histogram: %w", err)
	}

	m.AuthorizationStarted, err = serverMeter.Int64Counter(
		"oauth.authorization.started",
		metric.WithDescription("Number of authorization flows started"),
		metric.WithUnit("{flow}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization.started counter: %w", err)
	}

	m.CallbackProcessed, err = serverMeter.Int64Counter(
		"oauth.callback.processed",
		metric.WithDescription("Number of identity provider callbacks processed"),
		metric.WithUnit("{callback}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create callback.processed counter: %w", err)
	}

	m.CodeExchanged, err = serverMeter.Int64Counter(
		"oauth.code.exchanged",
		metric.WithDescription("Number of authorization codes exchanged for tokens"),
		metric.WithUnit("{exchange}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create code.exchanged counter: %w", err)
	}

	m.TokenRefreshed, err = serverMeter.Int64Counter(
		"oauth.token.refreshed",
		metric.WithDescription("Number of access tokens reissued from refresh tokens"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token.refreshed counter: %w", err)
	}

	m.ClientRegistered, err = serverMeter.Int64Counter(
		"oauth.client.registered",
		metric.WithDescription("Number of dynamically registered clients"),
		metric.WithUnit("{client}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client.registered counter: %w", err)
	}

	m.RateLimitExceeded, err = securityMeter.Int64Counter(
		"oauth.security.rate_limit.exceeded",
		metric.WithDescription("Number of requests rejected by the rate limiter"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate_limit.exceeded counter: %w", err)
	}

	m.PKCEValidationFailed, err = securityMeter.Int64Counter(
		"oauth.security.pkce.failed",
		metric.WithDescription("Number of failed PKCE verifications"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pkce.failed counter: %w", err)
	}

	m.RefreshReuseDetected, err = securityMeter.Int64Counter(
		"oauth.security.refresh_reuse.detected",
		metric.WithDescription("Number of attempts to redeem an already rotated refresh token"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh_reuse.detected counter: %w", err)
	}

	m.GatewayRequestsTotal, err = gatewayMeter.Int64Counter(
		"oauth.gateway.requests.total",
		metric.WithDescription("Total number of requests reaching the resource gateway"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway.requests.total counter: %w", err)
	}

	m.GatewayAuthFailures, err = gatewayMeter.Int64Counter(
		"oauth.gateway.auth.failures",
		metric.WithDescription("Number of gateway requests rejected at authorization"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway.auth.failures counter: %w", err)
	}

	m.StoragePendingCount, err = storageMeter.Int64ObservableGauge(
		"oauth.storage.pending.count",
		metric.WithDescription("Number of pending authorizations currently stored"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage.pending.count gauge: %w", err)
	}

	m.StorageCodesCount, err = storageMeter.Int64ObservableGauge(
		"oauth.storage.codes.count",
		metric.WithDescription("Number of authorization codes currently stored"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage.codes.count gauge: %w", err)
	}

	m.StorageClientsCount, err = storageMeter.Int64ObservableGauge(
		"oauth.storage.clients.count",
		metric.WithDescription("Number of registered clients currently stored"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage.clients.count gauge: %w", err)
	}

	m.StorageRefreshTokensCount, err = storageMeter.Int64ObservableGauge(
		"oauth.storage.refresh_tokens.count",
		metric.WithDescription("Number of live refresh tokens currently stored"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage.refresh_tokens.count gauge: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with its outcome.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, durationMs float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", statusCode),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, durationMs, attrs)
}

// RecordAuthorizationStarted records the start of an authorization flow.
func (m *Metrics) RecordAuthorizationStarted(ctx context.Context, clientID string) {
	if m == nil {
		return
	}
	m.AuthorizationStarted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("oauth.client_id", clientID),
	))
}

// RecordCallbackProcessed records a processed identity provider callback.
func (m *Metrics) RecordCallbackProcessed(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.CallbackProcessed.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("oauth.success", success),
	))
}

// RecordCodeExchanged records an authorization code exchange attempt.
func (m *Metrics) RecordCodeExchanged(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.CodeExchanged.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("oauth.success", success),
	))
}

// RecordTokenRefreshed records a refresh grant attempt.
func (m *Metrics) RecordTokenRefreshed(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.TokenRefreshed.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("oauth.success", success),
	))
}

// RecordClientRegistered records a dynamic client registration.
func (m *Metrics) RecordClientRegistered(ctx context.Context) {
	if m == nil {
		return
	}
	m.ClientRegistered.Add(ctx, 1)
}

// RecordRateLimitExceeded records a request rejected by the rate limiter.
func (m *Metrics) RecordRateLimitExceeded(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	m.RateLimitExceeded.Add(ctx, 1, metric.WithAttributes(
		attribute.String("http.route", endpoint),
	))
}

// RecordPKCEValidationFailed records a failed PKCE verification.
func (m *Metrics) RecordPKCEValidationFailed(ctx context.Context, clientID string) {
	if m == nil {
		return
	}
	m.PKCEValidationFailed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("oauth.client_id", clientID),
	))
}

// RecordRefreshReuseDetected records a redeem attempt on a rotated token.
// No client attribute: the rotated record is gone by the time reuse is
// detected, so there is no client identity to attach.
func (m *Metrics) RecordRefreshReuseDetected(ctx context.Context) {
	if m == nil {
		return
	}
	m.RefreshReuseDetected.Add(ctx, 1)
}

// RecordGatewayRequest records a request reaching the resource gateway.
func (m *Metrics) RecordGatewayRequest(ctx context.Context, method string, statusCode int) {
	if m == nil {
		return
	}
	m.GatewayRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("rpc.method", method),
		attribute.Int("http.status_code", statusCode),
	))
}

// RecordGatewayAuthFailure records a gateway request rejected at authorization.
func (m *Metrics) RecordGatewayAuthFailure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.GatewayAuthFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("oauth.failure_reason", reason),
	))
}
