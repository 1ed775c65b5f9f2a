// Package telemetry provides OpenTelemetry metric initialization for the
// conversion pipeline. Init is idempotent; when telemetry is disabled the
// global no-op provider stays active, so call sites record metrics
// unconditionally with zero overhead and no nil checks.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const (
	// defaultEndpoint is the OTLP gRPC collector address used when none is
	// configured.
	defaultEndpoint = "localhost:4317"

	// metricExportInterval is how often metrics are exported.
	metricExportInterval = 10 * time.Second
)

// Options configures telemetry initialisation.
type Options struct {
	ServiceName string // OTel service.name resource attribute (default "claude-reporter")
	Endpoint    string // OTLP gRPC collector address (default "localhost:4317")
	Enabled     bool   // When false, Init is a no-op
}

var (
	initOnce      sync.Once
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter

	filesParsed        metric.Int64Counter
	linesSkipped       metric.Int64Counter
	entriesParsed      metric.Int64Counter
	cacheHits          metric.Int64Counter
	cacheMisses        metric.Int64Counter
	sessionsBuilt      metric.Int64Counter
	summariesAttached  metric.Int64Counter
	summariesUnmatched metric.Int64Counter
	inputTokensTotal   metric.Int64Counter
	outputTokensTotal  metric.Int64Counter
	cacheCreateTokens  metric.Int64Counter
	cacheReadTokens    metric.Int64Counter
	conversionDuration metric.Float64Histogram
)

func logger() *slog.Logger {
	return slog.Default().With("component", "telemetry")
}

// parseEndpoint normalises an OTLP endpoint into a bare host:port for
// otlpmetricgrpc.WithEndpoint plus a flag for disabling TLS. Bare
// addresses and http:// URLs are insecure; https:// keeps TLS on.
func parseEndpoint(raw string) (host string, insecure bool) {
	if raw == "" {
		return defaultEndpoint, true
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw, true
	}
	return u.Host, u.Scheme != "https"
}

// Init configures the OTel metrics subsystem. Thread-safe and idempotent;
// only the first call takes effect.
func Init(ctx context.Context, opts Options) error {
	var initErr error
	initOnce.Do(func() {
		if !opts.Enabled {
			logger().Debug("telemetry disabled, using no-op provider")
			return
		}

		serviceName := opts.ServiceName
		if serviceName == "" {
			serviceName = "claude-reporter"
		}
		host, insecure := parseEndpoint(opts.Endpoint)

		res, err := resource.New(ctx,
			resource.WithFromEnv(),
			resource.WithTelemetrySDK(),
			resource.WithHost(),
			resource.WithAttributes(attribute.String("service.name", serviceName)),
		)
		if err != nil {
			initErr = fmt.Errorf("create OTel resource: %w", err)
			return
		}

		exporterOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(host)}
		if insecure {
			exporterOpts = append(exporterOpts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err := otlpmetricgrpc.New(ctx, exporterOpts...)
		if err != nil {
			initErr = fmt.Errorf("create OTLP metric exporter: %w", err)
			return
		}

		meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
				sdkmetric.WithInterval(metricExportInterval),
			)),
		)
		otel.SetMeterProvider(meterProvider)
		meter = meterProvider.Meter("claude-reporter")

		if err := initInstruments(); err != nil {
			initErr = fmt.Errorf("create metric instruments: %w", err)
			return
		}

		logger().Info("telemetry initialised", "endpoint", host, "insecure", insecure, "serviceName", serviceName)
	})
	return initErr
}

func initInstruments() error {
	var err error

	if filesParsed, err = meter.Int64Counter("claude_reporter.files.parsed",
		metric.WithDescription("Number of transcript files parsed"),
		metric.WithUnit("{file}")); err != nil {
		return err
	}
	if linesSkipped, err = meter.Int64Counter("claude_reporter.lines.skipped",
		metric.WithDescription("Number of malformed JSONL lines skipped"),
		metric.WithUnit("{line}")); err != nil {
		return err
	}
	if entriesParsed, err = meter.Int64Counter("claude_reporter.entries.parsed",
		metric.WithDescription("Number of transcript entries decoded"),
		metric.WithUnit("{entry}")); err != nil {
		return err
	}
	if cacheHits, err = meter.Int64Counter("claude_reporter.cache.hits",
		metric.WithDescription("Number of parse cache hits"),
		metric.WithUnit("{file}")); err != nil {
		return err
	}
	if cacheMisses, err = meter.Int64Counter("claude_reporter.cache.misses",
		metric.WithDescription("Number of parse cache misses"),
		metric.WithUnit("{file}")); err != nil {
		return err
	}
	if sessionsBuilt, err = meter.Int64Counter("claude_reporter.sessions.built",
		metric.WithDescription("Number of sessions reconstructed"),
		metric.WithUnit("{session}")); err != nil {
		return err
	}
	if summariesAttached, err = meter.Int64Counter("claude_reporter.summaries.attached",
		metric.WithDescription("Number of summaries attached to sessions"),
		metric.WithUnit("{summary}")); err != nil {
		return err
	}
	if summariesUnmatched, err = meter.Int64Counter("claude_reporter.summaries.unmatched",
		metric.WithDescription("Number of summaries whose leaf message was not found"),
		metric.WithUnit("{summary}")); err != nil {
		return err
	}
	if inputTokensTotal, err = meter.Int64Counter("claude_reporter.tokens.input",
		metric.WithDescription("Total input tokens across converted sessions"),
		metric.WithUnit("{token}")); err != nil {
		return err
	}
	if outputTokensTotal, err = meter.Int64Counter("claude_reporter.tokens.output",
		metric.WithDescription("Total output tokens across converted sessions"),
		metric.WithUnit("{token}")); err != nil {
		return err
	}
	if cacheCreateTokens, err = meter.Int64Counter("claude_reporter.tokens.cache_creation",
		metric.WithDescription("Total cache creation tokens across converted sessions"),
		metric.WithUnit("{token}")); err != nil {
		return err
	}
	if cacheReadTokens, err = meter.Int64Counter("claude_reporter.tokens.cache_read",
		metric.WithDescription("Total cache read tokens across converted sessions"),
		metric.WithUnit("{token}")); err != nil {
		return err
	}
	if conversionDuration, err = meter.Float64Histogram("claude_reporter.conversion.duration",
		metric.WithDescription("Conversion run duration"),
		metric.WithUnit("s")); err != nil {
		return err
	}

	return nil
}

// RecordFileParsed increments the parsed-file counter and line/entry
// counters for one file.
func RecordFileParsed(ctx context.Context, entries, skippedLines int) {
	if meterProvider == nil {
		return
	}
	filesParsed.Add(ctx, 1)
	entriesParsed.Add(ctx, int64(entries))
	linesSkipped.Add(ctx, int64(skippedLines))
}

// RecordCacheLookup records one cache hit or miss.
func RecordCacheLookup(ctx context.Context, hit bool) {
	if meterProvider == nil {
		return
	}
	if hit {
		cacheHits.Add(ctx, 1)
	} else {
		cacheMisses.Add(ctx, 1)
	}
}

// RecordConversion records the outcome of a whole conversion run.
func RecordConversion(ctx context.Context, sessions, attached, unmatched int, input, output, cacheCreation, cacheRead int64, duration time.Duration) {
	if meterProvider == nil {
		return
	}
	sessionsBuilt.Add(ctx, int64(sessions))
	summariesAttached.Add(ctx, int64(attached))
	summariesUnmatched.Add(ctx, int64(unmatched))
	inputTokensTotal.Add(ctx, input)
	outputTokensTotal.Add(ctx, output)
	cacheCreateTokens.Add(ctx, cacheCreation)
	cacheReadTokens.Add(ctx, cacheRead)
	conversionDuration.Record(ctx, duration.Seconds())
}

// Shutdown flushes pending metrics and shuts down the provider. Safe to
// call when Init was never called or telemetry is disabled. The explicit
// ForceFlush matters for short-lived CLI runs that exit well inside the
// periodic export interval.
func Shutdown(ctx context.Context) error {
	if meterProvider == nil {
		return nil
	}
	if err := meterProvider.ForceFlush(ctx); err != nil {
		logger().Warn("failed to flush meter provider", "error", err)
	}
	if err := meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown meter provider: %w", err)
	}
	return nil
}
