package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tomyan/foxcap/internal/metrics"
)

// setupTelemetry builds the logger, metrics collector and, when requested,
// the tracer provider and metrics endpoint. The returned function flushes
// and stops them.
func setupTelemetry(cfg *Config) (func(), error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(cfg.Stderr), level)
	cfg.logger = zap.New(core).Named("foxcap")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	cfg.metrics = metrics.NewCollector("foxcap", reg, cfg.logger)

	var stops []func()
	shutdown := func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
		cfg.logger.Sync()
	}

	if cfg.Trace {
		exporter, err := stdouttrace.New(
			stdouttrace.WithWriter(cfg.Stderr),
			stdouttrace.WithPrettyPrint(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		provider := sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(exporter),
			sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", "foxcap"))),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		)
		cfg.tracer = provider.Tracer("github.com/tomyan/foxcap/cmd/foxcap")
		stops = append(stops, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			provider.Shutdown(ctx)
		})
	}

	if cfg.MetricsAddr != "" {
		ln, err := net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			shutdown()
			return nil, fmt.Errorf("metrics listener: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				cfg.logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		cfg.logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
		stops = append(stops, func() { srv.Close() })
	}

	return shutdown, nil
}
