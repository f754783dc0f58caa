package observability

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

var resource *sdkresource.Resource
var initResourcesOnce sync.Once
var initObserverOnce sync.Once

// Wrappers for OpenTelemetry trace package
var WithAttributes = trace.WithAttributes
var SpanFromContext = trace.SpanFromContext

// https://github.com/wavefrontHQ/opentelemetry-examples/blob/master/go-example/manual-instrumentation/main.go
// https://github.com/wavefrontHQ/opentelemetry-examples/blob/master/go-example/manual-instrumentation/README.md
// https://opentelemetry.io/docs/demo/services/checkout/

type ObserverInterface interface {
	Shutdown(ctx context.Context) error
	Tracer(name string) trace.Tracer
	CreateSpan(ctx context.Context, name string) (context.Context, trace.Span)
}

type observer struct {
	tp *sdktrace.TracerProvider
}

var oi *observer

// NewLocalObserver returns the process-wide observer, building it with a
// stdout span exporter if none exists yet. Safe to call repeatedly; the
// tracer provider is built once, and if NewObserver built it first, that
// observer is returned instead.
func NewLocalObserver() ObserverInterface {
	initObserverOnce.Do(func() {
		tp, _ := initStdoutProvider()
		oi = &observer{tp: tp}
	})

	return oi
}

// NewObserver builds an observer around an arbitrary span exporter, so a
// caller embedding this package in a larger system can route spans
// somewhere other than stdout without this package depending on any
// particular wire protocol. The observer is process-wide and built once: if
// one already exists (from an earlier NewObserver, NewLocalObserver or
// Observer call), exporter is ignored and the existing observer is returned.
func NewObserver(exporter sdktrace.SpanExporter) (ObserverInterface, error) {
	if exporter == nil {
		return nil, fmt.Errorf("observability: exporter is required")
	}

	var tp *sdktrace.TracerProvider
	initObserverOnce.Do(func() {
		tp = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(initResource()),
		)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
		oi = &observer{tp: tp}
	})

	return oi, nil
}

// Observer returns the observer instance.
// If no observer has been initialized, it will create a local observer with stdout output.
func Observer() ObserverInterface {
	if oi == nil {
		// Auto-initialize with local observer if not already initialized
		// This provides a safe default instead of panicking
		return NewLocalObserver()
	}

	return oi
}

// Shutdown stops the observer.
func (o *observer) Shutdown(ctx context.Context) error {
	return o.tp.Shutdown(ctx)
}

// Tracer returns the tracer.
func (o *observer) Tracer(name string) trace.Tracer {
	return o.tp.Tracer(name)
}

// CreateSpan starts a new span under the calling package's tracer.
func (o *observer) CreateSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	tracer := o.tp.Tracer("github.com/naren-m/astroevents")
	return tracer.Start(ctx, name)
}

// initResource builds the shared OpenTelemetry resource once and returns it.
func initResource() *sdkresource.Resource {
	initResourcesOnce.Do(func() {
		extraResources, _ := sdkresource.New(
			context.Background(),
			sdkresource.WithOS(),
			sdkresource.WithProcess(),
			sdkresource.WithHost(),
			sdkresource.WithAttributes(
				attribute.String("application", "astroevents"),
				attribute.String("service.name", "astroevents"),
				attribute.String("service.namespace", "observability"),
				attribute.String("application.version", "0.0.1"),
			),
		)
		resource, _ = sdkresource.Merge(
			sdkresource.Default(),
			extraResources,
		)
	})
	return resource
}

func initStdoutProvider() (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		panic(fmt.Sprintf("failed to initialize stdouttrace export pipeline: %v", err))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(initResource()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp, nil
}
