package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDisabledTracingIsNoop(t *testing.T) {
	require.NoError(t, InitTracing(TracingConfig{Enabled: false}))

	_, span := StartSpan(context.Background(), "noop")
	span.SetAttribute("rows", 3)
	span.Finish(nil)
	assert.NoError(t, Shutdown(context.Background()))
}

func TestSpansAreExported(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	require.NoError(t, InitTracingWithExporter(TracingConfig{
		ServiceName:  "nebula-ml-test",
		SamplingRate: 1.0,
	}, exporter))
	t.Cleanup(func() { _ = Shutdown(context.Background()) })

	_, span := StartSpan(context.Background(), "train")
	span.SetAttribute("model", "m1")
	span.SetAttribute("rows", 100)
	span.Finish(nil)

	_, failed := StartSpan(context.Background(), "predict")
	failed.Finish(errors.New("model not trained"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "train", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)

	var sawModel bool
	for _, attr := range spans[0].Attributes {
		if string(attr.Key) == "model" && attr.Value.AsString() == "m1" {
			sawModel = true
		}
	}
	assert.True(t, sawModel)

	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Equal(t, "model not trained", spans[1].Status.Description)
}

func TestStdoutExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitTracing(TracingConfig{
		Enabled:      true,
		ServiceName:  "nebula-ml-test",
		SamplingRate: 1.0,
		Writer:       &buf,
	}))

	_, span := StartSpan(context.Background(), "list-models")
	span.End()

	require.NoError(t, Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "list-models")
}
