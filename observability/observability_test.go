package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalObserver(t *testing.T) {
	o := NewLocalObserver()
	require.NotNil(t, o)

	tracer := o.Tracer("test")
	assert.NotNil(t, tracer)
}

func TestObserver_AutoInitializes(t *testing.T) {
	o := Observer()
	require.NotNil(t, o)
	assert.Same(t, oi, o)
}

func TestCreateSpan(t *testing.T) {
	o := NewLocalObserver()
	ctx, span := o.CreateSpan(context.Background(), "test.span")
	require.NotNil(t, span)
	defer span.End()

	assert.NotNil(t, ctx)
	span.AddEvent("test event")
}

func TestNewObserver_RequiresExporter(t *testing.T) {
	_, err := NewObserver(nil)
	assert.Error(t, err)
}

func TestInitResource(t *testing.T) {
	r := initResource()
	require.NotNil(t, r)
}
