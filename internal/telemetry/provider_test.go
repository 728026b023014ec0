package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupNoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := Setup(context.Background(), "  ", "arena-test")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, shutdown(ctx))
}

func TestSetupCreatesProviderWhenEndpointSet(t *testing.T) {
	// Non-routable address so nothing is exported.
	shutdown, err := Setup(context.Background(), "http://192.0.2.1:4318", "arena-test")
	require.NoError(t, err)

	_, span := Tracer().Start(context.Background(), "noop")
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// A cancelled context makes shutdown give up on the pending span
	// instead of waiting on the unreachable collector.
	_ = shutdown(ctx)
}
