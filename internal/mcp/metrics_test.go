package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// collectSums flattens every int64 sum in rm into name -> total, and
// name/attribute -> value for the single attribute each counter carries.
func collectSums(rm metricdata.ResourceMetrics) (map[string]int64, map[string]int64) {
	totals := make(map[string]int64)
	byAttr := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
				iter := dp.Attributes.Iter()
				for iter.Next() {
					kv := iter.Attribute()
					byAttr[m.Name+"/"+string(kv.Key)+"="+kv.Value.Emit()] += dp.Value
				}
			}
		}
	}
	return totals, byAttr
}

func TestMetrics_RecordedThroughInjectedProvider(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	server := newTestServer(fixedSource(0.5), WithMeterProvider(provider))
	ctx := context.Background()

	for _, line := range []string{
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":2,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"analyzeKeywords","arguments":{"keywords":["film cameras","darkroom tips"]}}}`,
		`not json`,
	} {
		require.NotNil(t, server.HandleMessage(ctx, []byte(line)))
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	totals, byAttr := collectSums(rm)

	assert.Equal(t, int64(3), totals["keyscout.rpc.requests"])
	assert.Equal(t, int64(1), byAttr["keyscout.rpc.requests/method=tools/call"])
	assert.Equal(t, int64(2), totals["keyscout.rpc.errors"])
	assert.Equal(t, int64(1), byAttr["keyscout.rpc.errors/code="+attribute.IntValue(CodeMethodNotFound).Emit()])
	assert.Equal(t, int64(1), byAttr["keyscout.rpc.errors/code="+attribute.IntValue(CodeParseError).Emit()])
	assert.Equal(t, int64(2), totals["keyscout.keywords.analyzed"])
}

func TestNewMetrics_NilProviderUsesGlobal(t *testing.T) {
	m := newMetrics(nil)
	require.NotNil(t, m)
	assert.NotPanics(t, func() {
		m.recordRequest(context.Background(), "ping")
	})
}
