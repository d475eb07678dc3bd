package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerV2_WritesComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	Configure("debug", "json")
	t.Cleanup(func() { Configure("info", "json") })

	logger := NewLoggerV2("order-service")
	ctx := ContextWithRequestID(context.Background(), "req-42")

	logger.WithContext(ctx).Info("Order fetched", Fields{"order_id": "ord_1"})

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "order-service", line["component"])
	assert.Equal(t, "req-42", line["request_id"])
	assert.Equal(t, "ord_1", line["order_id"])
	assert.Equal(t, "Order fetched", line["msg"])
}

func TestRequestIDFromContext_Missing(t *testing.T) {
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
}
