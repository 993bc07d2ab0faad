package tracing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsSensitiveKeys(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/v1/documents"),
		attribute.String("guest.passport_no", "X123"),
		attribute.String("http.authorization", "Bearer abc"),
	)
	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeErrorFlattens(t *testing.T) {
	base := errors.New("boom")
	wrapped := fmt.Errorf("finalize: %w", base)

	safe := SafeError(wrapped)
	assert.EqualError(t, safe, "finalize: boom")
	assert.False(t, errors.Is(safe, base))
	assert.Nil(t, SafeError(nil))
}
