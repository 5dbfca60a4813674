package notify_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/infrastructure/notify"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

func TestLogNotifier_PrintsTokenToWriter(t *testing.T) {
	var out bytes.Buffer
	n := notify.NewLogNotifierTo(&out, logger.NewNoopLogger())

	expires := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	err := n.SendPasswordReset(context.Background(), "mara@crag.example", "eyJhbGciOiJSUzI1NiJ9.reset.sig", expires)
	require.NoError(t, err)

	delivery := out.String()
	assert.Contains(t, delivery, "mara@crag.example")
	assert.Contains(t, delivery, "eyJhbGciOiJSUzI1NiJ9.reset.sig", "the printed token must be usable as-is")
	assert.Contains(t, delivery, "2025-06-01T12:00:00Z")
}

func TestLogNotifier_FailedWriteSurfaces(t *testing.T) {
	n := notify.NewLogNotifierTo(failingWriter{}, logger.NewNoopLogger())

	err := n.SendPasswordReset(context.Background(), "mara@crag.example", "tok", time.Now().Add(time.Hour))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reset delivery failed")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, assert.AnError
}
