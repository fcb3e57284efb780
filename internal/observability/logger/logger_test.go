package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFrom_FallsBackToSingleton(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Replace(zap.New(core))
	t.Cleanup(func() { Replace(nil) })

	From(context.Background()).Info("hola")
	require.Equal(t, 1, logs.Len())
}

func TestFrom_UsesContextLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := ToContext(context.Background(), zap.New(core).With(RequestID("rid-1")))

	From(ctx).Info("scoped")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "rid-1", logs.All()[0].ContextMap()["request_id"])
}

func TestSecret_NeverLogsValue(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	zap.New(core).Info("x", Secret("access_token", "tok-abc"))

	fields := logs.All()[0].ContextMap()
	assert.NotContains(t, fields, "access_token")
	fp, _ := fields["access_token_fp"].(string)
	assert.Len(t, fp, 8)
	assert.NotEqual(t, "tok-abc", fp)
}

func TestNew_Envs(t *testing.T) {
	for _, env := range []string{"dev", "prod", ""} {
		l, err := New(Config{Env: env, Level: "debug", ServiceName: "siteconnect"})
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
	}
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARNING"))
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "j…@e…com", maskEmail("John@Example.com"))
	assert.Equal(t, "a@e…org", maskEmail("a@example.org"))
	assert.Equal(t, "***", maskEmail("abc"))
	assert.Equal(t, "a…z", maskEmail("abcxyz"))
	assert.Equal(t, "", maskEmail(""))
}
