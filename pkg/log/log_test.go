package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/modelselect/pkg/errors"
)

func TestTestLoggerLevels(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", OperationKey, OperationFit)
	testLogger.Warn("warning message")
	testLogger.Error("error message", fmt.Errorf("test error"), ModelNameKey, "Lasso")

	require.NotEmpty(t, buffer.String())
	assert.True(t, testLogger.ContainsMessage("debug message"))
	assert.True(t, testLogger.ContainsMessage("warning message"))
	assert.True(t, testLogger.ContainsField("key1", "value1"))
	assert.True(t, testLogger.ContainsField("number", 42.0))
	assert.True(t, testLogger.ContainsField("error", "test error"))
	assert.True(t, testLogger.ContainsField(ModelNameKey, "Lasso"))
}

func TestTestLoggerFiltersByLevel(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelWarn)

	testLogger.Debug("hidden debug")
	testLogger.Info("hidden info")
	testLogger.Warn("visible warn")

	entries, err := testLogger.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "visible warn", entries[0]["message"])
	assert.False(t, testLogger.Enabled(context.Background(), LevelInfo))
	assert.True(t, testLogger.Enabled(context.Background(), LevelError))
}

func TestTestLoggerWith(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)

	child := testLogger.With(RunIDKey, "run-1", ComponentKey, "selection")
	child.Info("contextual message", StageKey, "Comparing")

	assert.True(t, testLogger.ContainsField(RunIDKey, "run-1"))
	assert.True(t, testLogger.ContainsField(StageKey, "Comparing"))

	testLogger.Clear()
	assert.False(t, testLogger.ContainsMessage("contextual message"))
}

func TestZerologLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProvider(&buf, "json", LevelDebug)
	logger := p.GetLoggerWithName("selection").With(RunIDKey, "abc")

	logger.Info("Candidate evaluated", ModelNameKey, "KMeans", KKey, 4, "dangling")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "Candidate evaluated", entry["message"])
	assert.Equal(t, "selection", entry[ComponentKey])
	assert.Equal(t, "abc", entry[RunIDKey])
	assert.Equal(t, "KMeans", entry[ModelNameKey])
	assert.Equal(t, 4.0, entry[KKey])
	assert.Contains(t, entry, "dangling")
}

func TestZerologLoggerErrorField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologProvider(&buf, "json", LevelInfo).GetLogger()

	logger.Error("training failed", errors.NewTrainerError("Ridge", "train", errors.ErrSingularMatrix), ModelNameKey, "Ridge")

	out := buf.String()
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, "trainer Ridge failed during train")
	assert.Contains(t, out, `"model.name":"Ridge"`)
}

func TestZerologProviderSetLevel(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProvider(&buf, "json", LevelInfo)

	p.GetLogger().Debug("suppressed")
	assert.Empty(t, buf.String())
	assert.False(t, p.GetLogger().Enabled(context.Background(), LevelDebug))

	p.SetLevel(LevelDebug)
	p.GetLogger().Debug("emitted")
	assert.Contains(t, buf.String(), "emitted")
}

func TestSetupLoggerRoutesWarnings(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SetupLogger(&buf, "json", "warn"))
	defer func() {
		errors.SetZerologWarnFunc(nil)
		SetProvider(NewZerologProvider(&bytes.Buffer{}, "json", LevelInfo))
	}()

	errors.Warn(errors.NewNonMonotonicCurveWarning("GaussianMixture", 6, 10, 11))

	out := buf.String()
	assert.Contains(t, out, "NonMonotonicCurveWarning")
	assert.True(t, strings.Contains(out, `"k":6`))
}

func TestToLogLevel(t *testing.T) {
	lvl, err := ToLogLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, LevelDebug, lvl)

	_, err = ToLogLevel("verbose")
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr))
}
