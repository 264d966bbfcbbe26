package logger

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"jlpt-listening/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_AnnotatesCallerAndError(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	Error(errors.New("boom"), "%v: save failed", config.ModuleHistory)

	out := buf.String()
	assert.Contains(t, out, "logger_test.go:")
	assert.Contains(t, out, "history: save failed")
	assert.Contains(t, out, "boom")
}

func TestInit_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		Init(config.Info)
	})

	Init(config.Warn)
	Info("hidden")
	assert.Empty(t, buf.String())

	Warn("shown")
	assert.Contains(t, buf.String(), "shown")

	require.Error(t, SetLevel("loud"))
}
