package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	logger, err := New("info", "json", "searchd")
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Info("logger works")
}

func TestNewConsoleFormat(t *testing.T) {
	logger, err := New("debug", "console", "searchd")
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New("verbose", "json", "searchd")
	assert.Error(t, err)
}

func TestNewInvalidFormat(t *testing.T) {
	_, err := New("info", "xml", "searchd")
	assert.Error(t, err)
}
