package logging

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	var buf bytes.Buffer

	l, err := New(&buf, "")
	require.NoError(t, err)
	require.Equal(t, log.WarnLevel, l.GetLevel())

	l, err = New(&buf, "DEBUG")
	require.NoError(t, err)
	require.Equal(t, log.DebugLevel, l.GetLevel())

	l.Debug("saved", "count", 2)
	require.Contains(t, buf.String(), "saved")
	require.Contains(t, buf.String(), "tasks")

	_, err = New(&buf, "loud")
	require.Error(t, err)
}
