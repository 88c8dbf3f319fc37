package filekv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetMissingFile(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "nested", "data.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	v, ok, err := s.Get("tasks")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, v)
}

func TestSetGetAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")

	a, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, a.Set("tasks", `[{"id":1}]`))
	require.NoError(t, a.Set("other", "x"))
	require.NoError(t, a.Set("tasks", `[]`))
	require.NoError(t, a.Close())

	b, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	v, ok, err := b.Get("tasks")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `[]`, v)

	v, ok, err = b.Get("other")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "x", v)

	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err), "temp file left behind")
}

func TestCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, _, err = s.Get("tasks")
	require.Error(t, err)
	require.Error(t, s.Set("tasks", "[]"))

	// the corrupt file is left untouched
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "{not json", string(b))
}

func TestEmptyFileReadsAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, ok, err := s.Get("tasks")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOpenEmptyPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}
