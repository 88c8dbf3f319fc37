package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	cases := map[string]Filter{
		"":            FilterAll,
		"all":         FilterAll,
		" Active ":    FilterActive,
		"COMPLETED":   FilterCompleted,
		"completed\n": FilterCompleted,
	}
	for in, want := range cases {
		got, err := ParseFilter(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := ParseFilter("done")
	require.Error(t, err)
}

func TestFilterMatch(t *testing.T) {
	open := Task{ID: 1}
	done := Task{ID: 2, Completed: true}

	require.True(t, FilterAll.Match(open))
	require.True(t, FilterAll.Match(done))
	require.True(t, FilterActive.Match(open))
	require.False(t, FilterActive.Match(done))
	require.False(t, FilterCompleted.Match(open))
	require.True(t, FilterCompleted.Match(done))

	// unknown values show everything
	require.True(t, Filter("bogus").Match(done))
}

func TestFilterNext(t *testing.T) {
	require.Equal(t, FilterActive, FilterAll.Next())
	require.Equal(t, FilterCompleted, FilterActive.Next())
	require.Equal(t, FilterAll, FilterCompleted.Next())
	require.Equal(t, FilterAll, Filter("bogus").Next())
}
