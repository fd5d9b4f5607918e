package permission

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadSafeFunctions(t *testing.T) {
	doc := []byte("functions:\n  - count\n  - upper\n  - my_custom_fn\n")
	fns, err := LoadSafeFunctions(doc)
	require.NoError(t, err)
	require.True(t, fns["count"])
	require.True(t, fns["my_custom_fn"])
	require.False(t, fns["sum"])
}

func TestLoadSafeFunctions_Malformed(t *testing.T) {
	_, err := LoadSafeFunctions([]byte("functions: [unterminated"))
	require.Error(t, err)
}
