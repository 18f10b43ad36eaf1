package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/glintcare/glintcare/testing"
)

func TestInTestModeFollowsEnv(t *testing.T) {
	// The shared testing package sets GLINT_TEST_MODE=1 for every test binary.
	RefreshTestMode()
	require.True(t, InTestMode())

	t.Setenv("GLINT_TEST_MODE", "")
	RefreshTestMode()
	require.False(t, InTestMode())

	t.Setenv("GLINT_TEST_MODE", "1")
	RefreshTestMode()
	require.True(t, InTestMode())
}
