package util

import (
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserHomeReturnsExistingDirectory(t *testing.T) {
	home := UserHome()
	require.NotEmpty(t, home)

	info, err := os.Stat(home)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestUserHomeFallsBackToWorkingDirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("home discovery resolves through USERPROFILE on windows")
	}
	t.Setenv("HOME", "")
	t.Setenv("USERPROFILE", "")

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, wd, UserHome())
}
