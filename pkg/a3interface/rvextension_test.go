package a3interface

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDispatchResponse(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		result   any
		err      error
		expected string
	}{
		{
			name:     "version pair",
			command:  ":VERSION:",
			result:   []string{"0.1.0", "2026-10-01"},
			expected: `["ok", ["0.1.0","2026-10-01"]]`,
		},
		{
			name:     "simple string",
			command:  ":COMMANDER:INIT:",
			result:   "ok",
			expected: `["ok", "ok"]`,
		},
		{
			name:     "path string is not escaped",
			command:  ":GETDIR:ARMA:",
			result:   `C:\Program Files\Arma 3`,
			expected: `["ok", "C:\Program Files\Arma 3"]`,
		},
		{
			name:     "nil result",
			command:  ":COMMANDER:TICK:",
			expected: `["ok"]`,
		},
		{
			name:     "error",
			command:  ":LOG:",
			err:      errors.New("no handler registered"),
			expected: `["error", "no handler registered"]`,
		},
		{
			name:     "error quotes are doubled",
			command:  ":COMMANDER:INIT:",
			err:      errors.New(`invalid commander config: side "CIV"`),
			expected: `["error", "invalid commander config: side ""CIV"""]`,
		},
		{
			name:     "int array",
			command:  ":DATA:",
			result:   []int{1, 2, 3},
			expected: `["ok", [1,2,3]]`,
		},
		{
			name:     "map",
			command:  ":COMMANDER:STATE:",
			result:   map[string]int{"tick": 42},
			expected: `["ok", {"tick":42}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatDispatchResponse(tt.command, tt.result, tt.err))
		})
	}
}

func TestResponseFormatConsistency(t *testing.T) {
	for _, r := range []any{"simple string", []string{"a", "b"}, nil, 42} {
		got := formatDispatchResponse(":TEST:", r, nil)
		assert.True(t, strings.HasPrefix(got, `["ok"`), got)
	}
	assert.Equal(t, `["error", "test error"]`, formatDispatchResponse(":TEST:", nil, errors.New("test error")))
}

func TestCallbackPayload(t *testing.T) {
	got, err := callbackPayload(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = callbackPayload([]string{`{"squadId":1}`})
	require.NoError(t, err)
	assert.Equal(t, `{"squadId":1}`, got)

	got, err = callbackPayload([]string{"WEST", "3"})
	require.NoError(t, err)
	assert.Equal(t, `["WEST","3"]`, got)
}

func TestWriteArmaCallback_NotRegistered(t *testing.T) {
	assert.ErrorIs(t, WriteArmaCallback("aiai_commander", ":ORDER:", "{}"), ErrNoCallback)
}

func TestDispatch_NoDispatcher(t *testing.T) {
	prev := Config.dispatcher
	Config.dispatcher = nil
	defer func() { Config.dispatcher = prev }()

	got := dispatch(":COMMANDER:TICK:", nil)
	assert.True(t, strings.HasPrefix(got, `["error"`), got)
}

func TestAddonFolder(t *testing.T) {
	root := filepath.Join("games", "arma3")
	assert.Equal(t, filepath.Join(root, "@aiai"), AddonFolder(root, filepath.Join(root, "aiai_commander_x64.dll"), "aiai"))
	assert.Equal(t, filepath.Join(root, "@custom"), AddonFolder(root, filepath.Join(root, "@custom", "aiai_commander_x64.dll"), "aiai"))
	assert.Equal(t, filepath.Join(root, "@aiai"), AddonFolder(root, "", "aiai"))

	dir, err := GetArmaDir()
	assert.NoError(t, err)
	assert.NotEmpty(t, dir)
}

func TestCleanModulePath(t *testing.T) {
	assert.Empty(t, cleanModulePath(""))

	abs := filepath.Join(t.TempDir(), "@aiai", "aiai_commander_x64.so")
	assert.Equal(t, abs, cleanModulePath(filepath.Join(filepath.Dir(abs), ".", "..", "@aiai", "aiai_commander_x64.so")))

	rel := cleanModulePath(filepath.Join("@aiai", "aiai_commander_x64.so"))
	assert.True(t, filepath.IsAbs(rel))
	assert.True(t, strings.HasSuffix(rel, filepath.Join("@aiai", "aiai_commander_x64.so")))
}

func TestGetModulePath_ResolvesAddonFolder(t *testing.T) {
	// the test binary is not a loaded module; whatever the loader reports must still
	// yield a usable folder
	folder := AddonFolder("/arma3", GetModulePath(), "aiai")
	require.NotEmpty(t, folder)
}
