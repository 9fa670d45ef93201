// internal/device/device_test.go
package device

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDAtMintsAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "device_id")

	first, err := IDAt(path)
	require.NoError(t, err)
	_, err = uuid.Parse(first)
	require.NoError(t, err)

	second, err := IDAt(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestIDAtReplacesGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device_id")
	require.NoError(t, os.WriteFile(path, []byte("not-a-uuid\n"), 0o600))

	id, err := IDAt(path)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, "not-a-uuid", id)
}

func TestPlatformIsKnown(t *testing.T) {
	p := Platform()
	assert.Contains(t, []string{"ios", "android", "web", "windows"}, string(p))
}
