// internal/device/device.go
package device

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"

	"github.com/bosgames/portal/internal/portalapi"
)

// idFileName holds the device ID under the portal config directory.
const idFileName = "device_id"

// Platform maps the host OS onto the backend's push-token platform
// vocabulary. Anything unrecognized registers as web.
func Platform() portalapi.Platform {
	switch runtime.GOOS {
	case "windows":
		return portalapi.PlatformWindows
	case "darwin", "ios":
		return portalapi.PlatformIOS
	case "android":
		return portalapi.PlatformAndroid
	default:
		return portalapi.PlatformWeb
	}
}

// ConfigDir returns the portal's per-user config directory.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, "bosgames-portal"), nil
}

// ID returns this installation's stable device identifier, minting and
// persisting one on first use. The same ID accompanies push-token
// registration and removal so the backend can pair them up.
func ID() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return IDAt(filepath.Join(dir, idFileName))
}

// IDAt is ID with an explicit file location.
func IDAt(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(raw))
		if _, perr := uuid.Parse(id); perr == nil {
			return id, nil
		}
		// Unparseable contents: mint a replacement below.
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read device id: %w", err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("persist device id: %w", err)
	}
	return id, nil
}
