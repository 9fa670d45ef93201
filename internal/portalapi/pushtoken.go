// internal/portalapi/pushtoken.go
package portalapi

import (
	"context"
	"net/http"
)

// Platform identifies the push-delivery target class for a device.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
	PlatformWindows Platform = "windows"
)

// PushToken binds a transport-issued push token to a device.
type PushToken struct {
	Token    string   `json:"token"`
	DeviceID string   `json:"deviceId"`
	Platform Platform `json:"platform,omitempty"`
}

// SetPushToken registers (or re-registers) a device's push token.
func (c *Client) SetPushToken(ctx context.Context, pt PushToken, token string) error {
	return c.doJSON(ctx, http.MethodPost, "/push-token", token, pt, nil)
}

// RemovePushToken unregisters a device's push token.
func (c *Client) RemovePushToken(ctx context.Context, pushToken, deviceID, token string) error {
	body := map[string]string{"token": pushToken, "deviceId": deviceID}
	return c.doJSON(ctx, http.MethodDelete, "/push-token", token, body, nil)
}
