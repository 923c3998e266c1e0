package services

import (
	"context"
	"net/url"

	"github.com/technosupport/svs-client/internal/api"
	"github.com/technosupport/svs-client/internal/models"
)

// GetHomeMode returns the current home-mode switch state.
func GetHomeMode(ctx context.Context, c Client) (models.HomeModeInfo, error) {
	var info models.HomeModeInfo
	err := c.Do(ctx, api.Request{
		API:     apiHomeMode,
		Method:  "GetInfo",
		Version: 1,
	}, &info)
	return info, err
}

// SwitchHomeMode turns home mode on or off.
func SwitchHomeMode(ctx context.Context, c Client, on bool) error {
	val := "false"
	if on {
		val = "true"
	}
	return c.Do(ctx, api.Request{
		API:     apiHomeMode,
		Method:  "Switch",
		Version: 1,
		Params:  url.Values{"on": {val}},
	}, nil)
}
