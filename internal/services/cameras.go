package services

import (
	"context"
	"fmt"
	"net/url"

	"github.com/technosupport/svs-client/internal/api"
	"github.com/technosupport/svs-client/internal/models"
)

// ListCameras returns all cameras with stream and PTZ detail.
func ListCameras(ctx context.Context, c Client) ([]models.Camera, error) {
	var data models.CameraList
	err := c.Do(ctx, api.Request{
		API:     apiCamera,
		Method:  "List",
		Version: 9,
		Params: url.Values{
			"basic":      {"true"},
			"streamInfo": {"true"},
			"ptz":        {"true"},
		},
	}, &data)
	if err != nil {
		return nil, err
	}
	return data.Cameras, nil
}

// GetCameraInfo returns detail for one camera.
func GetCameraInfo(ctx context.Context, c Client, cameraID int) (models.Camera, error) {
	var data models.CameraList
	err := c.Do(ctx, api.Request{
		API:     apiCamera,
		Method:  "GetInfo",
		Version: 9,
		Params: url.Values{
			"cameraIds": {fmt.Sprint(cameraID)},
			"basic":     {"true"},
			"ptz":       {"true"},
		},
	}, &data)
	if err != nil {
		return models.Camera{}, err
	}
	if len(data.Cameras) == 0 {
		return models.Camera{}, fmt.Errorf("camera %d not found", cameraID)
	}
	return data.Cameras[0], nil
}

// EnableCamera enables a camera.
func EnableCamera(ctx context.Context, c Client, cameraID int) error {
	return c.Do(ctx, api.Request{
		API:     apiCamera,
		Method:  "Enable",
		Version: 9,
		Params:  url.Values{"cameraIds": {fmt.Sprint(cameraID)}},
	}, nil)
}

// DisableCamera disables a camera.
func DisableCamera(ctx context.Context, c Client, cameraID int) error {
	return c.Do(ctx, api.Request{
		API:     apiCamera,
		Method:  "Disable",
		Version: 9,
		Params:  url.Values{"cameraIds": {fmt.Sprint(cameraID)}},
	}, nil)
}

// TakeSnapshot captures a live snapshot and returns the image bytes.
func TakeSnapshot(ctx context.Context, c Client, cameraID int) ([]byte, error) {
	return c.Download(ctx, api.Request{
		API:     apiCamera,
		Method:  "GetSnapshot",
		Version: 9,
		Params:  url.Values{"cameraId": {fmt.Sprint(cameraID)}},
	})
}
