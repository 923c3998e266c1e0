package services

import (
	"context"
	"fmt"
	"net/url"

	"github.com/technosupport/svs-client/internal/api"
	"github.com/technosupport/svs-client/internal/models"
)

// PtzMove nudges a PTZ camera. Directions are the station's verbs:
// upStart, upStop, downStart, downStop, leftStart, leftStop,
// rightStart, rightStop, home.
func PtzMove(ctx context.Context, c Client, cameraID int, direction string) error {
	return c.Do(ctx, api.Request{
		API:     apiPTZ,
		Method:  "Move",
		Version: 2,
		Params: url.Values{
			"cameraId":  {fmt.Sprint(cameraID)},
			"direction": {direction},
		},
	}, nil)
}

// PtzZoom controls zoom: inStart, inStop, outStart, outStop.
func PtzZoom(ctx context.Context, c Client, cameraID int, control string) error {
	return c.Do(ctx, api.Request{
		API:     apiPTZ,
		Method:  "Zoom",
		Version: 2,
		Params: url.Values{
			"cameraId": {fmt.Sprint(cameraID)},
			"control":  {control},
		},
	}, nil)
}

func ListPtzPresets(ctx context.Context, c Client, cameraID int) ([]models.PtzPreset, error) {
	var data struct {
		Presets []models.PtzPreset `json:"presets"`
	}
	err := c.Do(ctx, api.Request{
		API:     apiPTZ,
		Method:  "ListPreset",
		Version: 2,
		Params:  url.Values{"cameraId": {fmt.Sprint(cameraID)}},
	}, &data)
	if err != nil {
		return nil, err
	}
	return data.Presets, nil
}

func GoPtzPreset(ctx context.Context, c Client, cameraID, presetID int) error {
	return c.Do(ctx, api.Request{
		API:     apiPTZ,
		Method:  "GoPreset",
		Version: 2,
		Params: url.Values{
			"cameraId": {fmt.Sprint(cameraID)},
			"presetId": {fmt.Sprint(presetID)},
		},
	}, nil)
}

func ListPtzPatrols(ctx context.Context, c Client, cameraID int) ([]models.PtzPatrol, error) {
	var data struct {
		Patrols []models.PtzPatrol `json:"patrols"`
	}
	err := c.Do(ctx, api.Request{
		API:     apiPTZ,
		Method:  "ListPatrol",
		Version: 2,
		Params:  url.Values{"cameraId": {fmt.Sprint(cameraID)}},
	}, &data)
	if err != nil {
		return nil, err
	}
	return data.Patrols, nil
}

func RunPtzPatrol(ctx context.Context, c Client, cameraID, patrolID int) error {
	return c.Do(ctx, api.Request{
		API:     apiPTZ,
		Method:  "RunPatrol",
		Version: 2,
		Params: url.Values{
			"cameraId": {fmt.Sprint(cameraID)},
			"patrolId": {fmt.Sprint(patrolID)},
		},
	}, nil)
}
