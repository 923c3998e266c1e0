// Package services wraps the station's WebAPI surface in typed calls.
// Every function takes the session as an explicit handle; there is no
// ambient connection state anywhere in the client.
package services

import (
	"context"
	"net/url"

	"github.com/technosupport/svs-client/internal/api"
)

// Client is the slice of api.Session the services need. Tests swap in
// a mock; production passes *api.Session.
type Client interface {
	Do(ctx context.Context, req api.Request, out any) error
	Download(ctx context.Context, req api.Request) ([]byte, error)
	StreamURL(path string, params url.Values) string
	BaseURL() string
}

const (
	apiCamera       = "SYNO.SurveillanceStation.Camera"
	apiPTZ          = "SYNO.SurveillanceStation.PTZ"
	apiHomeMode     = "SYNO.SurveillanceStation.HomeMode"
	apiRecording    = "SYNO.SurveillanceStation.Recording"
	apiSnapshot     = "SYNO.SurveillanceStation.SnapShot"
	apiEvent        = "SYNO.SurveillanceStation.Event"
	apiLicense      = "SYNO.SurveillanceStation.License"
	apiInfo         = "SYNO.SurveillanceStation.Info"
	apiTimeLapse    = "SYNO.SurveillanceStation.TimeLapse"
	apiTimeLapseRec = "SYNO.SurveillanceStation.TimeLapse.Recording"
)
