package models

import (
	"encoding/json"
	"fmt"
)

// CameraStatus mirrors the status integer reported by the station.
type CameraStatus int

const (
	CameraDisabled     CameraStatus = 0
	CameraEnabled      CameraStatus = 1
	CameraDisconnected CameraStatus = 2
)

func (s CameraStatus) String() string {
	switch s {
	case CameraDisabled:
		return "disabled"
	case CameraEnabled:
		return "enabled"
	case CameraDisconnected:
		return "disconnected"
	}
	// Firmware adds status values we don't know about; keep them readable.
	return fmt.Sprintf("unknown_%d", int(s))
}

// Camera is one surveillance camera as returned by Camera.List.
type Camera struct {
	ID         int          `json:"id"`
	Name       string       `json:"name"`
	NewName    string       `json:"newName"`
	IP         string       `json:"ip"`
	Port       int          `json:"port"`
	Model      string       `json:"model"`
	Vendor     string       `json:"vendor"`
	Status     CameraStatus `json:"status"`
	Host       string       `json:"host"`
	PtzDir     int          `json:"ptzDirection"`
	Resolution string       `json:"resolution"`
	FPS        int          `json:"fps"`
	Channel    json.Number  `json:"channel"`
}

// DisplayName prefers the renamed name over the device default.
func (c Camera) DisplayName() string {
	if c.NewName != "" {
		return c.NewName
	}
	return c.Name
}

func (c Camera) IsPTZ() bool {
	return c.PtzDir != 0
}

// CameraList is the data envelope of Camera.List.
type CameraList struct {
	Cameras []Camera `json:"cameras"`
	Total   int      `json:"total"`
}
