// Package models holds the wire models of the Surveillance Station
// WebAPI. Field tags follow the station's JSON exactly; anything the
// client derives lives in methods, not extra fields.
package models

// ApiInfo describes one discovered API endpoint (SYNO.API.Info).
type ApiInfo struct {
	Path       string `json:"path"`
	MinVersion int    `json:"minVersion"`
	MaxVersion int    `json:"maxVersion"`
}

// Recording is one finished recording clip.
type Recording struct {
	ID             int    `json:"id"`
	CameraID       int    `json:"cameraId"`
	CameraName     string `json:"cameraName"`
	StartTime      int64  `json:"startTime"`
	StopTime       int64  `json:"stopTime"`
	FileSize       int64  `json:"fileSize"`
	EventType      int    `json:"type"`
	MountID        int    `json:"mountId"`
	ArchID         int    `json:"archId"`
	DetectionLabel int    `json:"defaultLabel"`
}

// RecordingList is the data envelope of Recording.List. The station
// historically returned the clips under "events".
type RecordingList struct {
	Events     []Recording `json:"events"`
	Recordings []Recording `json:"recordings"`
	Total      int         `json:"total"`
}

// Clips returns whichever list field the server populated.
func (l RecordingList) Clips() []Recording {
	if len(l.Events) > 0 {
		return l.Events
	}
	return l.Recordings
}

// Snapshot is one stored snapshot.
type Snapshot struct {
	ID         int    `json:"id"`
	CameraID   int    `json:"cameraId"`
	CameraName string `json:"cameraName"`
	CreateTime int64  `json:"createTime"`
	FileSize   int64  `json:"fileSize"`
}

type SnapshotList struct {
	Data     []Snapshot `json:"data"`
	Snapshot []Snapshot `json:"snapshot"`
	Total    int        `json:"total"`
}

func (l SnapshotList) Items() []Snapshot {
	if len(l.Data) > 0 {
		return l.Data
	}
	return l.Snapshot
}

// Event is a surveillance event (motion, alarm, manual trigger...).
type Event struct {
	ID             int    `json:"id"`
	CameraID       int    `json:"cameraId"`
	CameraName     string `json:"cameraName"`
	Mode           int    `json:"mode"`
	StartTime      int64  `json:"startTime"`
	StopTime       int64  `json:"stopTime"`
	DetectionLabel int    `json:"defaultLabel"`
}

type EventList struct {
	Events []Event `json:"events"`
	Total  int     `json:"total"`
}

// Alert is one notification-center alert.
type Alert struct {
	ID         int    `json:"id"`
	CameraID   int    `json:"cameraId"`
	CameraName string `json:"cameraName"`
	AlertType  int    `json:"alertType"`
	Timestamp  int64  `json:"timestamp"`
	IsRead     bool   `json:"isRead"`
}

type AlertList struct {
	Alerts []Alert `json:"alerts"`
	Total  int     `json:"total"`
}

// HomeModeInfo is the current home-mode switch state.
type HomeModeInfo struct {
	On bool `json:"on"`
}

// PtzPreset is a saved PTZ position.
type PtzPreset struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// PtzPatrol is a saved PTZ patrol route.
type PtzPatrol struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// License is one installed camera license key.
type License struct {
	ID          int    `json:"id"`
	Key         string `json:"key"`
	Quota       int    `json:"quota"`
	ExpiredDate int64  `json:"expiredDate"`
	IsExpired   bool   `json:"isExpired"`
	IsMigrated  bool   `json:"isMigrated"`
}

// Perpetual reports whether the license never expires.
func (l License) Perpetual() bool { return l.ExpiredDate == 0 }

// LicenseInfo is the data envelope of License.Load.
type LicenseInfo struct {
	Licenses []License `json:"license"`
	KeyTotal int       `json:"keyTotal"`
	KeyUsed  int       `json:"keyUsed"`
	KeyMax   int       `json:"keyMax"`
}

// TimeLapseTask is one configured time lapse task.
type TimeLapseTask struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// TimeLapseRecording is one finished or in-progress time lapse clip.
type TimeLapseRecording struct {
	ID         int    `json:"id"`
	CameraID   int    `json:"cameraId"`
	CameraName string `json:"cameraName"`
	StartTime  int64  `json:"startTime"`
	StopTime   int64  `json:"stopTime"`
	Recording  bool   `json:"recording"`
	IsLocked   bool   `json:"isLocked"`
	FileSize   int64  `json:"fileSize"`
	MountID    int    `json:"mountId"`
	ArchID     int    `json:"archId"`
}

// AsRecording converts a time lapse clip into a Recording so the
// playback path can treat both alike.
func (r TimeLapseRecording) AsRecording() Recording {
	return Recording{
		ID:         r.ID,
		CameraID:   r.CameraID,
		CameraName: r.CameraName,
		StartTime:  r.StartTime,
		StopTime:   r.StopTime,
		EventType:  eventTypeTimeLapse,
		MountID:    r.MountID,
		ArchID:     r.ArchID,
	}
}

// eventTypeTimeLapse is the station's recEvtType for time lapse clips.
const eventTypeTimeLapse = 3

// LiveViewPath carries the per-protocol playback paths for one camera
// as returned by Camera.GetLiveViewPath.
type LiveViewPath struct {
	ID               int    `json:"id"`
	RtspPath         string `json:"rtspPath"`
	RtspOverHttpPath string `json:"rtspOverHttpPath"`
	MjpegHttpPath    string `json:"mjpegHttpPath"`
	MulticastPath    string `json:"multicstPath"`
}
