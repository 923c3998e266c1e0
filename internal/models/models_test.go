package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCameraStatusString(t *testing.T) {
	assert.Equal(t, "disabled", CameraDisabled.String())
	assert.Equal(t, "enabled", CameraEnabled.String())
	assert.Equal(t, "disconnected", CameraDisconnected.String())
	assert.Equal(t, "unknown_17", CameraStatus(17).String())
}

func TestCameraDisplayName(t *testing.T) {
	assert.Equal(t, "Front Door", Camera{Name: "IPC-1234", NewName: "Front Door"}.DisplayName())
	assert.Equal(t, "IPC-1234", Camera{Name: "IPC-1234"}.DisplayName())
}

func TestCameraChannelToleratesStringAndNumber(t *testing.T) {
	// Some firmware sends channel as a string, some as a number.
	var asString Camera
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"channel":"2"}`), &asString))
	assert.Equal(t, "2", asString.Channel.String())

	var asNumber Camera
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"channel":2}`), &asNumber))
	assert.Equal(t, "2", asNumber.Channel.String())
}

func TestRecordingListClips(t *testing.T) {
	// Recording.List has shipped both field names for the clip array.
	var viaEvents RecordingList
	require.NoError(t, json.Unmarshal([]byte(`{"total":1,"events":[{"id":4}]}`), &viaEvents))
	require.Len(t, viaEvents.Clips(), 1)
	assert.Equal(t, 4, viaEvents.Clips()[0].ID)

	var viaRecordings RecordingList
	require.NoError(t, json.Unmarshal([]byte(`{"total":1,"recordings":[{"id":5}]}`), &viaRecordings))
	require.Len(t, viaRecordings.Clips(), 1)
	assert.Equal(t, 5, viaRecordings.Clips()[0].ID)
}

func TestTimeLapseAsRecording(t *testing.T) {
	rec := TimeLapseRecording{
		ID: 9, CameraID: 2, CameraName: "yard",
		StartTime: 100, StopTime: 200, MountID: 1, ArchID: 3,
	}
	r := rec.AsRecording()
	assert.Equal(t, 9, r.ID)
	assert.Equal(t, "yard", r.CameraName)
	assert.Equal(t, 3, r.EventType, "time lapse clips play back as recEvtType 3")
	assert.Equal(t, 1, r.MountID)
}

func TestDecodeDetectionLabels(t *testing.T) {
	assert.Nil(t, DecodeDetectionLabels(0))
	assert.Equal(t, []string{"Person"}, DecodeDetectionLabels(1<<1))
	assert.Equal(t, []string{"Person", "Vehicle"}, DecodeDetectionLabels(1<<1|1<<2))
	assert.Equal(t, []string{"License Plate"}, DecodeDetectionLabels(1<<7))
}
