package services

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/technosupport/svs-client/internal/api"
	"github.com/technosupport/svs-client/internal/models"
)

// ListRecordings lists recordings, optionally filtered by camera.
// cameraID <= 0 means all cameras.
func ListRecordings(ctx context.Context, c Client, cameraID, offset, limit int) ([]models.Recording, int, error) {
	params := url.Values{
		"offset": {fmt.Sprint(offset)},
		"limit":  {fmt.Sprint(limit)},
	}
	if cameraID > 0 {
		params.Set("cameraIds", fmt.Sprint(cameraID))
	}

	var data models.RecordingList
	err := c.Do(ctx, api.Request{
		API:     apiRecording,
		Method:  "List",
		Version: 5,
		Params:  params,
	}, &data)
	if err != nil {
		return nil, 0, err
	}
	clips := data.Clips()
	total := data.Total
	if total == 0 {
		total = len(clips)
	}
	return clips, total, nil
}

// RecordingStreamURL returns the playback URL for a recording.
func RecordingStreamURL(ctx context.Context, c Client, recordingID int) (string, error) {
	var data struct {
		URI string `json:"uri"`
	}
	err := c.Do(ctx, api.Request{
		API:     apiRecording,
		Method:  "Stream",
		Version: 5,
		Params: url.Values{
			"id":           {fmt.Sprint(recordingID)},
			"offsetTimeMs": {"0"},
		},
	}, &data)
	if err != nil {
		return "", err
	}
	if data.URI != "" {
		return c.BaseURL() + data.URI, nil
	}
	// Older firmware omits the uri; stream directly off entry.cgi.
	return c.StreamURL("entry.cgi", url.Values{
		"api":          {apiRecording},
		"method":       {"Stream"},
		"version":      {"5"},
		"id":           {fmt.Sprint(recordingID)},
		"offsetTimeMs": {"0"},
	}), nil
}

// DownloadRecording saves a recording file to outputPath.
func DownloadRecording(ctx context.Context, c Client, recordingID int, outputPath string) error {
	data, err := c.Download(ctx, api.Request{
		API:     apiRecording,
		Method:  "Download",
		Version: 5,
		Params:  url.Values{"id": {fmt.Sprint(recordingID)}},
	})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}

// DeleteRecording removes a recording server-side.
func DeleteRecording(ctx context.Context, c Client, recordingID int) error {
	return c.Do(ctx, api.Request{
		API:     apiRecording,
		Method:  "Delete",
		Version: 5,
		Params:  url.Values{"idList": {fmt.Sprint(recordingID)}},
	}, nil)
}
