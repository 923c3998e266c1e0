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

// Lock filter values for ListTimeLapseRecordings.
const (
	TimeLapseAll      = 0
	TimeLapseLocked   = 1
	TimeLapseUnlocked = 2
)

// ListTimeLapseTasks lists the configured time lapse tasks.
func ListTimeLapseTasks(ctx context.Context, c Client) ([]models.TimeLapseTask, error) {
	var data struct {
		Tasks []models.TimeLapseTask `json:"task"`
	}
	err := c.Do(ctx, api.Request{
		API:     apiTimeLapse,
		Method:  "ListTask",
		Version: 1,
	}, &data)
	if err != nil {
		return nil, err
	}
	return data.Tasks, nil
}

// ListTimeLapseRecordings lists time lapse clips. taskID < 0 means all
// tasks; fromTime/toTime of 0 mean no range filter; locked takes the
// TimeLapse* filter constants.
func ListTimeLapseRecordings(ctx context.Context, c Client, taskID, offset, limit int, fromTime, toTime int64, locked int) ([]models.TimeLapseRecording, int, error) {
	params := url.Values{
		"lapseId":           {fmt.Sprint(taskID)},
		"start":             {fmt.Sprint(offset)},
		"limit":             {fmt.Sprint(limit)},
		"locked":            {fmt.Sprint(locked)},
		"blIncludeSnapshot": {"false"},
	}
	if fromTime > 0 {
		params.Set("fromTime", fmt.Sprint(fromTime))
	}
	if toTime > 0 {
		params.Set("toTime", fmt.Sprint(toTime))
	}

	var data struct {
		Events []models.TimeLapseRecording `json:"events"`
		Total  int                         `json:"total"`
	}
	err := c.Do(ctx, api.Request{
		API:     apiTimeLapseRec,
		Method:  "List",
		Version: 1,
		Params:  params,
	}, &data)
	if err != nil {
		return nil, 0, err
	}
	total := data.Total
	if total == 0 {
		total = len(data.Events)
	}
	return data.Events, total, nil
}

// DeleteTimeLapseRecordings removes time lapse clips server-side.
func DeleteTimeLapseRecordings(ctx context.Context, c Client, ids []int) error {
	return timeLapseRecCall(ctx, c, "Delete", ids)
}

// LockTimeLapseRecordings protects clips from retention cleanup.
func LockTimeLapseRecordings(ctx context.Context, c Client, ids []int) error {
	return timeLapseRecCall(ctx, c, "Lock", ids)
}

// UnlockTimeLapseRecordings lifts the retention protection again.
func UnlockTimeLapseRecordings(ctx context.Context, c Client, ids []int) error {
	return timeLapseRecCall(ctx, c, "Unlock", ids)
}

func timeLapseRecCall(ctx context.Context, c Client, method string, ids []int) error {
	return c.Do(ctx, api.Request{
		API:     apiTimeLapseRec,
		Method:  method,
		Version: 1,
		Params:  url.Values{"idList": {joinInts(ids)}},
	}, nil)
}

// DownloadTimeLapseRecording saves a time lapse clip to outputPath.
// Downloads go through the Recording API with the time lapse event
// type.
func DownloadTimeLapseRecording(ctx context.Context, c Client, recordingID int, outputPath string) error {
	data, err := c.Download(ctx, api.Request{
		API:     apiRecording,
		Method:  "Download",
		Version: 5,
		Params: url.Values{
			"id":         {fmt.Sprint(recordingID)},
			"recEvtType": {"3"},
		},
	})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}
