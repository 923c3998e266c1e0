package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTimeLapseTasks(t *testing.T) {
	c := &fakeClient{responses: map[string]string{
		"SYNO.SurveillanceStation.TimeLapse.ListTask": `{"task":[{"id":4,"name":"construction"}]}`,
	}}

	tasks, err := ListTimeLapseTasks(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "construction", tasks[0].Name)
	assert.Equal(t, "ListTask", c.last().Method)
}

func TestListTimeLapseRecordingsRequestShape(t *testing.T) {
	c := &fakeClient{responses: map[string]string{
		"SYNO.SurveillanceStation.TimeLapse.Recording.List": `{
			"total": 1,
			"events": [{"id":9,"cameraId":1,"cameraName":"yard","startTime":100,"stopTime":200,"isLocked":true,"fileSize":4096}]
		}`,
	}}

	recs, total, err := ListTimeLapseRecordings(context.Background(), c, -1, 0, 50, 0, 0, TimeLapseLocked)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].IsLocked)

	req := c.last()
	assert.Equal(t, "-1", req.Params.Get("lapseId"))
	assert.Equal(t, "50", req.Params.Get("limit"))
	assert.Equal(t, "1", req.Params.Get("locked"))
	assert.Equal(t, "false", req.Params.Get("blIncludeSnapshot"))
	assert.Empty(t, req.Params.Get("fromTime"))

	_, _, err = ListTimeLapseRecordings(context.Background(), c, 4, 0, 50, 1000, 2000, TimeLapseAll)
	require.NoError(t, err)
	assert.Equal(t, "1000", c.last().Params.Get("fromTime"))
	assert.Equal(t, "2000", c.last().Params.Get("toTime"))
}

func TestLockUnlockDeleteTimeLapseRecordings(t *testing.T) {
	c := &fakeClient{}

	require.NoError(t, LockTimeLapseRecordings(context.Background(), c, []int{1, 2}))
	assert.Equal(t, "Lock", c.last().Method)
	assert.Equal(t, "1,2", c.last().Params.Get("idList"))

	require.NoError(t, UnlockTimeLapseRecordings(context.Background(), c, []int{2}))
	assert.Equal(t, "Unlock", c.last().Method)

	require.NoError(t, DeleteTimeLapseRecordings(context.Background(), c, []int{9}))
	assert.Equal(t, "Delete", c.last().Method)
	assert.Equal(t, "9", c.last().Params.Get("idList"))
}

func TestDownloadTimeLapseRecordingUsesRecordingAPI(t *testing.T) {
	c := &fakeClient{}
	out := filepath.Join(t.TempDir(), "clips", "lapse.mp4")

	require.NoError(t, DownloadTimeLapseRecording(context.Background(), c, 9, out))

	req := c.last()
	assert.Equal(t, "SYNO.SurveillanceStation.Recording", req.API)
	assert.Equal(t, "Download", req.Method)
	assert.Equal(t, "3", req.Params.Get("recEvtType"))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}
