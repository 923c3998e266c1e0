package services

import (
	"context"
	"fmt"
	"net/url"

	"github.com/technosupport/svs-client/internal/api"
	"github.com/technosupport/svs-client/internal/models"
)

// ListEvents lists surveillance events, newest first. cameraID <= 0
// means all cameras.
func ListEvents(ctx context.Context, c Client, cameraID, offset, limit int) ([]models.Event, int, error) {
	params := url.Values{
		"offset": {fmt.Sprint(offset)},
		"limit":  {fmt.Sprint(limit)},
	}
	if cameraID > 0 {
		params.Set("cameraIds", fmt.Sprint(cameraID))
	}

	var data models.EventList
	err := c.Do(ctx, api.Request{
		API:     apiEvent,
		Method:  "List",
		Version: 5,
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

// ListAlerts lists recent events shaped as alerts for the
// notification feed. The station has no dedicated alert API; the
// alerts feed is the event list filtered to alarm-like modes.
func ListAlerts(ctx context.Context, c Client, limit int) ([]models.Alert, error) {
	events, _, err := ListEvents(ctx, c, 0, 0, limit)
	if err != nil {
		return nil, err
	}
	alerts := make([]models.Alert, 0, len(events))
	for _, ev := range events {
		alerts = append(alerts, models.Alert{
			ID:         ev.ID,
			CameraID:   ev.CameraID,
			CameraName: ev.CameraName,
			AlertType:  ev.Mode,
			Timestamp:  ev.StartTime,
		})
	}
	return alerts, nil
}
