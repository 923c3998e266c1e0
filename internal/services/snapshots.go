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

// ListSnapshots lists stored snapshots. cameraID <= 0 means all.
func ListSnapshots(ctx context.Context, c Client, cameraID, offset, limit int) ([]models.Snapshot, int, error) {
	params := url.Values{
		"offset": {fmt.Sprint(offset)},
		"limit":  {fmt.Sprint(limit)},
	}
	if cameraID > 0 {
		params.Set("cameraId", fmt.Sprint(cameraID))
	}

	var data models.SnapshotList
	err := c.Do(ctx, api.Request{
		API:     apiSnapshot,
		Method:  "List",
		Version: 1,
		Params:  params,
	}, &data)
	if err != nil {
		return nil, 0, err
	}
	items := data.Items()
	total := data.Total
	if total == 0 {
		total = len(items)
	}
	return items, total, nil
}

// DownloadSnapshot saves a stored snapshot to outputPath.
func DownloadSnapshot(ctx context.Context, c Client, snapshotID int, outputPath string) error {
	data, err := c.Download(ctx, api.Request{
		API:     apiSnapshot,
		Method:  "Download",
		Version: 1,
		Params:  url.Values{"id": {fmt.Sprint(snapshotID)}},
	})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}
