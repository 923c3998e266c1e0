package services

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/technosupport/svs-client/internal/api"
	"github.com/technosupport/svs-client/internal/models"
)

// LoadLicenses returns the installed license keys and the key quota
// summary.
func LoadLicenses(ctx context.Context, c Client) (models.LicenseInfo, error) {
	var data models.LicenseInfo
	err := c.Do(ctx, api.Request{
		API:     apiLicense,
		Method:  "Load",
		Version: 1,
	}, &data)
	return data, err
}

// AddLicenseKeys installs license keys through the station's online
// activation.
func AddLicenseKeys(ctx context.Context, c Client, keys []string) error {
	return c.Do(ctx, api.Request{
		API:     apiLicense,
		Method:  "AddKey",
		Version: 1,
		Params:  url.Values{"licenseList": {strings.Join(keys, ",")}},
	}, nil)
}

// DeleteLicenses removes installed licenses by id.
func DeleteLicenses(ctx context.Context, c Client, ids []int) error {
	return c.Do(ctx, api.Request{
		API:     apiLicense,
		Method:  "DeleteKey",
		Version: 1,
		Params:  url.Values{"lic_list": {joinInts(ids)}},
	}, nil)
}

// GetDeviceInfo returns the NAS serial number and model. Firmware
// revisions disagree on the field names, so both spellings are read.
func GetDeviceInfo(ctx context.Context, c Client) (serial, model string, err error) {
	var data struct {
		Serial   string `json:"serial"`
		DsSerial string `json:"dsSerial"`
		Model    string `json:"model"`
		DsModel  string `json:"dsModel"`
	}
	err = c.Do(ctx, api.Request{
		API:     apiInfo,
		Method:  "GetInfo",
		Version: 1,
	}, &data)
	if err != nil {
		return "", "", err
	}
	serial = data.Serial
	if serial == "" {
		serial = data.DsSerial
	}
	model = data.Model
	if model == "" {
		model = data.DsModel
	}
	return serial, model, nil
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
