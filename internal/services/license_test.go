package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLicensesDecodesSummary(t *testing.T) {
	c := &fakeClient{responses: map[string]string{
		"SYNO.SurveillanceStation.License.Load": `{
			"keyTotal": 8, "keyUsed": 3, "keyMax": 64,
			"license": [
				{"id":1,"key":"AAAA-BBBB","quota":4,"expiredDate":0,"isExpired":false},
				{"id":2,"key":"CCCC-DDDD","quota":1,"expiredDate":1700000000,"isExpired":true}
			]
		}`,
	}}

	info, err := LoadLicenses(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, 8, info.KeyTotal)
	assert.Equal(t, 3, info.KeyUsed)
	require.Len(t, info.Licenses, 2)
	assert.True(t, info.Licenses[0].Perpetual())
	assert.False(t, info.Licenses[1].Perpetual())
	assert.True(t, info.Licenses[1].IsExpired)

	req := c.last()
	assert.Equal(t, "Load", req.Method)
	assert.Equal(t, 1, req.Version)
}

func TestAddAndDeleteLicenseKeys(t *testing.T) {
	c := &fakeClient{}

	require.NoError(t, AddLicenseKeys(context.Background(), c, []string{"AAAA-BBBB", "CCCC-DDDD"}))
	assert.Equal(t, "AddKey", c.last().Method)
	assert.Equal(t, "AAAA-BBBB,CCCC-DDDD", c.last().Params.Get("licenseList"))

	require.NoError(t, DeleteLicenses(context.Background(), c, []int{3, 7}))
	assert.Equal(t, "DeleteKey", c.last().Method)
	assert.Equal(t, "3,7", c.last().Params.Get("lic_list"))
}

func TestGetDeviceInfoFieldFallback(t *testing.T) {
	c := &fakeClient{responses: map[string]string{
		"SYNO.SurveillanceStation.Info.GetInfo": `{"dsSerial":"1960ABC","dsModel":"DS920+"}`,
	}}

	serial, model, err := GetDeviceInfo(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "1960ABC", serial)
	assert.Equal(t, "DS920+", model)
}
