package api

import (
	"encoding/json"
	"net/url"
	"strconv"
)

// Request is one WebAPI call. Params carries method-specific
// parameters; api/version/method/_sid are filled in by the session.
type Request struct {
	API     string
	Method  string
	Version int
	Params  url.Values
}

func (r Request) values(sid string, ver int) url.Values {
	v := url.Values{}
	for k, vals := range r.Params {
		v[k] = vals
	}
	v.Set("api", r.API)
	v.Set("method", r.Method)
	v.Set("version", strconv.Itoa(ver))
	if sid != "" {
		v.Set("_sid", sid)
	}
	return v
}

// envelope is the station's response wrapper. The error code inside
// the payload is authoritative; HTTP status is not.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code int `json:"code"`
	} `json:"error"`
}
