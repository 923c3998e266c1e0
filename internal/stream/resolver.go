// Package stream resolves a camera into a playable stream descriptor,
// honoring per-camera protocol preferences and direct-URL overrides.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/technosupport/svs-client/internal/api"
	"github.com/technosupport/svs-client/internal/config"
	"github.com/technosupport/svs-client/internal/models"
)

// Protocol selects the transport used for live view.
type Protocol string

const (
	ProtoAuto         Protocol = "auto"
	ProtoRTSP         Protocol = "rtsp"
	ProtoRTSPOverHTTP Protocol = "rtsp_over_http"
	ProtoMJPEG        Protocol = "mjpeg"
	ProtoMulticast    Protocol = "multicast"
	ProtoDirect       Protocol = "direct"
)

// autoOrder is the fallback chain for ProtoAuto. Any non-specific
// failure on one transport falls through to the next; the server's
// "unsupported" signal is not precise enough to distinguish causes.
var autoOrder = []Protocol{ProtoRTSP, ProtoRTSPOverHTTP, ProtoMJPEG, ProtoMulticast}

type ResolutionReason string

const (
	ReasonUnsupportedProtocol ResolutionReason = "unsupported_protocol"
	ReasonMalformedOverride   ResolutionReason = "malformed_override"
)

// ResolutionError reports why a camera could not be resolved. The
// camera shows an error state instead of video; the protocol is never
// silently substituted.
type ResolutionError struct {
	CameraID int
	Protocol Protocol
	Reason   ResolutionReason
	Err      error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("camera %d: cannot resolve %s stream (%s)", e.CameraID, e.Protocol, e.Reason)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Descriptor is the resolved transport/address for one camera feed.
type Descriptor struct {
	CameraID  int
	Protocol  Protocol
	URL       string
	ExpiresAt time.Time // zero for direct overrides
}

// session is the slice of api.Session the resolver needs.
type session interface {
	Do(ctx context.Context, req Request, out any) error
	BaseURL() string
}

// Request aliases the API request type so mocks stay small.
type Request = api.Request

const (
	cacheSize = 64
	cacheTTL  = 5 * time.Minute
)

// Resolver turns camera ids into stream descriptors. Server-resolved
// descriptors are cached briefly; the station rotates stream tokens,
// so cache entries expire rather than live forever.
type Resolver struct {
	sess  session
	cfg   *config.Store
	cache *expirable.LRU[string, Descriptor]
}

func NewResolver(sess session, cfg *config.Store) *Resolver {
	return &Resolver{
		sess:  sess,
		cfg:   cfg,
		cache: expirable.NewLRU[string, Descriptor](cacheSize, nil, cacheTTL),
	}
}

// pathInfos handles both envelope shapes the station has shipped: a
// bare list, or an object wrapping it.
type pathInfos struct {
	PathInfos []models.LiveViewPath `json:"pathInfos"`
	Cameras   []models.LiveViewPath `json:"cameras"`
}

// Resolve produces the stream descriptor for a camera, using the
// configured per-camera protocol (default auto) and direct override.
func (r *Resolver) Resolve(ctx context.Context, cameraID int) (Descriptor, error) {
	protoStr, override := r.cfg.CameraProtocol(cameraID)
	proto := Protocol(protoStr)
	if proto == "" {
		proto = ProtoAuto
	}

	if proto == ProtoDirect {
		return r.resolveDirect(cameraID, override)
	}

	key := fmt.Sprintf("%d/%s", cameraID, proto)
	if d, ok := r.cache.Get(key); ok {
		return d, nil
	}

	paths, err := r.fetchPaths(ctx, cameraID)
	if err != nil {
		return Descriptor{}, err
	}

	d, err := r.pick(cameraID, proto, paths)
	if err != nil {
		return Descriptor{}, err
	}
	r.cache.Add(key, d)
	return d, nil
}

// resolveDirect validates the override URL syntactically and returns
// it untouched. Reachability is the media sink's problem; no network
// call is made here.
func (r *Resolver) resolveDirect(cameraID int, override string) (Descriptor, error) {
	if override == "" {
		return Descriptor{}, &ResolutionError{
			CameraID: cameraID,
			Protocol: ProtoDirect,
			Reason:   ReasonMalformedOverride,
			Err:      fmt.Errorf("no override URL configured"),
		}
	}
	u, err := url.Parse(override)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Descriptor{}, &ResolutionError{
			CameraID: cameraID,
			Protocol: ProtoDirect,
			Reason:   ReasonMalformedOverride,
			Err:      err,
		}
	}
	return Descriptor{CameraID: cameraID, Protocol: ProtoDirect, URL: override}, nil
}

func (r *Resolver) fetchPaths(ctx context.Context, cameraID int) (models.LiveViewPath, error) {
	var raw json.RawMessage
	err := r.sess.Do(ctx, Request{
		API:     "SYNO.SurveillanceStation.Camera",
		Method:  "GetLiveViewPath",
		Version: 9,
		Params:  url.Values{"idList": {fmt.Sprint(cameraID)}},
	}, &raw)
	if err != nil {
		return models.LiveViewPath{}, err
	}

	// Firmware returns either a bare list or an object wrapping it.
	var list []models.LiveViewPath
	if jerr := json.Unmarshal(raw, &list); jerr == nil && len(list) > 0 {
		return list[0], nil
	}
	var wrapped pathInfos
	if jerr := json.Unmarshal(raw, &wrapped); jerr == nil {
		if len(wrapped.PathInfos) > 0 {
			return wrapped.PathInfos[0], nil
		}
		if len(wrapped.Cameras) > 0 {
			return wrapped.Cameras[0], nil
		}
	}
	return models.LiveViewPath{}, &ResolutionError{
		CameraID: cameraID,
		Reason:   ReasonUnsupportedProtocol,
		Err:      fmt.Errorf("no live view path returned"),
	}
}

// pathFor returns the path field for one protocol, absolutized for
// HTTP-relative paths.
func (r *Resolver) pathFor(p Protocol, info models.LiveViewPath) string {
	switch p {
	case ProtoRTSP:
		return info.RtspPath
	case ProtoRTSPOverHTTP:
		return info.RtspOverHttpPath
	case ProtoMJPEG:
		if info.MjpegHttpPath == "" {
			return ""
		}
		return r.sess.BaseURL() + info.MjpegHttpPath
	case ProtoMulticast:
		return info.MulticastPath
	}
	return ""
}

func (r *Resolver) pick(cameraID int, proto Protocol, info models.LiveViewPath) (Descriptor, error) {
	expires := time.Now().Add(cacheTTL)

	if proto != ProtoAuto {
		u := r.pathFor(proto, info)
		if u == "" {
			return Descriptor{}, &ResolutionError{
				CameraID: cameraID,
				Protocol: proto,
				Reason:   ReasonUnsupportedProtocol,
				Err:      fmt.Errorf("server reports no %s path for this camera", proto),
			}
		}
		return Descriptor{CameraID: cameraID, Protocol: proto, URL: u, ExpiresAt: expires}, nil
	}

	for _, p := range autoOrder {
		if u := r.pathFor(p, info); u != "" {
			return Descriptor{CameraID: cameraID, Protocol: p, URL: u, ExpiresAt: expires}, nil
		}
	}
	return Descriptor{}, &ResolutionError{
		CameraID: cameraID,
		Protocol: ProtoAuto,
		Reason:   ReasonUnsupportedProtocol,
		Err:      fmt.Errorf("no usable stream path for camera %d", cameraID),
	}
}

// Invalidate drops any cached descriptor for a camera, for all
// protocols. Called when config overrides change.
func (r *Resolver) Invalidate(cameraID int) {
	for _, p := range append([]Protocol{ProtoAuto}, autoOrder...) {
		r.cache.Remove(fmt.Sprintf("%d/%s", cameraID, p))
	}
}

// SnapshotURL builds the URL for a live snapshot of a camera. Used by
// callers that hand the URL to an image widget rather than download.
func SnapshotURL(sess interface {
	StreamURL(path string, params url.Values) string
}, cameraID int) string {
	return sess.StreamURL("entry.cgi", url.Values{
		"api":      {"SYNO.SurveillanceStation.Camera"},
		"method":   {"GetSnapshot"},
		"version":  {"9"},
		"cameraId": {fmt.Sprint(cameraID)},
	})
}
