// Package media is the boundary to the native playback sink. The
// sink decodes and renders on its own OS threads; the only way its
// callbacks may touch shared state is by posting bridge events, which
// BindSink wires up.
package media

import (
	"github.com/technosupport/svs-client/internal/bridge"
)

// Sink is the playback contract an embedding UI provides (an mpv or
// GStreamer wrapper in practice). Control calls are fire-and-forget;
// position and frame callbacks arrive on the sink's own threads.
type Sink interface {
	Play(url string) error
	Pause()
	Seek(seconds float64)
	SetVolume(percent int)
	Close()

	// OnPosition and OnFrameReady register callbacks invoked from the
	// sink's decode threads.
	OnPosition(fn func(seconds float64))
	OnFrameReady(fn func())
}

// BindSink forwards a sink's native callbacks into the event bridge
// so they are consumed on the dispatch loop, never on the decoder
// thread. Call before Play.
func BindSink(bus *bridge.Bridge, cameraID int, sink Sink) {
	sink.OnPosition(func(seconds float64) {
		bus.Post(bridge.MediaPosition{CameraID: cameraID, Seconds: seconds})
	})
	sink.OnFrameReady(func() {
		bus.Post(bridge.MediaFrameReady{CameraID: cameraID})
	})
}
