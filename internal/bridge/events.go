package bridge

import "github.com/google/uuid"

// Event is one unit of cross-domain notification. Exactly one of the
// concrete types below is posted by its origin domain and consumed
// once by the dispatch loop. Events are immutable after creation.
type Event interface {
	kind() string
}

// PollResult carries one completed poll run for a feed. Payload and
// Err are mutually exclusive.
type PollResult struct {
	Feed    string
	Payload any
	Err     error
}

// MediaPosition is a playback position update from the media sink's
// callback thread.
type MediaPosition struct {
	CameraID int
	Seconds  float64
}

// MediaFrameReady signals that the sink rendered a new frame.
type MediaFrameReady struct {
	CameraID int
}

// UserCommandResult is the deferred outcome of a dispatched command.
type UserCommandResult struct {
	CommandID uuid.UUID
	Command   string
	Payload   any
	Err       error
}

// CredentialExpired signals an irrecoverable session loss; the login
// surface must establish a new session before polling resumes.
type CredentialExpired struct{}

func (PollResult) kind() string        { return "poll_result" }
func (MediaPosition) kind() string     { return "media_position" }
func (MediaFrameReady) kind() string   { return "media_frame_ready" }
func (UserCommandResult) kind() string { return "user_command_result" }
func (CredentialExpired) kind() string { return "credential_expired" }

// eventCamera extracts the camera id an event targets, if any.
func eventCamera(e Event) (int, bool) {
	switch ev := e.(type) {
	case MediaPosition:
		return ev.CameraID, true
	case MediaFrameReady:
		return ev.CameraID, true
	}
	return 0, false
}

// eventFeed extracts the feed name an event targets, if any.
func eventFeed(e Event) (string, bool) {
	if ev, ok := e.(PollResult); ok {
		return ev.Feed, true
	}
	return "", false
}
