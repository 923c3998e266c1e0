package media

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// annexBStartCode marks NAL unit boundaries for the raw H.264/H.265
// byte stream handed to the player.
var annexBStartCode = []byte{0x00, 0x00, 0x00, 0x01}

const (
	wsHandshakeTimeout = 15 * time.Second
	wsMaxMessageSize   = 1 << 22
)

// WSBridge pumps a station WebSocket video stream into a writer the
// player reads from (a FIFO on disk, or an in-process pipe). The
// station frames each message as a 4-byte big-endian header length,
// an ASCII header, and the binary payload; audio frames and control
// messages are dropped since the raw video stream cannot carry them.
type WSBridge struct {
	url       string
	sid       string
	verifyTLS bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewWSBridge(wsURL, sid string, verifyTLS bool) *WSBridge {
	return &WSBridge{url: wsURL, sid: sid, verifyTLS: verifyTLS}
}

// Start connects and begins pumping into w on a new goroutine. The
// writer is closed when the pump stops so the reading player sees
// EOF.
func (b *WSBridge) Start(ctx context.Context, w io.WriteCloser) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return errors.New("ws bridge already running")
	}

	pumpCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})

	go func() {
		defer close(b.done)
		defer w.Close()
		if err := b.pump(pumpCtx, w); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[ERROR] WSBridge: pump ended: %v", err)
		}
	}()
	return nil
}

// Stop cancels the pump and waits for it to exit.
func (b *WSBridge) Stop() {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel = nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (b *WSBridge) pump(ctx context.Context, w io.Writer) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: wsHandshakeTimeout,
	}
	if !b.verifyTLS {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	header := http.Header{}
	header.Set("Cookie", "id="+b.sid)

	conn, _, err := dialer.DialContext(ctx, b.url, header)
	if err != nil {
		return fmt.Errorf("ws dial: %w", err)
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessageSize)
	log.Printf("[DEBUG] WSBridge: connected to %s", b.url)

	// Unblock the blocking ReadMessage when the context is cancelled.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("ws read: %w", err)
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		payload := extractPayload(msg)
		if payload == nil {
			continue
		}
		if _, err := w.Write(payload); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("pipe write: %w", err)
		}
	}
}

// extractPayload strips the station framing from one message and
// returns the video payload with a start code prepended, or nil for
// frames that must not enter the video stream (audio, control,
// malformed).
func extractPayload(msg []byte) []byte {
	if len(msg) < 4 {
		return nil
	}
	hdrLen := binary.BigEndian.Uint32(msg[:4])
	if 4+int(hdrLen) > len(msg) {
		return nil // header claims more bytes than the message holds
	}
	header := msg[4 : 4+hdrLen]
	payload := msg[4+hdrLen:]

	if bytes.Contains(header, []byte("mediaType=2")) {
		return nil // audio frame
	}
	if bytes.Contains(header, []byte("close=")) {
		log.Printf("[DEBUG] WSBridge: stream close: %s", header)
		return nil
	}
	if len(payload) == 0 {
		return nil
	}

	// The station's header ends with the Annex B start code that
	// belongs in front of the payload; re-insert it for the demuxer.
	out := make([]byte, 0, len(annexBStartCode)+len(payload))
	out = append(out, annexBStartCode...)
	out = append(out, payload...)
	return out
}
