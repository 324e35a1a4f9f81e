package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/fasthttp/websocket"

	"github.com/Alijeyrad/dentlab_backend/config"
)

type Options struct {
	SendBuffer     int
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	MaxFrameBytes  int64
	AllowedOrigins []string
}

func OptionsFromConfig(c config.RealtimeConfig) Options {
	o := Options{
		SendBuffer:     c.SendBuffer,
		PingInterval:   time.Duration(c.PingIntervalSeconds) * time.Second,
		AllowedOrigins: c.AllowedOrigins,
	}
	return o.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 25 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.MaxFrameBytes <= 0 {
		o.MaxFrameBytes = 64 << 10
	}
	return o
}

// pongWait must exceed the ping interval so one lost pong is tolerated.
func (o Options) pongWait() time.Duration { return o.PingInterval * 2 }

// Serve pumps frames between ws and c until either side closes or ctx is
// done. onFrame runs on the read goroutine, one inbound frame at a time.
// The caller registers c with the hub beforehand and unregisters it after
// Serve returns.
func Serve(ctx context.Context, ws *websocket.Conn, c *Client, opts Options, onFrame func(Frame)) {
	opts = opts.withDefaults()
	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		writeLoop(ctx, ws, c, opts, quit)
		// unblock the reader if the writer ended first
		_ = ws.Close()
	}()
	readLoop(ws, c, opts, onFrame)
	close(quit)
	<-done
}

func readLoop(ws *websocket.Conn, c *Client, opts Options, onFrame func(Frame)) {
	ws.SetReadLimit(opts.MaxFrameBytes)
	_ = ws.SetReadDeadline(time.Now().Add(opts.pongWait()))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(opts.pongWait()))
	})
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("realtime: read ended", "client", c.ID, "err", err)
			}
			return
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil || f.Event == "" {
			_ = c.Emit("socket-error", ErrorPayload("Invalid event frame"))
			continue
		}
		onFrame(f)
	}
}

func writeLoop(ctx context.Context, ws *websocket.Conn, c *Client, opts Options, quit <-chan struct{}) {
	ticker := time.NewTicker(opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case frame, ok := <-c.send:
			_ = ws.SetWriteDeadline(time.Now().Add(opts.WriteTimeout))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(opts.WriteTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-quit:
			return
		case <-ctx.Done():
			_ = ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		}
	}
}

// ErrorPayload is the body of a socket-error event.
func ErrorPayload(message string) map[string]any {
	return map[string]any{"success": false, "message": message}
}
