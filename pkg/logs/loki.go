package logs

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Alijeyrad/dentlab_backend/config"
)

// lokiWriter batches JSON log lines and pushes them to Loki's push API
// from one goroutine. Lines are dropped when the buffer is full so a slow
// Loki never blocks request handling.
type lokiWriter struct {
	endpoint string
	username string
	password string
	labels   map[string]string
	client   *http.Client
	lines    chan [2]string
	flushMax int
	interval time.Duration
}

func newLokiHandler(cfg *config.Config, level slog.Level) slog.Handler {
	lw := &lokiWriter{
		endpoint: cfg.Logging.Output.Loki.Endpoint + "/loki/api/v1/push",
		username: cfg.Logging.Output.Loki.Username,
		password: cfg.Logging.Output.Loki.Password,
		labels: map[string]string{
			"service": cfg.Observability.ServiceName,
			"env":     cfg.Server.Environment,
		},
		client:   &http.Client{Timeout: 3 * time.Second},
		lines:    make(chan [2]string, 1024),
		flushMax: 100,
		interval: 2 * time.Second,
	}
	go lw.loop()
	return slog.NewJSONHandler(lw, &slog.HandlerOptions{Level: level})
}

func (lw *lokiWriter) Write(p []byte) (int, error) {
	line := string(bytes.TrimRight(p, "\n"))
	select {
	case lw.lines <- [2]string{strconv.FormatInt(time.Now().UnixNano(), 10), line}:
	default:
	}
	return len(p), nil
}

func (lw *lokiWriter) loop() {
	tick := time.NewTicker(lw.interval)
	defer tick.Stop()

	batch := make([][2]string, 0, lw.flushMax)
	for {
		select {
		case l := <-lw.lines:
			batch = append(batch, l)
			if len(batch) < lw.flushMax {
				continue
			}
		case <-tick.C:
			if len(batch) == 0 {
				continue
			}
		}
		lw.push(batch)
		batch = batch[:0]
	}
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

type lokiPush struct {
	Streams []lokiStream `json:"streams"`
}

func lokiPayload(labels map[string]string, values [][2]string) ([]byte, error) {
	return json.Marshal(lokiPush{Streams: []lokiStream{{Stream: labels, Values: values}}})
}

func (lw *lokiWriter) push(values [][2]string) {
	body, err := lokiPayload(lw.labels, values)
	if err != nil {
		return
	}
	req, err := http.NewRequest(http.MethodPost, lw.endpoint, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if lw.username != "" {
		req.SetBasicAuth(lw.username, lw.password)
	}
	resp, err := lw.client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}
