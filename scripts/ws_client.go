// Package main runs a demo WebSocket client that tails schedule events.
package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewDevelopment()
	defer func() { _ = log.Sync() }()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	tenant := os.Getenv("TENANT")
	if tenant == "" {
		tenant = "t_demo"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/events/ws"}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", tenant)
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial", zap.Error(err))
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m struct {
				Type string         `json:"type"`
				Data map[string]any `json:"data"`
			}
			if err := c.ReadJSON(&m); err != nil {
				log.Info("read", zap.Error(err))
				return
			}
			log.Info("event", zap.String("type", m.Type), zap.Any("data", m.Data))
		}
	}()

	// Generate the current week so at least one event arrives.
	monday := time.Now()
	for monday.Weekday() != time.Monday {
		monday = monday.AddDate(0, 0, -1)
	}
	body := fmt.Sprintf(`{"start":%q,"end":%q}`, monday.Format("2006-01-02"), monday.AddDate(0, 0, 6).Format("2006-01-02"))
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/schedule/generate", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", tenant)
	req.Header.Set("X-Role", "dispatcher")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal("generate", zap.Error(err))
	}
	_ = resp.Body.Close()
	log.Info("generate", zap.Int("status", resp.StatusCode))

	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
