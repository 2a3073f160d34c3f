// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/heli_controller/internal/config"
	"github.com/relabs-tech/heli_controller/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// hub keeps the latest payload of one topic and fans new payloads out to
// WebSocket subscribers. Slow subscribers miss payloads rather than block
// the MQTT callback.
type hub struct {
	mu      sync.RWMutex
	last    []byte
	clients map[chan []byte]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[chan []byte]struct{})}
}

func (h *hub) publish(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = payload
	for ch := range h.clients {
		select {
		case ch <- payload:
		default:
		}
	}
}

func (h *hub) latest() ([]byte, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last, h.last != nil
}

func (h *hub) subscribe() chan []byte {
	ch := make(chan []byte, 8)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *hub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// serveLatest answers with the last payload as JSON.
func (h *hub) serveLatest(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(payload); err != nil {
		log.Printf("web: write error: %v", err)
	}
}

// serveWS streams every payload to a WebSocket client, starting with the
// latest one.
func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	// The client never sends anything; reading only detects the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("web: websocket read error: %v", err)
				}
				return
			}
		}
	}()

	if payload, ok := h.latest(); ok {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
	for {
		select {
		case <-done:
			return
		case payload := <-ch:
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}

// newWebMux routes the telemetry API, the frame stream and the static files
// under staticDir.
func newWebMux(frames, states *hub, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/telemetry", frames.serveLatest)
	mux.HandleFunc("/api/state", states.serveLatest)
	mux.HandleFunc("/ws/telemetry", frames.serveWS)
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	return mux
}

// frameHandler validates a JSON payload as T before handing it to h.
func frameHandler[T any](h *hub, what string) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		var v T
		if err := json.Unmarshal(msg.Payload(), &v); err != nil {
			log.Printf("web: %s unmarshal error: %v", what, err)
			return
		}
		h.publish(msg.Payload())
	}
}

// RunWeb subscribes to the controller's topics and serves the latest frame,
// the latest state change and a live frame stream.
func RunWeb() error {
	cfg := config.Get()
	frames, states := newHub(), newHub()

	// 1) Connect to MQTT broker
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	// 2) Subscribe to telemetry and state topics
	token := client.Subscribe(cfg.TopicTelemetry, 0, frameHandler[telemetry.Frame](frames, "frame"))
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("subscribed to MQTT topic %s", cfg.TopicTelemetry)

	if cfg.TopicState != "" {
		token = client.Subscribe(cfg.TopicState, 0, frameHandler[telemetry.StateChange](states, "state"))
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.Printf("subscribed to MQTT topic %s", cfg.TopicState)
	}

	// 3) API, stream and static files from ./web
	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, newWebMux(frames, states, "web"))
}
