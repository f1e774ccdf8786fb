// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/headview/internal/capture"
	"github.com/relabs-tech/headview/internal/raster"
)

const wsWriteTimeout = 2 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// Handler serves the renderer's HTTP API:
//
//	GET  /api/frame  latest frame summary
//	GET  /api/fov    current field of view
//	POST /api/fov    set the field of view, body {"fov_deg": 60}
//	POST /api/capture save the current frame as PNG
//	GET  /frame.png  latest rendered frame
//	GET  /metrics    Prometheus metrics
//	GET  /ws         frame summaries over WebSocket
func (a *Renderer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/frame", a.handleFrame)
	mux.HandleFunc("/api/fov", a.handleFOV)
	mux.HandleFunc("/api/capture", a.handleCapture)
	mux.HandleFunc("/frame.png", a.handlePNG)
	mux.Handle("/metrics", a.Metrics.Handler())
	mux.HandleFunc("/ws", a.handleWS)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

func (a *Renderer) handleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s, ok := a.Scene.Latest()
	if !ok {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (a *Renderer) handleFOV(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, FOVMessage{FOVDeg: a.FOV.Get()})
	case http.MethodPost:
		var msg FOVMessage
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&msg); err != nil {
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := a.FOV.Set(msg.FOVDeg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, FOVMessage{FOVDeg: a.FOV.Get()})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *Renderer) handleCapture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	res, err := a.Capture.Capture(r.Context())
	switch {
	case errors.Is(err, capture.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (a *Renderer) handlePNG(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := a.Device.WritePNG(&buf)
	if errors.Is(err, raster.ErrNoFrame) {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("web: png write error: %v", err)
	}
}

func (a *Renderer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	ch := a.hub.subscribe()
	defer a.hub.unsubscribe(ch)

	// Reads only detect the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case s := <-ch:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
			if err := conn.WriteJSON(s); err != nil {
				log.Printf("web: websocket write: %v", err)
				return
			}
		}
	}
}
