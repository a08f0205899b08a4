package app

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/auth"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// HandleLive streams a category to the browser while the page is open. The
// socket holds a poller lease; closing it releases the lease, and the last
// release stops polling. Browsers cannot set headers on a WebSocket, so the
// token may come as ?token=.
func (g *Gateway) HandleLive(w http.ResponseWriter, r *http.Request) {
	c, ok := entities.ParseCategory(mux.Vars(r)["category"])
	if !ok {
		writeError(w, http.StatusNotFound, "unknown category")
		return
	}
	u, ok := auth.UserFromRequest(g.cfg.Auth, r)
	if !ok && g.cfg.Auth != nil {
		u, ok = g.cfg.Auth.Authenticate(r.URL.Query().Get("token"))
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "sign in required")
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client
		g.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	lease := g.cfg.Snapshots.Acquire(c, u.Scope)
	defer lease.Release()
	g.cfg.Metrics.ViewerJoined()
	defer g.cfg.Metrics.ViewerLeft()
	g.log.Info("live view opened", "category", c, "scope", u.Scope, "user", u.ID)

	// reader: detects close and keeps pongs flowing
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(s entities.Snapshot) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(LiveMessage{Category: c, Seq: s.Seq, Data: viewOf(s)}); err != nil {
			g.log.Debug("live write failed", "err", err)
			return false
		}
		return true
	}

	var lastSeq uint64
	if s, have := lease.Latest(); have {
		if !send(s) {
			return
		}
		lastSeq = s.Seq
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			g.log.Info("live view closed", "category", c, "scope", u.Scope, "user", u.ID)
			return
		case s := <-lease.Updates():
			if s.Seq <= lastSeq {
				continue
			}
			if !send(s) {
				return
			}
			lastSeq = s.Seq
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
