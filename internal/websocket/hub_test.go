// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

func testClient(hub *Hub, buffer int) *Client {
	return &Client{id: clientIDCounter.Add(1), hub: hub, send: make(chan Message, buffer)}
}

func waitCount(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.GetClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", hub.GetClientCount(), want)
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func TestHub_RegisterSendsSnapshot(t *testing.T) {
	hub := startHub(t)
	hub.SetSnapshot(func() interface{} { return map[string]bool{"running": true} })

	c := testClient(hub, 4)
	hub.Register <- c

	msg := receive(t, c)
	if msg.Type != MessageTypeStatus {
		t.Fatalf("first message type = %s, want status", msg.Type)
	}
	if data, ok := msg.Data.(map[string]bool); !ok || !data["running"] {
		t.Errorf("snapshot = %#v", msg.Data)
	}
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub := startHub(t)
	a, b := testClient(hub, 4), testClient(hub, 4)
	hub.Register <- a
	hub.Register <- b
	waitCount(t, hub, 2)

	hub.BroadcastJSON(MessageTypeEvent, map[string]string{"type": "channel.pushed"})

	for _, c := range []*Client{a, b} {
		if msg := receive(t, c); msg.Type != MessageTypeEvent {
			t.Errorf("client %d got %s", c.ID(), msg.Type)
		}
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := startHub(t)
	slow := testClient(hub, 1)
	fast := testClient(hub, 8)
	hub.Register <- slow
	hub.Register <- fast
	waitCount(t, hub, 2)

	hub.BroadcastJSON(MessageTypeEvent, 1)
	hub.BroadcastJSON(MessageTypeEvent, 2)

	waitCount(t, hub, 1)
	if msg := receive(t, fast); msg.Type != MessageTypeEvent {
		t.Errorf("fast client got %s", msg.Type)
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := startHub(t)
	c := testClient(hub, 1)
	hub.Register <- c
	waitCount(t, hub, 1)

	hub.Unregister <- c
	waitCount(t, hub, 0)

	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected send channel to be closed")
		}
	case <-time.After(time.Second):
		t.Error("send channel not closed")
	}
}

func TestHub_BroadcastRaw(t *testing.T) {
	hub := startHub(t)
	c := testClient(hub, 4)
	hub.Register <- c
	waitCount(t, hub, 1)

	if err := hub.BroadcastRaw([]byte(`{"type":"timer.action","channel":2,"action":"restart"}`)); err != nil {
		t.Fatalf("BroadcastRaw: %v", err)
	}
	msg := receive(t, c)
	data, ok := msg.Data.(map[string]interface{})
	if msg.Type != MessageTypeEvent || !ok || data["action"] != "restart" {
		t.Errorf("message = %+v", msg)
	}

	if err := hub.BroadcastRaw([]byte("{not json")); err == nil {
		t.Error("expected decode error")
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hub.Serve(ctx) }()

	c := testClient(hub, 1)
	hub.Register <- c
	waitCount(t, hub, 1)

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve returned %v", err)
	}
	if hub.GetClientCount() != 0 {
		t.Error("clients should be closed on shutdown")
	}
	if _, ok := <-c.send; ok {
		t.Error("send channel should be closed")
	}
}

func TestGetShutdownReason(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	if got := getShutdownReason(ctx); got != ShutdownReasonContextDeadline {
		t.Errorf("reason = %s", got)
	}
}

func TestClient_PingPongOverConnection(t *testing.T) {
	hub := startHub(t)
	hub.SetSnapshot(func() interface{} { return "snapshot" })

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient(hub, conn)
		hub.Register <- c
		c.Start()
	}))
	defer srv.Close()

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	defer func() { _ = conn.Close() }()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var greeting Message
	if err := conn.ReadJSON(&greeting); err != nil || greeting.Type != MessageTypeStatus {
		t.Fatalf("greeting = %+v, %v", greeting, err)
	}

	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatal(err)
	}
	var pong Message
	if err := conn.ReadJSON(&pong); err != nil || pong.Type != MessageTypePong {
		t.Fatalf("pong = %+v, %v", pong, err)
	}
}
