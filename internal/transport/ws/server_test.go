package ws_test

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"corruptioncrypts.gg/internal/protocol"
	"corruptioncrypts.gg/internal/sim/catalogs"
	"corruptioncrypts.gg/internal/sim/game"
	"corruptioncrypts.gg/internal/sim/rng"
	"corruptioncrypts.gg/internal/transport/ws"
)

func dialTestServer(t *testing.T) *websocket.Conn {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	g, err := game.New(game.Config{ID: "wstest"}, cats,
		rng.NewScriptedOracle(rng.SeedFromInt(7)), game.NewMemoryCustody(), nil)
	if err != nil {
		t.Fatalf("game: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = g.Run(ctx) }()

	srv := httptest.NewServer(ws.NewServer(g, log.New(io.Discard, "", 0)).Handler())
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendRaw(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readMsg(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	return m
}

func handshakeTest(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	hello, _ := json.Marshal(protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerName:      "tester",
	})
	sendRaw(t, conn, string(hello))
	if m := readMsg(t, conn); m["type"] != protocol.TypeWelcome {
		t.Fatalf("expected WELCOME, got %v", m["type"])
	}
	if m := readMsg(t, conn); m["type"] != protocol.TypeCatalog {
		t.Fatalf("expected CATALOG, got %v", m["type"])
	}
}

func TestHandler_RejectsMalformedFrames(t *testing.T) {
	conn := dialTestServer(t)
	handshakeTest(t, conn)

	expectProtoError := func(after string) {
		t.Helper()
		m := readMsg(t, conn)
		if m["type"] != protocol.TypeError || m["code"] != protocol.ErrProtoBadRequest {
			t.Fatalf("%s: expected %s error, got %v", after, protocol.ErrProtoBadRequest, m)
		}
	}

	sendRaw(t, conn, `{not json`)
	expectProtoError("garbage frame")

	sendRaw(t, conn, `{"type":"TURN","protocol_version":"1.0","turn_id":"T1","moves":"nope"}`)
	expectProtoError("bad TURN shape")

	sendRaw(t, conn, `{"type":"TURN","protocol_version":"9.9","turn_id":"T1","moves":[{"type":"CLAIM_MAP_TILES"}]}`)
	expectProtoError("wrong version")

	sendRaw(t, conn, `{"type":"WIBBLE","protocol_version":"1.0"}`)
	expectProtoError("unknown type")

	// The session survives rejected frames.
	req, _ := json.Marshal(protocol.StateReqMsg{Type: protocol.TypeStateReq, ProtocolVersion: protocol.Version})
	sendRaw(t, conn, string(req))
	if m := readMsg(t, conn); m["type"] != protocol.TypeState {
		t.Fatalf("expected STATE after rejected frames, got %v", m["type"])
	}
}
