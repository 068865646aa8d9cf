package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"corruptioncrypts.gg/internal/protocol"
	"corruptioncrypts.gg/internal/sim/game"
)

type Server struct {
	game *game.Game
	log  *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(g *game.Game, logger *log.Logger) *Server {
	s := &Server{
		game: g,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		playerID := s.handshake(conn)
		if playerID == "" {
			return
		}

		// Reader loop. The protocol is strictly request/response, so
		// each reply goes out before the next read.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				if err := writeJSON(conn, protoError("unparseable frame")); err != nil {
					return
				}
				continue
			}
			switch base.Type {
			case protocol.TypeTurn:
				var turn protocol.TurnMsg
				if err := json.Unmarshal(msg, &turn); err != nil {
					if err := writeJSON(conn, protoError("bad TURN frame")); err != nil {
						return
					}
					continue
				}
				if turn.ProtocolVersion != protocol.Version {
					if err := writeJSON(conn, protoError("unsupported protocol_version")); err != nil {
						return
					}
					continue
				}
				respCh := make(chan protocol.TurnResultMsg, 1)
				s.game.Inbox() <- game.TurnEnvelope{PlayerID: playerID, Turn: turn, Resp: respCh}
				if err := writeJSON(conn, <-respCh); err != nil {
					return
				}
			case protocol.TypeStateReq:
				respCh := make(chan protocol.StateMsg, 1)
				s.game.StateReq() <- game.StateRequest{PlayerID: playerID, Resp: respCh}
				if err := writeJSON(conn, <-respCh); err != nil {
					return
				}
			default:
				if err := writeJSON(conn, protoError(fmt.Sprintf("unknown message type %q", base.Type))); err != nil {
					return
				}
			}
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) (playerID string) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return ""
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return ""
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return ""
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return ""
	}
	if hello.PlayerName == "" {
		hello.PlayerName = "player"
	}

	// Optional: resume an existing player (reconnect).
	resumeToken := ""
	if hello.Auth != nil {
		resumeToken = strings.TrimSpace(hello.Auth.Token)
	}

	respCh := make(chan game.JoinResponse, 1)
	s.game.Join() <- game.JoinRequest{
		Name:        hello.PlayerName,
		ResumeToken: resumeToken,
		Resp:        respCh,
	}
	resp := <-respCh
	if resp.Welcome.PlayerID == "" {
		return ""
	}
	resp.Welcome.SessionID = uuid.NewString()

	// Send welcome + catalogs immediately.
	if err := writeJSON(conn, resp.Welcome); err != nil {
		return ""
	}
	for _, c := range resp.Catalogs {
		if err := writeJSON(conn, c); err != nil {
			return ""
		}
	}

	return resp.Welcome.PlayerID
}

func protoError(msg string) protocol.ErrorMsg {
	return protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            protocol.ErrProtoBadRequest,
		Message:         msg,
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
