package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"corruptioncrypts.gg/internal/protocol"
)

// A minimal demo player: joins, polls its board, claims pending tiles
// and places them on random free cells.
func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name     = flag.String("name", "bot", "player name")
		interval = flag.Duration("interval", 5*time.Second, "poll interval")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerName:      *name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	var playerID string
	turnSeq := 0
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	poll := time.NewTicker(*interval)
	defer poll.Stop()

	// The server answers strictly request/response after the handshake,
	// so a single loop can both drive and read.
	msgs := make(chan []byte, 16)
	errs := make(chan error, 1)
	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				errs <- err
				return
			}
			msgs <- msg
		}
	}()

	for {
		select {
		case <-stop:
			return
		case err := <-errs:
			logger.Printf("read: %v", err)
			return
		case <-poll.C:
			if playerID == "" {
				continue
			}
			req := protocol.StateReqMsg{Type: protocol.TypeStateReq, ProtocolVersion: protocol.Version}
			if err := conn.WriteJSON(req); err != nil {
				logger.Fatalf("send STATE_REQ: %v", err)
			}
		case msg := <-msgs:
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			switch base.Type {
			case protocol.TypeWelcome:
				var w protocol.WelcomeMsg
				if err := json.Unmarshal(msg, &w); err != nil {
					continue
				}
				playerID = w.PlayerID
				logger.Printf("WELCOME player_id=%s round=%d epoch_seconds=%d",
					w.PlayerID, w.GameParams.Round, w.GameParams.EpochSeconds)

			case protocol.TypeState:
				var st protocol.StateMsg
				if err := json.Unmarshal(msg, &st); err != nil {
					continue
				}
				if turn, ok := planTurn(&st, r, &turnSeq); ok {
					if err := conn.WriteJSON(turn); err != nil {
						logger.Fatalf("send TURN: %v", err)
					}
				}

			case protocol.TypeTurnResult:
				var res protocol.TurnResultMsg
				if err := json.Unmarshal(msg, &res); err != nil {
					continue
				}
				if res.OK {
					logger.Printf("turn %s committed round=%d", res.TurnID, res.Round)
				} else {
					for _, mr := range res.Results {
						if !mr.OK {
							logger.Printf("turn %s rejected: %s %s", res.TurnID, mr.Code, mr.Message)
							break
						}
					}
				}
			}
		}
	}
}

// planTurn claims what is owed and places one hand tile somewhere free.
func planTurn(st *protocol.StateMsg, r *rand.Rand, seq *int) (protocol.TurnMsg, bool) {
	var moves []protocol.Move
	if st.PendingTiles > 0 {
		moves = append(moves, protocol.Move{Type: protocol.MoveClaimMapTiles})
	}
	if len(st.Hand) > 0 {
		occupied := map[[2]int]bool{}
		for _, c := range st.Board {
			occupied[c.Coord] = true
		}
		for attempt := 0; attempt < 20; attempt++ {
			coord := [2]int{r.Intn(16), r.Intn(10)}
			if occupied[coord] {
				continue
			}
			moves = append(moves, protocol.Move{
				Type:   protocol.MovePlaceMapTile,
				TileID: st.Hand[r.Intn(len(st.Hand))].TileID,
				Coord:  coord,
			})
			break
		}
	}
	if len(moves) == 0 {
		return protocol.TurnMsg{}, false
	}
	*seq++
	return protocol.TurnMsg{
		Type:            protocol.TypeTurn,
		ProtocolVersion: protocol.Version,
		TurnID:          fmt.Sprintf("bot-%d", *seq),
		Moves:           moves,
	}, true
}
