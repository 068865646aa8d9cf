package game

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"corruptioncrypts.gg/internal/persistence/snapshot"
	"corruptioncrypts.gg/internal/protocol"
	"corruptioncrypts.gg/internal/sim/catalogs"
	"corruptioncrypts.gg/internal/sim/rng"
)

type JoinRequest struct {
	Name        string
	ResumeToken string
	Resp        chan JoinResponse
}

type JoinResponse struct {
	Welcome  protocol.WelcomeMsg
	Catalogs []protocol.CatalogMsg
}

type TurnEnvelope struct {
	PlayerID string
	Turn     protocol.TurnMsg
	Resp     chan protocol.TurnResultMsg
}

type StateRequest struct {
	PlayerID string
	Resp     chan protocol.StateMsg
}

type ConfigUpdate struct {
	Cfg  Config
	Resp chan error
}

type MetricsRequest struct {
	Resp chan Metrics
}

type Metrics struct {
	Turn            uint64 `json:"turn"`
	CommittedTurns  uint64 `json:"committed_turns"`
	Round           uint64 `json:"round"`
	Players         int    `json:"players"`
	ActiveSquads    int    `json:"active_squads"`
	LegionsAtTemple int    `json:"legions_at_temple"`
	TreasureClaimed uint16 `json:"treasure_claimed"`
}

// Game is a single-threaded authoritative engine. All state must be
// accessed only from the game loop goroutine; the channels below are the
// only way in.
type Game struct {
	cfg      Config
	catalogs *catalogs.Catalogs
	oracle   rng.Oracle
	custody  AssetCustody
	clock    Clock

	turn      atomic.Uint64
	committed uint64

	round   *RoundState
	players map[string]*PlayerState
	squads  map[uint64]*LegionSquad

	treasure        BoardTreasure
	legionsAtTemple int

	nextSquadID uint64
	nextTileID  uint64

	nextPlayerNum atomic.Uint64

	inbox    chan TurnEnvelope
	join     chan JoinRequest
	stateReq chan StateRequest
	cfgCh    chan ConfigUpdate
	metrics  chan MetricsRequest
	stop     chan struct{}

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	turnLogger  TurnLogger
	auditLogger AuditLogger

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.GameV1
}

func New(cfg Config, cats *catalogs.Catalogs, oracle rng.Oracle, custody AssetCustody, clock Clock) (*Game, error) {
	cfg.applyDefaults()
	if cats == nil || len(cats.Tiles.Defs) == 0 {
		return nil, fmt.Errorf("tile catalog is empty")
	}
	if oracle == nil {
		return nil, fmt.Errorf("randomness oracle is required")
	}
	if custody == nil {
		custody = NewMemoryCustody()
	}
	if clock == nil {
		clock = RealClock()
	}
	g := &Game{
		cfg:      cfg,
		catalogs: cats,
		oracle:   oracle,
		custody:  custody,
		clock:    clock,
		players:  map[string]*PlayerState{},
		squads:   map[uint64]*LegionSquad{},
		treasure: BoardTreasure{MaxSupply: uint16(cfg.TreasureMaxSupply)},
		inbox:    make(chan TurnEnvelope, 256),
		join:     make(chan JoinRequest, 64),
		stateReq: make(chan StateRequest, 64),
		cfgCh:    make(chan ConfigUpdate, 4),
		metrics:  make(chan MetricsRequest, 16),
		stop:     make(chan struct{}),
	}
	g.round = &RoundState{
		Round:     1,
		StartTime: clock.Now(),
		Request:   oracle.Request(),
	}
	return g, nil
}

func (g *Game) SetTurnLogger(l TurnLogger)                { g.turnLogger = l }
func (g *Game) SetAuditLogger(l AuditLogger)              { g.auditLogger = l }
func (g *Game) SetSnapshotSink(ch chan<- snapshot.GameV1) { g.snapshotSink = ch }

func (g *Game) Inbox() chan<- TurnEnvelope       { return g.inbox }
func (g *Game) Join() chan<- JoinRequest         { return g.join }
func (g *Game) StateReq() chan<- StateRequest    { return g.stateReq }
func (g *Game) ConfigCh() chan<- ConfigUpdate    { return g.cfgCh }
func (g *Game) MetricsCh() chan<- MetricsRequest { return g.metrics }

func (g *Game) CurrentTurn() uint64 { return g.turn.Load() }

func (g *Game) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-g.stop:
			return nil
		case req := <-g.join:
			g.handleJoin(req)
		case env := <-g.inbox:
			g.handleTurn(env)
		case req := <-g.stateReq:
			g.handleStateReq(req)
		case upd := <-g.cfgCh:
			g.handleConfigUpdate(upd)
		case req := <-g.metrics:
			g.handleMetrics(req)
		}
	}
}

func (g *Game) Stop() { close(g.stop) }

func (g *Game) handleTurn(env TurnEnvelope) {
	res := g.applyTurn(env.PlayerID, env.Turn)
	if res.OK {
		g.maybeSnapshot()
	}
	if env.Resp != nil {
		env.Resp <- res
	}
}

func (g *Game) handleMetrics(req MetricsRequest) {
	m := Metrics{
		Turn:            g.turn.Load(),
		CommittedTurns:  g.committed,
		Round:           g.round.Round,
		Players:         len(g.players),
		LegionsAtTemple: g.legionsAtTemple,
		TreasureClaimed: g.treasure.NumClaimed,
	}
	for _, s := range g.squads {
		if s.Alive {
			m.ActiveSquads++
		}
	}
	if req.Resp != nil {
		req.Resp <- m
	}
}

func (g *Game) handleConfigUpdate(upd ConfigUpdate) {
	cfg := upd.Cfg
	cfg.ID = g.cfg.ID
	cfg.applyDefaults()
	g.cfg = cfg
	g.treasure.MaxSupply = uint16(cfg.TreasureMaxSupply)
	// Hand and history bounds apply lazily: existing overfull hands and
	// rings shrink on the owner's next placement, never by force.
	if upd.Resp != nil {
		upd.Resp <- nil
	}
}

func (g *Game) maybeSnapshot() {
	if g.snapshotSink == nil || g.cfg.SnapshotEveryTurns <= 0 {
		return
	}
	if g.committed == 0 || g.committed%uint64(g.cfg.SnapshotEveryTurns) != 0 {
		return
	}
	snap := g.ExportSnapshot()
	select {
	case g.snapshotSink <- snap:
	default:
		// Drop snapshot if sink is backed up.
	}
}

func (g *Game) handleJoin(req JoinRequest) {
	if token := strings.TrimSpace(req.ResumeToken); token != "" {
		if resp, ok := g.resumePlayer(token); ok {
			if req.Resp != nil {
				req.Resp <- resp
			}
			return
		}
	}
	resp := g.joinPlayer(req.Name)
	if req.Resp != nil {
		req.Resp <- resp
	}
	if g.turnLogger != nil {
		entry := TurnLogEntry{
			Turn:   g.turn.Load(),
			Round:  g.round.Round,
			OK:     true,
			Joins:  []RecordedJoin{{PlayerID: resp.Welcome.PlayerID, Name: req.Name}},
			Digest: g.StateDigest(),
		}
		_ = g.turnLogger.WriteTurn(entry)
	}
}

// joinPlayer creates player state lazily on first contact. The grid
// starts empty; the entitlement clock is the shared round clock, so a
// late joiner sees the same pending-tile backlog any idle player would.
func (g *Game) joinPlayer(name string) JoinResponse {
	if name == "" {
		name = "player"
	}
	idNum := g.nextPlayerNum.Add(1)
	playerID := fmt.Sprintf("P%d", idNum)

	p := &PlayerState{
		ID:               playerID,
		Name:             name,
		Hand:             []MapTile{},
		History:          newTileRing(g.cfg.MaxOnBoard),
		TileCoords:       map[uint32]Coordinate{},
		LastClaimedEpoch: map[uint64]uint64{},
		RandRequest:      g.oracle.Request(),
	}
	p.ResumeToken = fmt.Sprintf("resume_%s_%d", g.cfg.ID, time.Now().UnixNano())
	g.players[playerID] = p

	w := g.welcomeFor(p)
	// Demo custody backends seed each joiner with starter assets so
	// squads can be staked out of the box. The ids are a pure function
	// of the player number, so resume and replay agree on them.
	if n := g.cfg.StarterAssets; n > 0 {
		if gr, ok := g.custody.(Granter); ok {
			ids := make([]uint64, n)
			for i := range ids {
				ids[i] = idNum*1_000_000 + uint64(i) + 1
			}
			gr.Grant(playerID, ids...)
			w.StarterAssetIDs = ids
		}
	}
	return JoinResponse{Welcome: w, Catalogs: g.catalogMsgs()}
}

func (g *Game) resumePlayer(token string) (JoinResponse, bool) {
	// Find player deterministically by iterating sorted ids.
	ids := make([]string, 0, len(g.players))
	for id := range g.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var p *PlayerState
	for _, id := range ids {
		pp := g.players[id]
		if pp != nil && pp.ResumeToken == token {
			p = pp
			break
		}
	}
	if p == nil {
		return JoinResponse{}, false
	}
	// Rotate token on successful resume.
	p.ResumeToken = fmt.Sprintf("resume_%s_%d", g.cfg.ID, time.Now().UnixNano())
	return JoinResponse{Welcome: g.welcomeFor(p), Catalogs: g.catalogMsgs()}, true
}

func (g *Game) welcomeFor(p *PlayerState) protocol.WelcomeMsg {
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		PlayerID:        p.ID,
		ResumeToken:     p.ResumeToken,
		GameParams: protocol.GameParams{
			GameID:       g.cfg.ID,
			BoardWidth:   BoardWidth,
			BoardHeight:  BoardHeight,
			Round:        g.round.Round,
			EpochSeconds: g.cfg.EpochSeconds,
			MaxHand:      g.cfg.MaxHand,
			MaxOnBoard:   g.cfg.MaxOnBoard,
		},
		Catalogs: protocol.Digests{
			TileArchetypes: protocol.DigestRef{
				Digest: g.catalogs.Tiles.Digest,
				Count:  len(g.catalogs.Tiles.Defs),
			},
		},
	}
}

func (g *Game) catalogMsgs() []protocol.CatalogMsg {
	return []protocol.CatalogMsg{
		{
			Type:            protocol.TypeCatalog,
			ProtocolVersion: protocol.Version,
			Name:            "tile_archetypes",
			Digest:          g.catalogs.Tiles.Digest,
			Data:            g.catalogs.Tiles.Defs,
		},
	}
}

func (g *Game) sortedPlayers() []*PlayerState {
	ids := make([]string, 0, len(g.players))
	for id := range g.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*PlayerState, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.players[id])
	}
	return out
}

func (g *Game) sortedSquads() []*LegionSquad {
	ids := make([]uint64, 0, len(g.squads))
	for id := range g.squads {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*LegionSquad, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.squads[id])
	}
	return out
}
