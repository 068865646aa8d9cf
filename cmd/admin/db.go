package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	gameID := fs.String("game", "", "game id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	turn := fs.Uint64("turn", 0, "turn filter (audits; defaults to latest turn)")
	limit := fs.Int("limit", 20, "result limit")
	playerID := fs.String("player", "", "player_id filter (turns, audits)")
	action := fs.String("action", "", "action filter (audits)")
	_ = fs.Parse(args)

	q := "turns"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*gameID) == "" {
			fmt.Fprintln(os.Stderr, "missing -game or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "games", *gameID, "index.db")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if *limit <= 0 {
		*limit = 20
	}

	switch q {
	case "turns":
		sqlq := `SELECT turn,player_id,round,ok,code,moves,digest FROM turns ORDER BY turn DESC LIMIT ?`
		qargs := []any{*limit}
		if strings.TrimSpace(*playerID) != "" {
			sqlq = `SELECT turn,player_id,round,ok,code,moves,digest FROM turns WHERE player_id=? ORDER BY turn DESC LIMIT ?`
			qargs = []any{strings.TrimSpace(*playerID), *limit}
		}
		rows, err := db.Query(sqlq, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Turn     uint64         `json:"turn"`
				PlayerID string         `json:"player_id"`
				Round    uint64         `json:"round"`
				OK       bool           `json:"ok"`
				Code     sql.NullString `json:"code"`
				Moves    int            `json:"moves"`
				Digest   sql.NullString `json:"digest"`
			}
			if err := rows.Scan(&r.Turn, &r.PlayerID, &r.Round, &r.OK, &r.Code, &r.Moves, &r.Digest); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "joins":
		rows, err := db.Query(`SELECT turn,player_id,name FROM joins ORDER BY turn DESC LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Turn     uint64 `json:"turn"`
				PlayerID string `json:"player_id"`
				Name     string `json:"name"`
			}
			if err := rows.Scan(&r.Turn, &r.PlayerID, &r.Name); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "audits":
		sqlq := `SELECT turn,seq,actor,action,round,squad_id,tile_id,x,y,count FROM audits`
		var conds []string
		var qargs []any
		if *turn == 0 {
			lt, err := latestIndexedTurn(db)
			if err != nil {
				fmt.Fprintln(os.Stderr, "latest turn:", err)
				os.Exit(1)
			}
			*turn = lt
		}
		conds = append(conds, "turn=?")
		qargs = append(qargs, *turn)
		if strings.TrimSpace(*playerID) != "" {
			conds = append(conds, "actor=?")
			qargs = append(qargs, strings.TrimSpace(*playerID))
		}
		if strings.TrimSpace(*action) != "" {
			conds = append(conds, "action=?")
			qargs = append(qargs, strings.TrimSpace(*action))
		}
		sqlq += " WHERE " + strings.Join(conds, " AND ") + " ORDER BY seq LIMIT ?"
		qargs = append(qargs, *limit)
		rows, err := db.Query(sqlq, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Turn    uint64 `json:"turn"`
				Seq     int    `json:"seq"`
				Actor   string `json:"actor"`
				Action  string `json:"action"`
				Round   uint64 `json:"round"`
				SquadID uint64 `json:"squad_id,omitempty"`
				TileID  uint64 `json:"tile_id,omitempty"`
				X       int    `json:"x"`
				Y       int    `json:"y"`
				Count   int    `json:"count,omitempty"`
			}
			if err := rows.Scan(&r.Turn, &r.Seq, &r.Actor, &r.Action, &r.Round, &r.SquadID, &r.TileID, &r.X, &r.Y, &r.Count); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "snapshots":
		rows, err := db.Query(`SELECT turn,path,round,players,squads FROM snapshots ORDER BY turn DESC LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Turn    uint64 `json:"turn"`
				Path    string `json:"path"`
				Round   uint64 `json:"round"`
				Players int    `json:"players"`
				Squads  int    `json:"squads"`
			}
			if err := rows.Scan(&r.Turn, &r.Path, &r.Round, &r.Players, &r.Squads); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "rounds":
		rows, err := db.Query(`SELECT round,end_turn,recorded_at FROM rounds ORDER BY round DESC LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Round      uint64 `json:"round"`
				EndTurn    uint64 `json:"end_turn"`
				RecordedAt string `json:"recorded_at"`
			}
			if err := rows.Scan(&r.Round, &r.EndTurn, &r.RecordedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "catalogs":
		rows, err := db.Query(`SELECT name,digest,updated_at FROM catalogs ORDER BY name`)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Name      string `json:"name"`
				Digest    string `json:"digest"`
				UpdatedAt string `json:"updated_at"`
			}
			if err := rows.Scan(&r.Name, &r.Digest, &r.UpdatedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data] [-game GAME|-db PATH] [-turn T] [-player P] [-action A] turns|joins|audits|snapshots|rounds|catalogs")
		os.Exit(2)
	}
}

func latestIndexedTurn(db *sql.DB) (uint64, error) {
	if db == nil {
		return 0, fmt.Errorf("nil db")
	}
	var t int64
	if err := db.QueryRow(`SELECT COALESCE(MAX(turn),0) FROM audits`).Scan(&t); err != nil {
		return 0, err
	}
	if t < 0 {
		return 0, nil
	}
	return uint64(t), nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
