package models

import (
	"fmt"
	"strings"
	"time"
)

// GameLogEntry is one historical box-score line for a player. At most one
// entry exists per (player name, game date).
type GameLogEntry struct {
	ID         int64     `json:"id,omitempty"`
	PlayerName string    `json:"player_name"`
	GameDate   time.Time `json:"game_date"`
	Opponent   string    `json:"opponent"`
	Points     float64   `json:"points"`
	Assists    float64   `json:"assists"`
	Rebounds   float64   `json:"rebounds"`
	Minutes    float64   `json:"minutes"`
	FGM        float64   `json:"fgm"`
	FGA        float64   `json:"fga"`
	FTM        float64   `json:"ftm"`
	FTA        float64   `json:"fta"`
	Steals     float64   `json:"steals"`
	Blocks     float64   `json:"blocks"`
	Turnovers  float64   `json:"turnovers"`
	IsHome     bool      `json:"is_home"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// UpstreamGame is one element of GET /api/players/games. Both the short
// nba_api keys (pts, ast, ...) and the long stats-service keys (points,
// assists, ...) are accepted.
type UpstreamGame struct {
	Date      string   `json:"date"`
	GameDate  string   `json:"gameDate"`
	Opponent  string   `json:"opponent"`
	Matchup   string   `json:"matchup"`
	IsHome    *bool    `json:"isHome"`
	Pts       *float64 `json:"pts"`
	Points    *float64 `json:"points"`
	Ast       *float64 `json:"ast"`
	Assists   *float64 `json:"assists"`
	Reb       *float64 `json:"reb"`
	Rebounds  *float64 `json:"rebounds"`
	Min       *float64 `json:"min"`
	FGM       *float64 `json:"fgm"`
	FGA       *float64 `json:"fga"`
	FTM       *float64 `json:"ftm"`
	FTA       *float64 `json:"fta"`
	Stl       *float64 `json:"stl"`
	Steals    *float64 `json:"steals"`
	Blk       *float64 `json:"blk"`
	Blocks    *float64 `json:"blocks"`
	Tov       *float64 `json:"tov"`
	Turnovers *float64 `json:"turnovers"`
}

// UnmarshalJSON accepts numbers encoded as JSON strings.
func (g *UpstreamGame) UnmarshalJSON(data []byte) error {
	type alias UpstreamGame
	return flexUnmarshal(data, (*alias)(g))
}

var gameDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"Jan 02, 2006",
	"Jan 2, 2006",
}

// ParseGameDate parses the date formats the stats service is known to emit.
// Month names are matched case-insensitively ("JAN 15, 2024").
func ParseGameDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range gameDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized game date %q", s)
}

// ToGameLogEntry converts an upstream game into a storable entry.
func (g UpstreamGame) ToGameLogEntry(playerName string) (GameLogEntry, error) {
	rawDate := g.Date
	if rawDate == "" {
		rawDate = g.GameDate
	}
	date, err := ParseGameDate(rawDate)
	if err != nil {
		return GameLogEntry{}, err
	}

	opponent, isHome := g.Opponent, true
	if g.Matchup != "" {
		opp, home := parseMatchup(g.Matchup)
		if opponent == "" {
			opponent = opp
		}
		isHome = home
	}
	if g.IsHome != nil {
		isHome = *g.IsHome
	}
	if opponent == "" {
		opponent = "Unknown"
	}

	return GameLogEntry{
		PlayerName: playerName,
		GameDate:   date,
		Opponent:   opponent,
		Points:     firstOf(g.Pts, g.Points),
		Assists:    firstOf(g.Ast, g.Assists),
		Rebounds:   firstOf(g.Reb, g.Rebounds),
		Minutes:    floatOr(g.Min, 0),
		FGM:        floatOr(g.FGM, 0),
		FGA:        floatOr(g.FGA, 0),
		FTM:        floatOr(g.FTM, 0),
		FTA:        floatOr(g.FTA, 0),
		Steals:     firstOf(g.Stl, g.Steals),
		Blocks:     firstOf(g.Blk, g.Blocks),
		Turnovers:  firstOf(g.Tov, g.Turnovers),
		IsHome:     isHome,
	}, nil
}

// parseMatchup reads NBA matchup strings: "LAL vs. GSW" is a home game,
// "LAL @ GSW" an away game.
func parseMatchup(m string) (opponent string, home bool) {
	if _, opp, ok := strings.Cut(m, " @ "); ok {
		return strings.TrimSpace(opp), false
	}
	if _, opp, ok := strings.Cut(m, " vs. "); ok {
		return strings.TrimSpace(opp), true
	}
	return "", true
}

func firstOf(vals ...*float64) float64 {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return 0
}
