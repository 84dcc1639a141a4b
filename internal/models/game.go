package models

import (
	"time"

	"gorm.io/datatypes"
)

type MatchType string

const (
	MatchLeague     MatchType = "LEAGUE"
	MatchExhibition MatchType = "EXHIBITION"
	MatchTournament MatchType = "TOURNAMENT"
	MatchPlayoff    MatchType = "PLAYOFF"
)

type GameStatus string

const (
	GameScheduled  GameStatus = "SCHEDULED"
	GameInProgress GameStatus = "IN_PROGRESS"
	GameCompleted  GameStatus = "COMPLETED"
)

type Game struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	HomeTeamID uint       `gorm:"not null;index" json:"home_team_id"`
	AwayTeamID uint       `gorm:"not null;index" json:"away_team_id"`
	MatchType  MatchType  `gorm:"not null;index" json:"match_type"`
	Status     GameStatus `gorm:"not null;default:SCHEDULED;index" json:"status"`

	SeasonNumber int       `gorm:"not null;index" json:"season_number"`
	DayInSeason  int       `gorm:"not null;index" json:"day_in_season"`
	ScheduledAt  time.Time `gorm:"not null;index" json:"scheduled_at"`

	HomeScore int   `gorm:"not null;default:0" json:"home_score"`
	AwayScore int   `gorm:"not null;default:0" json:"away_score"`
	Seed      int64 `gorm:"not null;default:0" json:"seed"`
	Forfeit   bool  `gorm:"not null;default:false" json:"forfeit"`
	WinnerID  *uint `json:"winner_id,omitempty"`

	TournamentID *uint `gorm:"index" json:"tournament_id,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Game) TableName() string {
	return "games"
}

// RegulationSeconds is total regulation game time for the match type.
func (g *Game) RegulationSeconds() int {
	if g.MatchType == MatchExhibition {
		return 30 * 60
	}
	return 40 * 60
}

// OvertimeAllowed reports whether a tie at regulation goes to overtime.
func (g *Game) OvertimeAllowed() bool {
	return g.MatchType == MatchTournament || g.MatchType == MatchPlayoff
}

// GameEvent is one persisted row of the final event log.
type GameEvent struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	GameID     uint           `gorm:"not null;index" json:"game_id"`
	Tick       int            `gorm:"not null" json:"tick"`
	Type       string         `gorm:"not null" json:"type"`
	Payload    datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	Commentary string         `json:"commentary"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (GameEvent) TableName() string {
	return "game_events"
}

// PlayerGameStats is a player's aggregate line for one completed game.
type PlayerGameStats struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	GameID   uint `gorm:"not null;index" json:"game_id"`
	PlayerID uint `gorm:"not null;index" json:"player_id"`
	TeamID   uint `gorm:"not null;index" json:"team_id"`

	MinutesPlayed       int `gorm:"not null;default:0" json:"minutes_played"`
	PassAttempts        int `gorm:"not null;default:0" json:"pass_attempts"`
	PassCompletions     int `gorm:"not null;default:0" json:"pass_completions"`
	PassingYards        int `gorm:"not null;default:0" json:"passing_yards"`
	RushingYards        int `gorm:"not null;default:0" json:"rushing_yards"`
	Catches             int `gorm:"not null;default:0" json:"catches"`
	Drops               int `gorm:"not null;default:0" json:"drops"`
	Scores              int `gorm:"not null;default:0" json:"scores"`
	Tackles             int `gorm:"not null;default:0" json:"tackles"`
	KnockdownsInflicted int `gorm:"not null;default:0" json:"knockdowns_inflicted"`
	FumblesLost         int `gorm:"not null;default:0" json:"fumbles_lost"`

	CreatedAt time.Time `json:"created_at"`
}

func (PlayerGameStats) TableName() string {
	return "player_game_stats"
}

// TeamGameStats is a team's aggregate line for one completed game.
type TeamGameStats struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	GameID uint `gorm:"not null;index" json:"game_id"`
	TeamID uint `gorm:"not null;index" json:"team_id"`

	TotalYards        int `gorm:"not null;default:0" json:"total_yards"`
	PossessionSeconds int `gorm:"not null;default:0" json:"possession_seconds"`
	Turnovers         int `gorm:"not null;default:0" json:"turnovers"`
	Knockdowns        int `gorm:"not null;default:0" json:"knockdowns"`

	CreatedAt time.Time `json:"created_at"`
}

func (TeamGameStats) TableName() string {
	return "team_game_stats"
}
