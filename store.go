package kartrumble

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"justapengu.in/kartrumble/internal/race"
)

const DefaultRankingLimit = 5

type Store interface {
	// AddPoints adds to a player's total, counts one more game and records the award in the
	// player's point history.
	AddPoints(guildID, playerKey string, points int) (*PlayerPoints, error)
	LoadPlayerPoints(guildID, playerKey string) (*PlayerPoints, error)
	PointHistory(guildID, playerKey string) ([]*PointHistory, error)
	Rankings(guildID string, period RankingPeriod, limit int) ([]Ranking, error)
	// ResetRankings deletes all points and history for a guild, returning how many players
	// were removed.
	ResetRankings(guildID string) (int, error)

	UpsertRaceRecord(record *RaceRecord) error
	ListRaceRecords(guildID string, limit int) ([]*RaceRecord, error)

	Close() error
}

var (
	ErrPlayerNotFound       = errors.New("kartrumble: player not found")
	ErrInvalidRankingPeriod = errors.New("kartrumble: ranking period must be one of weekly, monthly or all")
	ErrInvalidGuildID       = errors.New("kartrumble: guild id is required")
	ErrInvalidPlayerKey     = errors.New("kartrumble: player key is required")
	ErrInvalidRaceRecordID  = errors.New("kartrumble: race record id is required")
)

type PlayerPoints struct {
	PlayerKey   string    `json:"player_key"`
	GuildID     string    `json:"guild_id"`
	Points      int       `json:"points"`
	TotalGames  int       `json:"total_games"`
	LastUpdated time.Time `json:"last_updated"`
}

type PointHistory struct {
	PlayerKey    string    `json:"player_key"`
	GuildID      string    `json:"guild_id"`
	PointsEarned int       `json:"points_earned"`
	TotalPoints  int       `json:"total_points"`
	GameNumber   int       `json:"game_number"`
	Timestamp    time.Time `json:"timestamp"`
}

type RankingPeriod string

const (
	RankingWeekly  RankingPeriod = "weekly"
	RankingMonthly RankingPeriod = "monthly"
	RankingAll     RankingPeriod = "all"
)

var RankingPeriods = []RankingPeriod{RankingWeekly, RankingMonthly, RankingAll}

func ParseRankingPeriod(s string) (RankingPeriod, error) {
	switch period := RankingPeriod(strings.ToLower(strings.TrimSpace(s))); period {
	case "":
		return RankingAll, nil
	case RankingWeekly, RankingMonthly, RankingAll:
		return period, nil
	default:
		return "", ErrInvalidRankingPeriod
	}
}

// Since returns the start of the period, or the zero time for all time rankings.
func (p RankingPeriod) Since(now time.Time) time.Time {
	switch p {
	case RankingWeekly:
		return now.AddDate(0, 0, -7)
	case RankingMonthly:
		return now.AddDate(0, 0, -30)
	default:
		return time.Time{}
	}
}

type Ranking struct {
	Position  int    `json:"position"`
	PlayerKey string `json:"player_key"`
	Points    int    `json:"points"`
}

// ComputerName returns the roster name for computer keys.
func (r Ranking) ComputerName() (string, bool) {
	return race.ComputerName(r.PlayerKey)
}

// RaceRecord is the persisted summary of a race that ran to completion.
type RaceRecord struct {
	ID         string         `json:"id"`
	GuildID    string         `json:"guild_id"`
	ChannelID  string         `json:"channel_id"`
	Course     string         `json:"course"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Laps       int            `json:"laps"`
	Humans     int            `json:"humans"`
	Winner     string         `json:"winner,omitempty"`
	Second     string         `json:"second,omitempty"`
	Comeback   bool           `json:"comeback"`
	Aborted    bool           `json:"aborted"`
	Awards     map[string]int `json:"awards"`
}

func (r *RaceRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
