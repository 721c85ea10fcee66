package kartrumble

import (
	"encoding/binary"
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"
)

var (
	guildsBucketName  = []byte("guilds")
	pointsBucketName  = []byte("points")
	historyBucketName = []byte("history")
	racesBucketName   = []byte("races")
)

// BoltStore keeps one bucket per guild, holding point totals keyed by player, the point history
// keyed by sequence and race records keyed by ID.
type BoltStore struct {
	db *bbolt.DB

	now func() time.Time
}

func NewBoltStore(path string) (*BoltStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrNoStorePath
	}

	db, err := bbolt.Open(filepath.Clean(path), 0600, &bbolt.Options{Timeout: time.Second})

	if err != nil {
		return nil, errors.Wrapf(err, "could not open store %s", path)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(guildsBucketName)

		return err
	})

	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "could not create guilds bucket")
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

func (bs *BoltStore) Close() error {
	return bs.db.Close()
}

func (bs *BoltStore) guildBucket(tx *bbolt.Tx, guildID string, create bool) (*bbolt.Bucket, error) {
	guilds := tx.Bucket(guildsBucketName)

	if !create {
		return guilds.Bucket([]byte(guildID)), nil
	}

	guild, err := guilds.CreateBucketIfNotExists([]byte(guildID))

	if err != nil {
		return nil, err
	}

	for _, name := range [][]byte{pointsBucketName, historyBucketName, racesBucketName} {
		if _, err := guild.CreateBucketIfNotExists(name); err != nil {
			return nil, err
		}
	}

	return guild, nil
}

func (bs *BoltStore) AddPoints(guildID, playerKey string, points int) (*PlayerPoints, error) {
	if guildID == "" {
		return nil, ErrInvalidGuildID
	}

	if playerKey == "" {
		return nil, ErrInvalidPlayerKey
	}

	var player *PlayerPoints

	err := bs.db.Update(func(tx *bbolt.Tx) error {
		guild, err := bs.guildBucket(tx, guildID, true)

		if err != nil {
			return err
		}

		pointsBucket := guild.Bucket(pointsBucketName)
		player = &PlayerPoints{PlayerKey: playerKey, GuildID: guildID}

		if data := pointsBucket.Get([]byte(playerKey)); data != nil {
			if err := json.Unmarshal(data, player); err != nil {
				return err
			}
		}

		now := bs.now()

		player.Points += points
		player.TotalGames++
		player.LastUpdated = now

		data, err := json.Marshal(player)

		if err != nil {
			return err
		}

		if err := pointsBucket.Put([]byte(playerKey), data); err != nil {
			return err
		}

		history := guild.Bucket(historyBucketName)

		seq, err := history.NextSequence()

		if err != nil {
			return err
		}

		entry, err := json.Marshal(&PointHistory{
			PlayerKey:    playerKey,
			GuildID:      guildID,
			PointsEarned: points,
			TotalPoints:  player.Points,
			GameNumber:   player.TotalGames,
			Timestamp:    now,
		})

		if err != nil {
			return err
		}

		return history.Put(sequenceKey(seq), entry)
	})

	if err != nil {
		return nil, errors.Wrapf(err, "could not add points for %s in guild %s", playerKey, guildID)
	}

	logrus.Debugf("Added %d points to %s in guild %s, new total: %d", points, playerKey, guildID, player.Points)

	return player, nil
}

func (bs *BoltStore) LoadPlayerPoints(guildID, playerKey string) (*PlayerPoints, error) {
	var player *PlayerPoints

	err := bs.db.View(func(tx *bbolt.Tx) error {
		guild, _ := bs.guildBucket(tx, guildID, false)

		if guild == nil {
			return ErrPlayerNotFound
		}

		data := guild.Bucket(pointsBucketName).Get([]byte(playerKey))

		if data == nil {
			return ErrPlayerNotFound
		}

		player = new(PlayerPoints)

		return json.Unmarshal(data, player)
	})

	return player, err
}

func (bs *BoltStore) PointHistory(guildID, playerKey string) ([]*PointHistory, error) {
	var history []*PointHistory

	err := bs.forEachHistory(guildID, func(entry *PointHistory) {
		if entry.PlayerKey == playerKey {
			history = append(history, entry)
		}
	})

	return history, err
}

func (bs *BoltStore) forEachHistory(guildID string, fn func(entry *PointHistory)) error {
	return bs.db.View(func(tx *bbolt.Tx) error {
		guild, _ := bs.guildBucket(tx, guildID, false)

		if guild == nil {
			return nil
		}

		return guild.Bucket(historyBucketName).ForEach(func(_, v []byte) error {
			var entry PointHistory

			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}

			fn(&entry)

			return nil
		})
	})
}

// Rankings orders players by points. Weekly and monthly rankings sum the point history within
// the period, all time rankings use the running totals.
func (bs *BoltStore) Rankings(guildID string, period RankingPeriod, limit int) ([]Ranking, error) {
	if limit <= 0 {
		limit = DefaultRankingLimit
	}

	totals := make(map[string]int)

	switch period {
	case RankingWeekly, RankingMonthly:
		since := period.Since(bs.now())

		err := bs.forEachHistory(guildID, func(entry *PointHistory) {
			if !entry.Timestamp.Before(since) {
				totals[entry.PlayerKey] += entry.PointsEarned
			}
		})

		if err != nil {
			return nil, err
		}
	case RankingAll:
		err := bs.db.View(func(tx *bbolt.Tx) error {
			guild, _ := bs.guildBucket(tx, guildID, false)

			if guild == nil {
				return nil
			}

			return guild.Bucket(pointsBucketName).ForEach(func(k, v []byte) error {
				var player PlayerPoints

				if err := json.Unmarshal(v, &player); err != nil {
					return err
				}

				totals[string(k)] = player.Points

				return nil
			})
		})

		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrInvalidRankingPeriod
	}

	rankings := make([]Ranking, 0, len(totals))

	for key, points := range totals {
		rankings = append(rankings, Ranking{PlayerKey: key, Points: points})
	}

	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].Points == rankings[j].Points {
			return rankings[i].PlayerKey < rankings[j].PlayerKey
		}

		return rankings[i].Points > rankings[j].Points
	})

	if len(rankings) > limit {
		rankings = rankings[:limit]
	}

	for i := range rankings {
		rankings[i].Position = i + 1
	}

	return rankings, nil
}

func (bs *BoltStore) ResetRankings(guildID string) (int, error) {
	var deleted int

	err := bs.db.Update(func(tx *bbolt.Tx) error {
		guild, _ := bs.guildBucket(tx, guildID, false)

		if guild == nil {
			return nil
		}

		deleted = guild.Bucket(pointsBucketName).Stats().KeyN

		for _, name := range [][]byte{pointsBucketName, historyBucketName} {
			if err := guild.DeleteBucket(name); err != nil {
				return err
			}

			if _, err := guild.CreateBucket(name); err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return 0, errors.Wrapf(err, "could not reset rankings for guild %s", guildID)
	}

	logrus.Infof("Reset rankings for guild %s, removed %d players", guildID, deleted)

	return deleted, nil
}

func (bs *BoltStore) UpsertRaceRecord(record *RaceRecord) error {
	if record.ID == "" {
		return ErrInvalidRaceRecordID
	}

	if record.GuildID == "" {
		return ErrInvalidGuildID
	}

	data, err := json.Marshal(record)

	if err != nil {
		return err
	}

	return bs.db.Update(func(tx *bbolt.Tx) error {
		guild, err := bs.guildBucket(tx, record.GuildID, true)

		if err != nil {
			return err
		}

		return guild.Bucket(racesBucketName).Put([]byte(record.ID), data)
	})
}

// ListRaceRecords returns a guild's races, most recent first.
func (bs *BoltStore) ListRaceRecords(guildID string, limit int) ([]*RaceRecord, error) {
	var records []*RaceRecord

	err := bs.db.View(func(tx *bbolt.Tx) error {
		guild, _ := bs.guildBucket(tx, guildID, false)

		if guild == nil {
			return nil
		}

		return guild.Bucket(racesBucketName).ForEach(func(_, v []byte) error {
			record := new(RaceRecord)

			if err := json.Unmarshal(v, record); err != nil {
				return err
			}

			records = append(records, record)

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}

func sequenceKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)

	return b
}
