package kartrumble

import (
	"testing"

	"github.com/pkg/errors"
)

type failingStore struct {
	Store

	failKey string
	added   []string
}

func (fs *failingStore) AddPoints(guildID, playerKey string, points int) (*PlayerPoints, error) {
	if playerKey == fs.failKey {
		return nil, errors.New("disk on fire")
	}

	fs.added = append(fs.added, playerKey)

	return &PlayerPoints{GuildID: guildID, PlayerKey: playerKey, Points: points}, nil
}

func TestPointsSink_SavePoints(t *testing.T) {
	store := newTestStore(t)
	sink := NewPointsSink(store)

	awards := map[string]int{"1000": 10, "CPU_2": 7, "CPU_3": 2}

	if err := sink.SavePoints("guild-1", awards); err != nil {
		t.Fatal(err)
	}

	for key, points := range awards {
		player, err := store.LoadPlayerPoints("guild-1", key)

		if err != nil {
			t.Fatal(err)
		}

		if player.Points != points {
			t.Errorf("%s: expected %d points, got %d", key, points, player.Points)
		}
	}
}

func TestPointsSink_SavePointsContinuesPastFailures(t *testing.T) {
	store := &failingStore{failKey: "CPU_1"}
	sink := NewPointsSink(store)

	err := sink.SavePoints("guild-1", map[string]int{"1000": 10, "CPU_1": 7, "CPU_2": 2})

	if err == nil {
		t.Fatal("expected an error")
	}

	if len(store.added) != 2 || store.added[0] != "1000" || store.added[1] != "CPU_2" {
		t.Errorf("expected the other awards to be saved in key order, got %v", store.added)
	}
}
