package kartrumble

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"justapengu.in/kartrumble/internal/narrative"
	"justapengu.in/kartrumble/internal/race"
)

type fakeMessenger struct {
	mutex sync.Mutex

	nextID    int
	messages  []string
	embeds    []*discordgo.MessageEmbed
	edits     map[string]*discordgo.MessageEmbed
	reactions map[string][]string
	deleted   []string
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		edits:     make(map[string]*discordgo.MessageEmbed),
		reactions: make(map[string][]string),
	}
}

func (fm *fakeMessenger) message(channelID string) *discordgo.Message {
	fm.nextID++

	return &discordgo.Message{ID: fmt.Sprintf("message-%d", fm.nextID), ChannelID: channelID}
}

func (fm *fakeMessenger) ChannelMessageSend(channelID string, content string) (*discordgo.Message, error) {
	fm.mutex.Lock()
	defer fm.mutex.Unlock()

	fm.messages = append(fm.messages, content)

	return fm.message(channelID), nil
}

func (fm *fakeMessenger) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	fm.mutex.Lock()
	defer fm.mutex.Unlock()

	fm.embeds = append(fm.embeds, embed)

	return fm.message(channelID), nil
}

func (fm *fakeMessenger) ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	fm.mutex.Lock()
	defer fm.mutex.Unlock()

	fm.edits[messageID] = embed

	return &discordgo.Message{ID: messageID, ChannelID: channelID}, nil
}

func (fm *fakeMessenger) ChannelMessageDelete(channelID, messageID string) error {
	fm.mutex.Lock()
	defer fm.mutex.Unlock()

	fm.deleted = append(fm.deleted, messageID)

	return nil
}

func (fm *fakeMessenger) MessageReactionAdd(channelID, messageID, emojiID string) error {
	fm.mutex.Lock()
	defer fm.mutex.Unlock()

	fm.reactions[messageID] = append(fm.reactions[messageID], emojiID)

	return nil
}

func (fm *fakeMessenger) sent() []string {
	fm.mutex.Lock()
	defer fm.mutex.Unlock()

	return append([]string(nil), fm.messages...)
}

func newTestDiscordBot(t *testing.T) (*DiscordBot, *fakeMessenger, *RaceManager, *BoltStore) {
	t.Helper()

	store := newTestStore(t)
	manager := NewRaceManager(store, narrative.Default(), nil, race.DefaultTuning(), PacingConfig{})
	messenger := newFakeMessenger()

	bot := newDiscordBot(messenger, "!", manager, store, PacingConfig{MaxSkillsShown: 2})
	bot.sleep = func(time.Duration) {}

	manager.SetNotifier(bot)

	return bot, messenger, manager, store
}

func TestDiscordBot_RaceOpened(t *testing.T) {
	bot, messenger, manager, _ := newTestDiscordBot(t)

	session, err := manager.Open("guild-1", "channel-1")

	if err != nil {
		t.Fatal(err)
	}

	if len(messenger.embeds) != 1 {
		t.Fatalf("expected a join embed, got %d embeds", len(messenger.embeds))
	}

	messageID, ok := bot.joinMessageFor("channel-1")

	if !ok {
		t.Fatal("expected the join message to be tracked")
	}

	if reactions := messenger.reactions[messageID]; len(reactions) != len(race.DefaultStrategies) {
		t.Errorf("expected a reaction per strategy, got %v", reactions)
	}

	if _, err := manager.Join("channel-1", 1000, "Penguin", race.StrategyStartDash); err != nil {
		t.Fatal(err)
	}

	if edited, ok := messenger.edits[messageID]; !ok || !strings.Contains(edited.Description, "Racers so far: 1") {
		t.Errorf("expected the join message to show one racer, got %+v", edited)
	}

	if err := bot.OnRaceStarted(session); err != nil {
		t.Fatal(err)
	}

	if _, ok := bot.joinMessageFor("channel-1"); ok {
		t.Error("the join message should be closed once the race starts")
	}

	if closed := messenger.edits[messageID]; !strings.Contains(closed.Description, "closed") {
		t.Errorf("expected the join message to say entries are closed, got %q", closed.Description)
	}

	sent := messenger.sent()

	if len(sent) != 1 || !strings.HasPrefix(sent[0], "🎤 **Announcement**") {
		t.Errorf("expected the announcement, got %v", sent)
	}
}

func TestDiscordBot_OnLap(t *testing.T) {
	bot, messenger, manager, _ := newTestDiscordBot(t)

	session, err := manager.Open("guild-1", "channel-1")

	if err != nil {
		t.Fatal(err)
	}

	t.Run("Normal lap", func(t *testing.T) {
		messenger.messages = nil

		report := &race.LapReport{
			Lap:               3,
			ForcedElimination: []string{"setup", "result"},
			Revival:           []string{"revived"},
			Battles:           []string{"battle 1", "battle 2"},
			Skills:            []string{"skill 1", "skill 2", "skill 3"},
			ActiveCount:       4,
			EliminatedNames:   []string{"Bun"},
			SurvivorNames:     []string{"Hayate", "Road", "Roku", "Penguin"},
		}

		if err := bot.OnLap(session, report); err != nil {
			t.Fatal(err)
		}

		sent := messenger.sent()
		joined := strings.Join(sent, "\n")

		for _, expected := range []string{"LAP 3!", "**Accident!**", "setup", "result", "revived", "battle 2", "skill 2", "(...and 1 more showing off their skills!)", "LAP 3 RESULTS"} {
			if !strings.Contains(joined, expected) {
				t.Errorf("expected %q in the lap messages", expected)
			}
		}

		if strings.Contains(joined, "skill 3") {
			t.Error("skills beyond the cap should be summarised")
		}

		if strings.Contains(joined, quietLapMessage) {
			t.Error("a lap with battles is not quiet")
		}

		if !strings.HasPrefix(sent[len(sent)-1], "📊") {
			t.Errorf("expected the summary last, got %q", sent[len(sent)-1])
		}
	})

	t.Run("Quiet lap", func(t *testing.T) {
		messenger.messages = nil

		if err := bot.OnLap(session, &race.LapReport{Lap: 4, ActiveCount: 9}); err != nil {
			t.Fatal(err)
		}

		if joined := strings.Join(messenger.sent(), "\n"); !strings.Contains(joined, quietLapMessage) {
			t.Errorf("expected the quiet lap message, got %q", joined)
		}
	})

	t.Run("Final duel", func(t *testing.T) {
		messenger.messages = nil

		report := &race.LapReport{
			Lap:         5,
			FinalDuel:   true,
			Duel:        []string{"beat 1", "beat 2"},
			DuelOutcome: "Hayate wins!",
			Finished:    true,
		}

		if err := bot.OnLap(session, report); err != nil {
			t.Fatal(err)
		}

		sent := messenger.sent()

		if sent[len(sent)-1] != "**Hayate wins!**" {
			t.Errorf("expected the duel outcome last, got %q", sent[len(sent)-1])
		}

		if strings.Contains(strings.Join(sent, "\n"), "RESULTS") {
			t.Error("the final duel has no lap summary")
		}
	})
}

func TestDiscordBot_OnRaceCancelled(t *testing.T) {
	tests := []struct {
		reason   error
		expected string
	}{
		{reason: ErrNoParticipants, expected: "Nobody joined"},
		{reason: ErrRaceCancelled, expected: "cancelled"},
		{reason: context.Canceled, expected: "stopped"},
	}

	for _, test := range tests {
		t.Run(test.reason.Error(), func(t *testing.T) {
			bot, messenger, manager, _ := newTestDiscordBot(t)

			session, err := manager.Open("guild-1", "channel-1")

			if err != nil {
				t.Fatal(err)
			}

			if err := bot.OnRaceCancelled(session, test.reason); err != nil {
				t.Fatal(err)
			}

			sent := messenger.sent()

			if len(sent) != 1 || !strings.Contains(sent[0], test.expected) {
				t.Errorf("expected a message containing %q, got %v", test.expected, sent)
			}
		})
	}
}

func TestDiscordBot_ResetRankings(t *testing.T) {
	bot, messenger, _, store := newTestDiscordBot(t)

	if _, err := store.AddPoints("guild-1", "1000", 10); err != nil {
		t.Fatal(err)
	}

	bot.requestReset("guild-1", "channel-1", "admin")

	bot.mutex.Lock()
	var messageID string
	var request resetRequest

	for id, r := range bot.resetRequests {
		messageID, request = id, r
	}
	bot.mutex.Unlock()

	if messageID == "" {
		t.Fatal("expected a pending reset request")
	}

	if reactions := messenger.reactions[messageID]; len(reactions) != 2 {
		t.Errorf("expected confirm and cancel reactions, got %v", reactions)
	}

	bot.confirmReset("channel-1", messageID, "someone-else", confirmEmoji, request)

	if _, err := store.LoadPlayerPoints("guild-1", "1000"); err != nil {
		t.Fatal("only the requesting user can confirm a reset")
	}

	bot.confirmReset("channel-1", messageID, "admin", confirmEmoji, request)

	if _, err := store.LoadPlayerPoints("guild-1", "1000"); err != ErrPlayerNotFound {
		t.Errorf("expected the rankings to be reset, got %v", err)
	}

	sent := messenger.sent()

	if last := sent[len(sent)-1]; !strings.Contains(last, "1 players removed") {
		t.Errorf("expected the reset to be confirmed, got %q", last)
	}

	bot.mutex.Lock()
	pending := len(bot.resetRequests)
	bot.mutex.Unlock()

	if pending != 0 {
		t.Error("the reset request should be cleared once answered")
	}
}

func TestDiscordBot_ResetRankingsCancelled(t *testing.T) {
	bot, messenger, _, store := newTestDiscordBot(t)

	if _, err := store.AddPoints("guild-1", "1000", 10); err != nil {
		t.Fatal(err)
	}

	request := resetRequest{guildID: "guild-1", userID: "admin", expires: time.Now().Add(time.Minute)}
	bot.resetRequests["message-1"] = request

	bot.confirmReset("channel-1", "message-1", "admin", cancelEmoji, request)

	if _, err := store.LoadPlayerPoints("guild-1", "1000"); err != nil {
		t.Errorf("a cancelled reset should keep the rankings, got %v", err)
	}

	if sent := messenger.sent(); len(sent) != 1 || !strings.Contains(sent[0], "cancelled") {
		t.Errorf("expected a cancellation message, got %v", sent)
	}
}
