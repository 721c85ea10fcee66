package kartrumble

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"justapengu.in/kartrumble/internal/race"
)

const (
	liveFeedWriteWait  = 10 * time.Second
	liveFeedPongWait   = 60 * time.Second
	liveFeedPingPeriod = 25 * time.Second
	liveFeedBufferSize = 32
)

var liveFeedUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveFeedMessage is sent to websocket subscribers of a channel's race.
type LiveFeedMessage struct {
	Type      string          `json:"type"`
	ChannelID string          `json:"channel_id"`
	Race      *RaceSummary    `json:"race,omitempty"`
	Lap       *race.LapReport `json:"lap,omitempty"`
	Result    *RaceRecord     `json:"result,omitempty"`
	Reason    string          `json:"reason,omitempty"`
}

type liveFeedSubscriber struct {
	send chan []byte
	once sync.Once
}

func (s *liveFeedSubscriber) close() {
	s.once.Do(func() {
		close(s.send)
	})
}

// LiveFeed streams race progress to websocket clients, grouped by channel.
type LiveFeed struct {
	mutex       sync.Mutex
	subscribers map[string]map[*liveFeedSubscriber]bool
}

func NewLiveFeed() *LiveFeed {
	return &LiveFeed{
		subscribers: make(map[string]map[*liveFeedSubscriber]bool),
	}
}

func (lf *LiveFeed) subscribe(channelID string) *liveFeedSubscriber {
	lf.mutex.Lock()
	defer lf.mutex.Unlock()

	sub := &liveFeedSubscriber{send: make(chan []byte, liveFeedBufferSize)}

	if lf.subscribers[channelID] == nil {
		lf.subscribers[channelID] = make(map[*liveFeedSubscriber]bool)
	}

	lf.subscribers[channelID][sub] = true

	return sub
}

func (lf *LiveFeed) unsubscribe(channelID string, sub *liveFeedSubscriber) {
	lf.mutex.Lock()
	defer lf.mutex.Unlock()

	if subs, ok := lf.subscribers[channelID]; ok {
		delete(subs, sub)

		if len(subs) == 0 {
			delete(lf.subscribers, channelID)
		}
	}

	sub.close()
}

// Subscribers returns the number of clients watching a channel.
func (lf *LiveFeed) Subscribers(channelID string) int {
	lf.mutex.Lock()
	defer lf.mutex.Unlock()

	return len(lf.subscribers[channelID])
}

func (lf *LiveFeed) broadcast(msg LiveFeedMessage) error {
	data, err := json.Marshal(msg)

	if err != nil {
		return err
	}

	lf.mutex.Lock()
	defer lf.mutex.Unlock()

	for sub := range lf.subscribers[msg.ChannelID] {
		select {
		case sub.send <- data:
		default:
			// slow client, drop it
			delete(lf.subscribers[msg.ChannelID], sub)
			sub.close()
		}
	}

	return nil
}

func (lf *LiveFeed) summaryMessage(kind string, session *RaceSession) LiveFeedMessage {
	summary := session.Summary()

	return LiveFeedMessage{Type: kind, ChannelID: session.ChannelID, Race: &summary}
}

func (lf *LiveFeed) OnRaceOpened(session *RaceSession) error {
	return lf.broadcast(lf.summaryMessage("opened", session))
}

func (lf *LiveFeed) OnParticipantJoined(session *RaceSession, _ *race.Participant) error {
	return lf.broadcast(lf.summaryMessage("joined", session))
}

func (lf *LiveFeed) OnRaceStarted(session *RaceSession) error {
	return lf.broadcast(lf.summaryMessage("started", session))
}

func (lf *LiveFeed) OnLap(session *RaceSession, report *race.LapReport) error {
	return lf.broadcast(LiveFeedMessage{Type: "lap", ChannelID: session.ChannelID, Lap: report})
}

func (lf *LiveFeed) OnRaceFinished(session *RaceSession, record *RaceRecord) error {
	return lf.broadcast(LiveFeedMessage{Type: "finished", ChannelID: session.ChannelID, Result: record})
}

func (lf *LiveFeed) OnRaceCancelled(session *RaceSession, reason error) error {
	msg := LiveFeedMessage{Type: "cancelled", ChannelID: session.ChannelID}

	if reason != nil {
		msg.Reason = reason.Error()
	}

	return lf.broadcast(msg)
}

// ServeHTTP upgrades the request and streams the race in the {channelID} URL parameter.
func (lf *LiveFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")

	conn, err := liveFeedUpgrader.Upgrade(w, r, nil)

	if err != nil {
		logrus.WithError(err).Debug("Could not upgrade live feed connection")
		return
	}

	defer conn.Close()

	sub := lf.subscribe(channelID)
	defer lf.unsubscribe(channelID, sub)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(liveFeedPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(liveFeedPongWait))
	})

	done := make(chan struct{})

	go func() {
		defer close(done)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(liveFeedPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(liveFeedWriteWait))

			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(liveFeedWriteWait))

			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
