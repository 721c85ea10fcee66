package kartrumble

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-http-utils/etag"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const maxRankingLimit = 100

// HTTP serves the JSON API, the live race feed and operational endpoints.
type HTTP struct {
	server *http.Server

	hostname string
	manager  *RaceManager
	store    Store
	liveFeed *LiveFeed
	debugger *Debugger
}

// NewHTTP creates the HTTP server. A nil debugger disables /debug/bundle.
func NewHTTP(hostname string, manager *RaceManager, store Store, liveFeed *LiveFeed, debugger *Debugger) *HTTP {
	return &HTTP{
		hostname: hostname,
		manager:  manager,
		store:    store,
		liveFeed: liveFeed,
		debugger: debugger,
	}
}

func (h *HTTP) Listen() error {
	logrus.Infof("HTTP server listening on: %s", h.hostname)

	h.server = &http.Server{
		Handler: h.Router(),
		Addr:    h.hostname,
	}

	go func() {
		err := h.server.ListenAndServe()

		if err == http.ErrServerClosed {
			return
		} else if err != nil {
			logrus.WithError(err).Errorf("Could not start HTTP server")
		}
	}()

	return nil
}

func (h *HTTP) Shutdown(ctx context.Context) error {
	if h.server == nil {
		return nil
	}

	return h.server.Shutdown(ctx)
}

func (h *HTTP) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/healthcheck", h.HealthCheck)
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Method(http.MethodGet, "/rankings/{guildID}", etag.Handler(http.HandlerFunc(h.Rankings), false))
			r.Get("/races", h.ActiveRaces)
			r.Method(http.MethodGet, "/races/history/{guildID}", etag.Handler(http.HandlerFunc(h.RaceHistory), false))
		})

		if h.liveFeed != nil {
			r.Handle("/races/{channelID}/live", h.liveFeed)
		}
	})

	if h.debugger != nil {
		router.Handle("/debug/bundle", h.debugger)
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		logrus.Debugf("Could not find HTTP response for URL: %s", r.URL.String())

		http.NotFound(w, r)
	})

	return router
}

type healthCheckResponse struct {
	OK          bool      `json:"ok"`
	ActiveRaces int       `json:"active_races"`
	Time        time.Time `json:"time"`
}

func (h *HTTP) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthCheckResponse{
		OK:          true,
		ActiveRaces: len(h.manager.Active()),
		Time:        time.Now(),
	})
}

type rankingsResponse struct {
	GuildID  string        `json:"guild_id"`
	Period   RankingPeriod `json:"period"`
	Rankings []rankingJSON `json:"rankings"`
}

type rankingJSON struct {
	Position  int    `json:"position"`
	PlayerKey string `json:"player_key"`
	Name      string `json:"name,omitempty"`
	Points    int    `json:"points"`
}

func (h *HTTP) Rankings(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	period, err := ParseRankingPeriod(r.URL.Query().Get("period"))

	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	limit, err := queryLimit(r, DefaultRankingLimit)

	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rankings, err := h.store.Rankings(guildID, period, limit)

	if err != nil {
		logrus.WithError(err).Errorf("Could not load rankings for guild %s", guildID)
		writeError(w, statusForStoreError(err), err)
		return
	}

	resp := rankingsResponse{GuildID: guildID, Period: period, Rankings: make([]rankingJSON, 0, len(rankings))}

	for _, ranking := range rankings {
		name, _ := ranking.ComputerName()

		resp.Rankings = append(resp.Rankings, rankingJSON{
			Position:  ranking.Position,
			PlayerKey: ranking.PlayerKey,
			Name:      name,
			Points:    ranking.Points,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTP) ActiveRaces(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Active())
}

func (h *HTTP) RaceHistory(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	limit, err := queryLimit(r, 10)

	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	records, err := h.store.ListRaceRecords(guildID, limit)

	if err != nil {
		logrus.WithError(err).Errorf("Could not load race history for guild %s", guildID)
		writeError(w, statusForStoreError(err), err)
		return
	}

	if records == nil {
		records = []*RaceRecord{}
	}

	writeJSON(w, http.StatusOK, records)
}

var errInvalidLimit = errors.New("kartrumble: limit must be between 1 and 100")

func queryLimit(r *http.Request, def int) (int, error) {
	s := r.URL.Query().Get("limit")

	if s == "" {
		return def, nil
	}

	limit, err := strconv.Atoi(s)

	if err != nil || limit < 1 || limit > maxRankingLimit {
		return 0, errInvalidLimit
	}

	return limit, nil
}

func statusForStoreError(err error) int {
	switch errors.Cause(err) {
	case ErrInvalidGuildID, ErrInvalidRankingPeriod:
		return http.StatusBadRequest
	case ErrPlayerNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(data); err != nil {
		logrus.WithError(err).Error("Could not encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
