package kartrumble

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"justapengu.in/kartrumble/internal/race"
)

const debugBundleRaceHistory = 20

// Debugger builds a zip of the running races, recent results, config and logs.
type Debugger struct {
	manager *RaceManager
	store   Store
	config  *Configuration
}

func NewDebugger(manager *RaceManager, store Store, config *Configuration) *Debugger {
	return &Debugger{manager: manager, store: store, config: config}
}

func (d *Debugger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Disposition", fmt.Sprintf(`attachment;filename="kartrumble_debug_bundle_%s.zip"`, time.Now().Format("2006-01-02_15_04")))
	w.Header().Add("Content-Type", "application/zip")

	if err := d.BuildDebugInfo(w, r.URL.Query().Get("guild")); err != nil {
		logrus.WithError(err).Error("Could not build debug information")
		http.Error(w, "Could not build debug information", http.StatusInternalServerError)
		return
	}
}

// BuildDebugInfo writes the bundle to w. Race history is only included when guildID is set.
func (d *Debugger) BuildDebugInfo(w io.Writer, guildID string) (err error) {
	z := zip.NewWriter(w)
	defer func() {
		closeErr := z.Close()

		if err == nil {
			err = closeErr
		}
	}()

	active := d.manager.Active()
	snapshots := make(map[string]race.Snapshot, len(active))

	for _, summary := range active {
		if session, ok := d.manager.Get(summary.ChannelID); ok {
			snapshots[summary.ChannelID] = session.Snapshot()
		}
	}

	if err := d.addJSONFileToZip(z, "active_races.json", active); err != nil {
		return err
	}

	if err := d.addJSONFileToZip(z, "race_snapshots.json", snapshots); err != nil {
		return err
	}

	if guildID != "" {
		records, err := d.store.ListRaceRecords(guildID, debugBundleRaceHistory)

		if err != nil {
			logrus.WithError(err).Warnf("Could not load race history for guild %s", guildID)
		}

		if err := d.addJSONFileToZip(z, "race_history.json", records); err != nil {
			return err
		}
	}

	if d.config != nil {
		c := *d.config
		c.Discord.Token = "_redacted_"
		c.Sentry.DSN = "_redacted_"

		if err := d.addJSONFileToZip(z, "kartrumble_config.json", c); err != nil {
			return err
		}
	}

	if err := d.addLogsToZip(z, "manager.log", logOutput.String()); err != nil {
		return err
	}

	return nil
}

func (d *Debugger) addJSONFileToZip(z *zip.Writer, filename string, data interface{}) error {
	f, err := z.Create(filename)

	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")

	return enc.Encode(data)
}

func (d *Debugger) addLogsToZip(z *zip.Writer, filename string, data string) error {
	f, err := z.Create(filename)

	if err != nil {
		return err
	}

	_, err = f.Write([]byte(data))

	return err
}
