package narrative

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"justapengu.in/kartrumble/internal/race"
)

const defaultStrategyPhrase = "every racer's own skill"

type templateData struct {
	Winner string
	Loser  string
	Player string
	First  string
	Second string
	Names  []string

	Announcer string
	Course    string
	Strategy  string
}

// Narrator hands out text from a Library without repeating itself: a template is only reused
// once every other template in its pool has been used. A Narrator belongs to one contest.
type Narrator struct {
	library *Library
	rng     race.Random

	mu        sync.Mutex
	used      map[string]map[int]bool
	lastSetup string
}

func (l *Library) NewNarrator(rng race.Random) *Narrator {
	if rng == nil {
		rng = race.NewRandom(time.Now().UnixNano())
	}

	return &Narrator{
		library: l,
		rng:     rng,
		used:    make(map[string]map[int]bool),
	}
}

func (n *Narrator) Narrate(kind race.EventKind, participants ...*race.Participant) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	data := templateData{
		Names: make([]string, len(participants)),
	}

	for i, p := range participants {
		data.Names[i] = p.Name
	}

	pool := kind.String()

	switch kind {
	case race.EventOvertake, race.EventFinalDuelOutcome:
		data.Winner, data.Loser = nameAt(data.Names, 0), nameAt(data.Names, 1)
	case race.EventSkill, race.EventRevival:
		data.Player = nameAt(data.Names, 0)
	case race.EventFinalDuelBeat, race.EventFinalDuelClimax:
		data.First, data.Second = nameAt(data.Names, 0), nameAt(data.Names, 1)
	case race.EventComeback:
		data.Winner, data.First, data.Second = nameAt(data.Names, 0), nameAt(data.Names, 1), nameAt(data.Names, 2)
	case race.EventForcedEliminationSetup:
		pool = n.chooseSetup()
		n.lastSetup = pool
	case race.EventForcedEliminationResult:
		pool = poolAccidentResult

		if n.lastSetup == poolDistraction {
			pool = poolDistractionResult
		}

		n.lastSetup = ""
	}

	text, ok := n.render(pool, data)

	if !ok {
		return fallback(kind, data.Names)
	}

	return text
}

func (n *Narrator) chooseSetup() string {
	var variants []string

	for _, pool := range []string{poolDistraction, poolAccident} {
		if n.library.Size(pool) > 0 {
			variants = append(variants, pool)
		}
	}

	if len(variants) == 0 {
		return poolAccident
	}

	return variants[n.rng.Intn(len(variants))]
}

// render picks an unused template from the pool, recycling the pool once it is exhausted.
func (n *Narrator) render(pool string, data templateData) (string, bool) {
	templates := n.library.pools[pool]

	if len(templates) == 0 {
		logrus.Warnf("Narrative pool %s has no texts", pool)
		return "", false
	}

	used := n.used[pool]

	if used == nil || len(used) >= len(templates) {
		if used != nil {
			logrus.Debugf("All %d %s texts used, recycling", len(templates), pool)
		}

		used = make(map[int]bool, len(templates))
		n.used[pool] = used
	}

	unused := make([]int, 0, len(templates)-len(used))

	for i := range templates {
		if !used[i] {
			unused = append(unused, i)
		}
	}

	index := unused[n.rng.Intn(len(unused))]
	used[index] = true

	buf := new(bytes.Buffer)

	if err := templates[index].Execute(buf, data); err != nil {
		logrus.WithError(err).Errorf("Could not render %s text", pool)
		return "", false
	}

	return buf.String(), true
}

// Course picks the course for a contest.
func (n *Narrator) Course() Course {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.library.courses) == 0 {
		logrus.Error("No courses defined")
		return Course{Name: "Default Course", Description: "No description"}
	}

	return n.library.courses[n.rng.Intn(len(n.library.courses))]
}

// StrategyPhrase describes a strategy in the announcer's words.
func (n *Narrator) StrategyPhrase(strategy race.Strategy) string {
	if phrase, ok := n.library.strategies[string(strategy)]; ok && phrase != "" {
		return phrase
	}

	return defaultStrategyPhrase
}

// AnnouncerComment is the pre-race remark hinting at the favoured strategy.
func (n *Narrator) AnnouncerComment(favored race.Strategy, course Course) string {
	phrase := n.StrategyPhrase(favored)

	n.mu.Lock()
	defer n.mu.Unlock()

	data := templateData{
		Course:   course.Name,
		Strategy: phrase,
	}

	if len(n.library.announcers) > 0 {
		data.Announcer = n.library.announcers[n.rng.Intn(len(n.library.announcers))]
	}

	text, ok := n.render(poolAnnouncer, data)

	if !ok {
		return fmt.Sprintf("Welcome to %s! Watch out for %s.", course.Name, phrase)
	}

	return text
}

func nameAt(names []string, i int) string {
	if i < len(names) {
		return names[i]
	}

	return ""
}

func fallback(kind race.EventKind, names []string) string {
	if len(names) == 0 {
		return fmt.Sprintf("<%s>", kind)
	}

	return fmt.Sprintf("<%s: %s>", kind, strings.Join(names, ", "))
}
