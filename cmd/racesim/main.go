package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/mitchellh/go-wordwrap"
	"github.com/sirupsen/logrus"

	"justapengu.in/kartrumble/internal/narrative"
	"justapengu.in/kartrumble/internal/race"
)

const maxLaps = 1000

var (
	seed      int64
	runs      int
	humans    int
	verbose   bool
	dump      bool
	textsPath string
)

func init() {
	flag.Int64Var(&seed, "seed", 1, "seed of the first race")
	flag.IntVar(&runs, "n", 1, "number of races to simulate")
	flag.IntVar(&humans, "humans", 1, "human participants per race")
	flag.BoolVar(&verbose, "v", false, "print the narration of every race")
	flag.BoolVar(&dump, "dump", false, "dump the final state of every race")
	flag.StringVar(&textsPath, "texts", "", "narrative texts file")
	flag.Parse()
}

type result struct {
	seed     int64
	laps     int
	duel     bool
	comeback bool
	aborted  bool
	winner   string
	awards   map[string]int
	lines    []string
	snapshot race.Snapshot
}

func main() {
	logrus.SetLevel(logrus.WarnLevel)

	library := narrative.Default()

	if textsPath != "" {
		texts, err := narrative.LoadTexts(textsPath)

		if err != nil {
			logrus.WithError(err).Fatal("Could not load narrative texts")
		}

		library, err = narrative.NewLibrary(texts)

		if err != nil {
			logrus.WithError(err).Fatal("Could not parse narrative texts")
		}
	}

	results := make([]*result, runs)

	var wg sync.WaitGroup

	for i := 0; i < runs; i++ {
		i := i
		wg.Add(1)

		go func() {
			defer wg.Done()

			results[i] = simulate(library, seed+int64(i))
		}()
	}

	wg.Wait()

	for _, r := range results {
		if verbose {
			printRace(r)
		}

		if dump {
			spew.Dump(r.snapshot)
		}
	}

	printStats(results)
}

func simulate(library *narrative.Library, seed int64) *result {
	rng := race.NewRandom(seed)
	contest := race.NewContest(fmt.Sprintf("sim-%d", seed), library.NewNarrator(rng), race.WithRandom(rng))

	for i := 0; i < humans; i++ {
		strategy := race.DefaultStrategies[i%len(race.DefaultStrategies)]

		if err := contest.Join(race.NewParticipant(int64(1000+i), fmt.Sprintf("Racer %d", i+1), strategy)); err != nil {
			logrus.WithError(err).Fatal("Could not add participant")
		}
	}

	r := &result{seed: seed}

	for lap := 0; lap < maxLaps && !contest.IsFinished(); lap++ {
		report, err := contest.AdvanceLap()

		if err != nil {
			logrus.WithError(err).Warnf("Race %d aborted", seed)
		}

		r.lines = append(r.lines, reportLines(report)...)
		r.duel = r.duel || report.FinalDuel
		r.aborted = report.Aborted
	}

	outcome := contest.Outcome()

	r.laps = contest.Lap()
	r.comeback = outcome.ComebackOccurred
	r.awards = contest.ScoredAwards()
	r.snapshot = contest.Snapshot()

	if outcome.Winner != nil {
		r.winner = outcome.Winner.Name
	}

	return r
}

func reportLines(report *race.LapReport) []string {
	lines := []string{fmt.Sprintf("== Lap %d ==", report.Lap)}

	for _, section := range [][]string{report.ForcedElimination, report.Revival, report.Revolution, report.Battles, report.Skills, report.Duel} {
		lines = append(lines, section...)
	}

	if report.DuelOutcome != "" {
		lines = append(lines, report.DuelOutcome)
	}

	return append(lines, fmt.Sprintf("-- %d active, %d eliminated", report.ActiveCount, report.EliminatedCount))
}

func printRace(r *result) {
	header := color.New(color.FgCyan, color.Bold)
	lapHeader := color.New(color.FgYellow)

	header.Printf("Race %d\n", r.seed)

	for _, line := range r.lines {
		switch {
		case strings.HasPrefix(line, "== "):
			lapHeader.Println(line)
		case strings.HasPrefix(line, "-- "):
			color.New(color.Faint).Println(line)
		default:
			fmt.Println("  " + strings.Replace(wordwrap.WrapString(line, 90), "\n", "\n  ", -1))
		}
	}

	if r.winner != "" {
		color.Green("Winner: %s", r.winner)
	} else {
		color.Red("No winner")
	}

	fmt.Println()
}

func printStats(results []*result) {
	var laps, duels, comebacks, aborted int
	wins := make(map[string]int)

	for _, r := range results {
		laps += r.laps

		if r.duel {
			duels++
		}

		if r.comeback {
			comebacks++
		}

		if r.aborted {
			aborted++
		}

		if r.winner != "" {
			wins[r.winner]++
		}
	}

	if len(results) == 0 {
		return
	}

	header := color.New(color.Bold)
	header.Printf("%d races simulated from seed %d\n", len(results), seed)

	fmt.Fprintf(os.Stdout, "  average laps:  %.2f\n", float64(laps)/float64(len(results)))
	fmt.Fprintf(os.Stdout, "  final duels:   %d\n", duels)
	fmt.Fprintf(os.Stdout, "  comebacks:     %d\n", comebacks)
	fmt.Fprintf(os.Stdout, "  aborted:       %d\n", aborted)

	names := make([]string, 0, len(wins))

	for name := range wins {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool {
		if wins[names[i]] == wins[names[j]] {
			return names[i] < names[j]
		}

		return wins[names[i]] > wins[names[j]]
	})

	header.Println("Wins")

	for _, name := range names {
		fmt.Fprintf(os.Stdout, "  %-20s %d\n", name, wins[name])
	}
}
