package kartrumble

import (
	"fmt"
	"strings"
	"time"

	"github.com/Clinet/discordgo-embed"
	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"

	"justapengu.in/kartrumble/internal/narrative"
	"justapengu.in/kartrumble/internal/race"
)

const (
	maxMessageLength = 2000

	colourBlue  = 0x3498db
	colourGreen = 0x2ecc71
	colourRed   = 0xe74c3c
	colourGold  = 0xf1c40f

	lapRule = "━━━━━━━━━━━━━━━━━━━━━"
)

var strategyEmoji = map[race.Strategy]string{
	race.StrategyStartDash: "🚀",
	race.StrategyTopSpeed:  "💨",
	race.StrategyCornering: "✨",
}

var strategyLabels = map[race.Strategy]string{
	race.StrategyStartDash: "Start dash",
	race.StrategyTopSpeed:  "Top speed",
	race.StrategyCornering: "Cornering",
}

func strategyForEmoji(emoji string) (race.Strategy, bool) {
	for strategy, e := range strategyEmoji {
		if e == emoji {
			return strategy, true
		}
	}

	return "", false
}

func strategyLabel(strategy race.Strategy) string {
	if label, ok := strategyLabels[strategy]; ok {
		return label
	}

	return string(strategy)
}

func renderJoinEmbed(course narrative.Course, window time.Duration, humans int, open bool) *discordgo.MessageEmbed {
	e := embed.NewEmbed().SetTitle(fmt.Sprintf("🏎️ Kart Rumble @ %s", course.Name))

	if !open {
		return e.SetDescription("Entries are closed. The race is starting!").SetColor(colourRed).MessageEmbed
	}

	var choices []string

	for _, strategy := range race.DefaultStrategies {
		choices = append(choices, fmt.Sprintf("%s %s", strategyEmoji[strategy], strategyLabel(strategy)))
	}

	description := fmt.Sprintf(
		"React with your strategy to join!\n%s\nThe race starts in **about %s**!\nRacers so far: %d (not counting CPUs)\n\n*Course: %s*",
		strings.Join(choices, "  "),
		durafmt.Parse(window).String(),
		humans,
		course.Description,
	)

	return e.SetDescription(description).SetColor(colourBlue).MessageEmbed
}

func renderJoinNotice(participant *race.Participant) *discordgo.MessageEmbed {
	return embed.NewEmbed().
		SetDescription(fmt.Sprintf("%s joined the race with **%s**!", participant.Name, strategyLabel(participant.Strategy))).
		SetColor(colourGreen).
		MessageEmbed
}

func renderLapHeader(lap int) string {
	return fmt.Sprintf("%s\n**📢 LAP %d!**\n%s", lapRule, lap, lapRule)
}

// renderSection joins lines under a heading, falling back to the short form when the message
// would be too long for Discord.
func renderSection(heading string, lines []string, short string) string {
	message := heading + "\n" + strings.Join(lines, "\n")

	if len(message) > maxMessageLength {
		return heading + "\n" + short
	}

	return message
}

func renderBattles(battles []string) string {
	return renderSection("💥 **This lap's big moments!** 💥", battles, "(Overtakes all over the track!)")
}

// renderSkills shows at most max skill lines and summarises the rest.
func renderSkills(skills []string, max int) string {
	shown := skills

	if max > 0 && len(skills) > max {
		shown = append(append([]string(nil), skills[:max]...), fmt.Sprintf("(...and %d more showing off their skills!)", len(skills)-max))
	}

	return renderSection("✨ **Out on track!** ✨", shown, "(Racers everywhere showing off their skills!)")
}

const quietLapMessage = "🌀 A quiet lap... nothing much happened."

func renderSummary(report *race.LapReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 **LAP %d RESULTS**\n", report.Lap)

	if len(report.SurvivorNames) > 0 {
		fmt.Fprintf(&b, " > Leading pack (%d): %s\n", report.ActiveCount, strings.Join(report.SurvivorNames, ", "))
	} else {
		fmt.Fprintf(&b, " > Leading pack: %d karts\n", report.ActiveCount)
	}

	eliminated := "none"

	if len(report.EliminatedNames) > 0 {
		eliminated = strings.Join(report.EliminatedNames, ", ")
	}

	fmt.Fprintf(&b, " > Dropped back: %s", eliminated)

	if len(report.RevivedNames) > 0 {
		fmt.Fprintf(&b, "\n > Fought back: %s", strings.Join(report.RevivedNames, ", "))
	}

	return b.String()
}

func renderResultsEmbed(record *RaceRecord, outcome race.Outcome) *discordgo.MessageEmbed {
	e := embed.NewEmbed().SetTitle("🏁 Final Results").SetColor(colourGold)

	switch {
	case outcome.ComebackOccurred && outcome.Winner != nil:
		var losers []string

		for _, p := range outcome.ComebackLosers {
			losers = append(losers, p.Name)
		}

		e.AddField("🥇 Winner", outcome.Winner.Name+" (miracle comeback!)")
		e.AddField("🥈 Runners up", strings.Join(losers, " / ")+" (tied)")
	case outcome.Winner != nil:
		e.AddField("🥇 Winner", outcome.Winner.Name)

		if outcome.SecondPlace != nil {
			e.AddField("🥈 Runner up", outcome.SecondPlace.Name)
		} else {
			e.AddField("🥈 Runner up", "(none)")
		}
	default:
		e.SetDescription("The race ended without a winner...!")
	}

	footer := fmt.Sprintf("%d laps", record.Laps)

	if !record.StartedAt.IsZero() && !record.FinishedAt.IsZero() {
		footer += " in " + durafmt.ParseShort(record.Duration()).String()
	}

	if record.Aborted {
		footer += " (stopped early)"
	}

	return e.SetFooter(footer).MessageEmbed
}

var rankingTitles = map[RankingPeriod]string{
	RankingWeekly:  "📅 Weekly",
	RankingMonthly: "🗓️ Monthly",
	RankingAll:     "👑 All time",
}

var rankingMedals = map[int]string{
	1: "🥇",
	2: "🥈",
	3: "🥉",
}

// renderRankingsEmbed lists each period's rankings, resolving player keys with name.
func renderRankingsEmbed(guildName string, periods []RankingPeriod, rankings map[RankingPeriod][]Ranking, name func(Ranking) string) *discordgo.MessageEmbed {
	e := embed.NewEmbed().SetTitle(fmt.Sprintf("🏆 %s Rankings 🏆", guildName)).SetColor(colourGold)

	for _, period := range periods {
		var lines []string

		for _, ranking := range rankings[period] {
			medal, ok := rankingMedals[ranking.Position]

			if !ok {
				medal = humanize.Ordinal(ranking.Position)
			}

			lines = append(lines, fmt.Sprintf("%s %s: %s points", medal, name(ranking), humanize.Comma(int64(ranking.Points))))
		}

		if len(lines) == 0 {
			lines = []string{"No races yet"}
		}

		e.AddField(fmt.Sprintf("%s (Top %d)", rankingTitles[period], DefaultRankingLimit), strings.Join(lines, "\n"))
	}

	return e.MessageEmbed
}
