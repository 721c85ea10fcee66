package kartrumble

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"justapengu.in/kartrumble/internal/race"
)

const (
	joinNoticeLifetime = 10 * time.Second
	resetConfirmWindow = 30 * time.Second

	confirmEmoji = "✅"
	cancelEmoji  = "❌"
)

// messenger is the part of a discordgo.Session the bot talks through.
type messenger interface {
	ChannelMessageSend(channelID string, content string) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string) error
	MessageReactionAdd(channelID, messageID, emojiID string) error
}

type resetRequest struct {
	guildID string
	userID  string
	expires time.Time
}

// DiscordBot runs races from chat commands and posts their progress to the channel.
type DiscordBot struct {
	session   *discordgo.Session
	messenger messenger

	manager *RaceManager
	store   Store
	prefix  string
	pacing  PacingConfig

	ctx   context.Context
	sleep func(time.Duration)

	mutex         sync.Mutex
	joinMessages  map[string]string // join message ID to channel ID
	resetRequests map[string]resetRequest
	outcomes      map[string]race.Outcome
}

func NewDiscordBot(token, prefix string, manager *RaceManager, store Store, pacing PacingConfig) (*DiscordBot, error) {
	if token == "" {
		return nil, ErrNoDiscordToken
	}

	session, err := discordgo.New("Bot " + token)

	if err != nil {
		return nil, errors.Wrap(err, "could not create discord session")
	}

	session.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsGuildMessageReactions)

	bot := newDiscordBot(session, prefix, manager, store, pacing)
	bot.session = session

	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onMessageCreate)
	session.AddHandler(bot.onMessageReactionAdd)

	return bot, nil
}

func newDiscordBot(m messenger, prefix string, manager *RaceManager, store Store, pacing PacingConfig) *DiscordBot {
	return &DiscordBot{
		messenger:     m,
		manager:       manager,
		store:         store,
		prefix:        prefix,
		pacing:        pacing,
		ctx:           context.Background(),
		sleep:         time.Sleep,
		joinMessages:  make(map[string]string),
		resetRequests: make(map[string]resetRequest),
		outcomes:      make(map[string]race.Outcome),
	}
}

// Open connects to Discord. Races started from chat stop when ctx is done.
func (d *DiscordBot) Open(ctx context.Context) error {
	d.ctx = ctx

	if err := d.session.Open(); err != nil {
		return errors.Wrap(err, "could not connect to discord")
	}

	return nil
}

func (d *DiscordBot) Close() error {
	return d.session.Close()
}

func (d *DiscordBot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	logrus.Infof("Discord bot ready, logged in as %s (in %d guilds)", r.User.Username, len(r.Guilds))
}

func (d *DiscordBot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	if !strings.HasPrefix(m.Content, d.prefix) {
		return
	}

	fields := strings.Fields(strings.TrimPrefix(m.Content, d.prefix))

	if len(fields) == 0 {
		return
	}

	switch strings.ToLower(fields[0]) {
	case "start":
		d.startRace(m.GuildID, m.ChannelID, m.Author.Username)
	case "ranking", "rankings":
		d.showRankings(s, m.GuildID, m.ChannelID, fields[1:])
	case "reset_ranking":
		if !d.isAdministrator(s, m.Author.ID, m.ChannelID) {
			d.send(m.ChannelID, "🚫 Only administrators can reset the rankings.")
			return
		}

		d.requestReset(m.GuildID, m.ChannelID, m.Author.ID)
	case "cancel":
		if !d.isAdministrator(s, m.Author.ID, m.ChannelID) {
			d.send(m.ChannelID, "🚫 Only administrators can cancel a race.")
			return
		}

		if err := d.manager.Cancel(m.ChannelID); err != nil {
			d.send(m.ChannelID, "There is no race in this channel.")
		}
	}
}

func (d *DiscordBot) isAdministrator(s *discordgo.Session, userID, channelID string) bool {
	permissions, err := s.UserChannelPermissions(userID, channelID)

	if err != nil {
		logrus.WithError(err).Warnf("Could not load permissions for user %s", userID)
		return false
	}

	return permissions&discordgo.PermissionAdministrator != 0
}

func (d *DiscordBot) startRace(guildID, channelID, requestedBy string) {
	logrus.Infof("Race requested by %s in channel %s (guild: %s)", requestedBy, channelID, guildID)

	if _, err := d.manager.Open(guildID, channelID); err != nil {
		if err == ErrRaceInProgress {
			d.send(channelID, "A race is already running in this channel! 🏁")
			return
		}

		logrus.WithError(err).Error("Could not open race")
		d.send(channelID, "🤖 Something went wrong starting the race.")
		return
	}

	go func() {
		if err := d.manager.Run(d.ctx, channelID); err != nil {
			logrus.WithError(err).Debugf("Race in channel %s did not finish", channelID)
		}
	}()
}

func (d *DiscordBot) onMessageReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if s.State != nil && s.State.User != nil && r.UserID == s.State.User.ID {
		return
	}

	d.mutex.Lock()
	channelID, isJoin := d.joinMessages[r.MessageID]
	reset, isReset := d.resetRequests[r.MessageID]
	d.mutex.Unlock()

	switch {
	case isJoin:
		d.join(s, channelID, r.GuildID, r.UserID, r.Emoji.Name)
	case isReset:
		d.confirmReset(r.ChannelID, r.MessageID, r.UserID, r.Emoji.Name, reset)
	}
}

func (d *DiscordBot) join(s *discordgo.Session, channelID, guildID, userID, emoji string) {
	strategy, ok := strategyForEmoji(emoji)

	if !ok {
		return
	}

	id, err := strconv.ParseInt(userID, 10, 64)

	if err != nil {
		logrus.WithError(err).Warnf("Invalid user ID %s", userID)
		return
	}

	_, err = d.manager.Join(channelID, id, d.displayName(s, guildID, userID), strategy)

	switch errors.Cause(err) {
	case nil, race.ErrDuplicateParticipant:
	case race.ErrContestStarted:
		d.send(channelID, "The race has already started!")
	default:
		logrus.WithError(err).Warnf("Could not add %s to the race in channel %s", userID, channelID)
	}
}

func (d *DiscordBot) displayName(s *discordgo.Session, guildID, userID string) string {
	if member, err := s.GuildMember(guildID, userID); err == nil && member.User != nil {
		if member.Nick != "" {
			return member.Nick
		}

		return member.User.Username
	}

	if user, err := s.User(userID); err == nil {
		return user.Username
	}

	return fmt.Sprintf("Racer %s", userID)
}

func (d *DiscordBot) showRankings(s *discordgo.Session, guildID, channelID string, args []string) {
	periods := RankingPeriods

	if len(args) > 0 {
		period, err := ParseRankingPeriod(args[0])

		if err != nil {
			d.send(channelID, "⚠️ Use weekly, monthly or all.")
			return
		}

		periods = []RankingPeriod{period}
	}

	rankings := make(map[RankingPeriod][]Ranking)

	for _, period := range periods {
		r, err := d.store.Rankings(guildID, period, DefaultRankingLimit)

		if err != nil {
			logrus.WithError(err).Errorf("Could not load %s rankings for guild %s", period, guildID)
			d.send(channelID, "Something went wrong loading the rankings.")
			return
		}

		rankings[period] = r
	}

	guildName := "Server"

	if guild, err := s.State.Guild(guildID); err == nil {
		guildName = guild.Name
	}

	e := renderRankingsEmbed(guildName, periods, rankings, func(r Ranking) string {
		if name, ok := r.ComputerName(); ok {
			return name
		}

		return d.displayName(s, guildID, r.PlayerKey)
	})

	d.sendEmbed(channelID, e)
}

func (d *DiscordBot) requestReset(guildID, channelID, userID string) {
	logrus.Warnf("Ranking reset requested by %s in guild %s", userID, guildID)

	msg, err := d.messenger.ChannelMessageSend(channelID, fmt.Sprintf(
		"⚠️ **Warning:** this deletes every ranking for this server, totals and history. It cannot be undone.\nReact with %s to reset or %s to cancel.",
		confirmEmoji, cancelEmoji,
	))

	if err != nil {
		logrus.WithError(err).Error("Could not send reset confirmation")
		return
	}

	d.mutex.Lock()
	d.resetRequests[msg.ID] = resetRequest{guildID: guildID, userID: userID, expires: time.Now().Add(resetConfirmWindow)}
	d.mutex.Unlock()

	for _, emoji := range []string{confirmEmoji, cancelEmoji} {
		if err := d.messenger.MessageReactionAdd(channelID, msg.ID, emoji); err != nil {
			logrus.WithError(err).Warn("Could not add reaction")
		}
	}

	time.AfterFunc(resetConfirmWindow, func() {
		d.mutex.Lock()
		_, pending := d.resetRequests[msg.ID]
		delete(d.resetRequests, msg.ID)
		d.mutex.Unlock()

		if pending {
			d.send(channelID, "The ranking reset timed out.")
		}
	})
}

func (d *DiscordBot) confirmReset(channelID, messageID, userID, emoji string, request resetRequest) {
	if userID != request.userID || time.Now().After(request.expires) {
		return
	}

	if emoji != confirmEmoji && emoji != cancelEmoji {
		return
	}

	d.mutex.Lock()
	delete(d.resetRequests, messageID)
	d.mutex.Unlock()

	if emoji == cancelEmoji {
		d.send(channelID, "The ranking reset was cancelled.")
		return
	}

	deleted, err := d.store.ResetRankings(request.guildID)

	if err != nil {
		logrus.WithError(err).Errorf("Could not reset rankings for guild %s", request.guildID)
		captureError(err, map[string]string{"guild": request.guildID})
		d.send(channelID, "❌ The rankings could not be reset.")
		return
	}

	d.send(channelID, fmt.Sprintf("✅ Rankings reset, %d players removed.", deleted))
}

func (d *DiscordBot) send(channelID, content string) {
	if _, err := d.messenger.ChannelMessageSend(channelID, content); err != nil {
		logrus.WithError(err).Errorf("Could not send message to channel %s", channelID)
	}
}

func (d *DiscordBot) sendEmbed(channelID string, e *discordgo.MessageEmbed) {
	if _, err := d.messenger.ChannelMessageSendEmbed(channelID, e); err != nil {
		logrus.WithError(err).Errorf("Could not send embed to channel %s", channelID)
	}
}

func (d *DiscordBot) joinMessageFor(channelID string) (string, bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	for messageID, ch := range d.joinMessages {
		if ch == channelID {
			return messageID, true
		}
	}

	return "", false
}

func (d *DiscordBot) OnRaceOpened(session *RaceSession) error {
	msg, err := d.messenger.ChannelMessageSendEmbed(session.ChannelID, renderJoinEmbed(session.Course, d.pacing.JoinWindow, 0, true))

	if err != nil {
		return errors.Wrap(err, "could not send join message")
	}

	d.mutex.Lock()
	d.joinMessages[msg.ID] = session.ChannelID
	d.mutex.Unlock()

	for _, strategy := range race.DefaultStrategies {
		if err := d.messenger.MessageReactionAdd(session.ChannelID, msg.ID, strategyEmoji[strategy]); err != nil {
			logrus.WithError(err).Warn("Could not add strategy reaction")
		}
	}

	return nil
}

func (d *DiscordBot) OnParticipantJoined(session *RaceSession, participant *race.Participant) error {
	if messageID, ok := d.joinMessageFor(session.ChannelID); ok {
		if _, err := d.messenger.ChannelMessageEditEmbed(session.ChannelID, messageID, renderJoinEmbed(session.Course, d.pacing.JoinWindow, session.HumanCount(), true)); err != nil {
			logrus.WithError(err).Warn("Could not update join message")
		}
	}

	notice, err := d.messenger.ChannelMessageSendEmbed(session.ChannelID, renderJoinNotice(participant))

	if err != nil {
		return err
	}

	time.AfterFunc(joinNoticeLifetime, func() {
		_ = d.messenger.ChannelMessageDelete(session.ChannelID, notice.ID)
	})

	return nil
}

func (d *DiscordBot) closeJoinMessage(session *RaceSession) {
	messageID, ok := d.joinMessageFor(session.ChannelID)

	if !ok {
		return
	}

	d.mutex.Lock()
	delete(d.joinMessages, messageID)
	d.mutex.Unlock()

	if _, err := d.messenger.ChannelMessageEditEmbed(session.ChannelID, messageID, renderJoinEmbed(session.Course, 0, 0, false)); err != nil {
		logrus.WithError(err).Warn("Could not close join message")
	}
}

func (d *DiscordBot) OnRaceStarted(session *RaceSession) error {
	d.closeJoinMessage(session)

	d.send(session.ChannelID, "🎤 **Announcement**\n"+session.Announcement())
	d.sleep(d.pacing.Announcement)

	return nil
}

func (d *DiscordBot) OnLap(session *RaceSession, report *race.LapReport) error {
	channelID := session.ChannelID

	d.send(channelID, renderLapHeader(report.Lap))
	d.sleep(d.pacing.LapStart)

	if len(report.ForcedElimination) == 2 {
		d.send(channelID, "💥 **Accident!** 💥")
		d.send(channelID, report.ForcedElimination[0])
		d.sleep(d.pacing.Event)
		d.send(channelID, report.ForcedElimination[1])
		d.sleep(d.pacing.Event)
	}

	if len(report.Revival) > 0 {
		d.send(channelID, "🔥 **Storming back!** 🔥")

		for _, line := range report.Revival {
			d.send(channelID, line)
			d.sleep(d.pacing.Event)
		}
	}

	for _, line := range report.Revolution {
		d.send(channelID, "🚨 **Revolution!** 🚨\n"+line)
		d.sleep(d.pacing.Event)
	}

	if report.FinalDuel {
		if len(report.Duel) > 0 {
			d.send(channelID, "🔥 **The final duel! Head to head!** 🔥")

			for _, line := range report.Duel {
				d.send(channelID, line)
				d.sleep(d.pacing.DuelBeat)
			}
		}

		if report.DuelOutcome != "" {
			d.send(channelID, "**"+report.DuelOutcome+"**")
		}

		return nil
	}

	if report.Finished {
		return nil
	}

	if len(report.Battles) > 0 {
		d.send(channelID, renderBattles(report.Battles))
		d.sleep(d.pacing.Battles)
	}

	if len(report.Skills) > 0 {
		d.send(channelID, renderSkills(report.Skills, d.pacing.MaxSkillsShown))
		d.sleep(d.pacing.Battles)
	}

	if report.Quiet() {
		d.send(channelID, quietLapMessage)
		d.sleep(d.pacing.Event)
	}

	d.send(channelID, renderSummary(report))
	d.sleep(d.pacing.Summary)

	return nil
}

func (d *DiscordBot) OnRaceFinished(session *RaceSession, record *RaceRecord) error {
	outcome := session.Snapshot().Outcome

	if outcome.Winner != nil && !outcome.ComebackOccurred && outcome.SecondPlace == nil {
		d.send(session.ChannelID, fmt.Sprintf("🏆🏆🏆 **Race over! %s wins! Congratulations!** 🏆🏆🏆", outcome.Winner.Name))
	}

	d.sendEmbed(session.ChannelID, renderResultsEmbed(record, outcome))

	return nil
}

func (d *DiscordBot) OnRaceCancelled(session *RaceSession, reason error) error {
	d.closeJoinMessage(session)

	switch errors.Cause(reason) {
	case ErrNoParticipants:
		d.send(session.ChannelID, "Nobody joined, so the race is off.")
	case ErrRaceCancelled:
		d.send(session.ChannelID, "⚠️ The race was cancelled.")
	default:
		d.send(session.ChannelID, "⚠️ The race was stopped.")
	}

	return nil
}
