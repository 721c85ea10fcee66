package narrative

import (
	"io/ioutil"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Pool names. Every race.EventKind has a pool of the same name, except forced elimination which
// is split into a distraction and an accident variant, each with its own result line.
const (
	poolDistraction       = "forced_elimination_distraction"
	poolDistractionResult = "forced_elimination_distraction_result"
	poolAccident          = "forced_elimination_accident"
	poolAccidentResult    = "forced_elimination_accident_result"
	poolAnnouncer         = "announcer"
)

type Course struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// Texts is the raw material a Library is built from. Templates use text/template syntax with
// the sprig function map, and see the fields of templateData.
type Texts struct {
	Events     map[string][]string `yaml:"events"`
	Courses    []Course            `yaml:"courses"`
	Announcers []string            `yaml:"announcers"`
	// Strategies maps a strategy to the phrase the announcer uses for it.
	Strategies map[string]string `yaml:"strategies"`
}

// LoadTexts reads a YAML file and lays it over the built in texts. Any pool, course list or
// announcer list present in the file replaces the built in one.
func LoadTexts(path string) (Texts, error) {
	texts := DefaultTexts()

	data, err := ioutil.ReadFile(path)

	if err != nil {
		return texts, errors.Wrapf(err, "could not read narrative file %s", path)
	}

	var override Texts

	if err := yaml.Unmarshal(data, &override); err != nil {
		return texts, errors.Wrapf(err, "could not parse narrative file %s", path)
	}

	texts.merge(override)

	return texts, nil
}

func (t *Texts) merge(override Texts) {
	for kind, pool := range override.Events {
		if len(pool) > 0 {
			t.Events[kind] = pool
		}
	}

	if len(override.Courses) > 0 {
		t.Courses = override.Courses
	}

	if len(override.Announcers) > 0 {
		t.Announcers = override.Announcers
	}

	for strategy, phrase := range override.Strategies {
		t.Strategies[strategy] = phrase
	}
}

func DefaultTexts() Texts {
	texts := Texts{
		Events:     make(map[string][]string, len(defaultEvents)),
		Courses:    append([]Course(nil), defaultCourses...),
		Announcers: append([]string(nil), defaultAnnouncers...),
		Strategies: make(map[string]string, len(defaultStrategies)),
	}

	for kind, pool := range defaultEvents {
		texts.Events[kind] = append([]string(nil), pool...)
	}

	for strategy, phrase := range defaultStrategies {
		texts.Strategies[strategy] = phrase
	}

	return texts
}

var defaultCourses = []Course{
	{Name: "Hamster Cup World Circuit", Description: "Every corner of the Hamster Cup universe squeezed into one track. Cute is justice. 🐹"},
	{Name: "Green Afro Circuit", Description: "A track buried in fluffy green afros. Easy on the eyes, until the green-out rolls in. 🟢"},
	{Name: "Noodle Street Circuit", Description: "The first circuit to run straight through a shopping street. Monaco has nothing on this."},
	{Name: "Ice Circuit", Description: "Frozen from start to finish with snow that never stops. If you slide, blame the weather."},
	{Name: "Fickle Skies Circuit", Description: "Calm one lap, storming the next. Nobody has seen this track's full potential yet."},
}

var defaultAnnouncers = []string{"Unit One", "Unit Two", "Botty"}

var defaultStrategies = map[string]string{
	"start_dash": "a start dash that breaks clear of the opening scramble",
	"top_speed":  "raw top speed down the straights",
	"cornering":  "precise cornering through the technical sections",
}

var defaultEvents = map[string][]string{
	"overtake": {
		"⚡️ {{ .Winner }} and {{ .Loser }} collide with everything on the line! Sparks everywhere!",
		"⭐️ {{ .Winner }} hugs the inside and {{ .Loser }} is pushed wide!",
		"🎭 {{ .Winner }} sells the dummy and {{ .Loser }} buys it completely!",
		"🌪️ {{ .Winner }} reads the slipstream and slides in ahead of {{ .Loser }}!",
		"🎯 A perfect line from {{ .Winner }}! {{ .Loser }}'s defence falls apart!",
		"⚔️ Head to head and {{ .Winner }} wins the duel with {{ .Loser }}!",
		"🎮 {{ .Winner }} pulls off an impossible drift and {{ .Loser }} can only watch!",
		"🚀 Rocket start from {{ .Winner }}! {{ .Loser }} is caught napping!",
		"🍌 {{ .Loser }} finds a banana and {{ .Winner }} takes the gift!",
		"⚡️ Lightning strikes {{ .Loser }} and {{ .Winner }} does not hesitate!",
		"🔥 Full turbo from {{ .Winner }}! {{ .Loser }} is gone in an instant!",
		"🧊 {{ .Loser }} is frozen solid while {{ .Winner }} glides past!",
		"🎈 Balloon battle! {{ .Winner }} pops every last one of {{ .Loser }}'s!",
		"🚧 {{ .Loser }} clips the barrier and {{ .Winner }} sails through!",
		"👻 {{ .Winner }} turns ghost and slips straight through {{ .Loser }}!",
		"🏹 A single well aimed shot! {{ .Winner }} picks off {{ .Loser }}!",
		"🌋 {{ .Winner }} attacks again and again! {{ .Loser }} cannot hold on!",
		"💥 Slipstream battle between {{ .Winner }} and {{ .Loser }}! {{ .Winner }} edges it!",
	},
	"skill": {
		"🏎️ {{ .Player }} times a mini turbo to perfection!",
		"💫 {{ .Player }} drifts deep into the corner!",
		"⭐️ {{ .Player }} nails the shortcut and gains a chunk of time!",
		"🌈 {{ .Player }} fires off a rainbow drift boost!",
		"🎯 {{ .Player }} grabs item box after item box!",
		"💨 {{ .Player }} lands a trick in mid air and surges ahead!",
		"🚀 {{ .Player }} flies off the jump!",
		"🌟 {{ .Player }} finds a secret route!",
		"🎪 {{ .Player }} shows off a super drift and the crowd goes wild!",
		"🌪️ {{ .Player }} is driving like a kart possessed!",
	},
	"revival": {
		"💫 {{ .Player }} fires a triple mushroom and storms back!",
		"⚡️ {{ .Player }} rides a bullet back into contention!",
		"🌟 {{ .Player }} grabs a star and is untouchable!",
		"🚀 {{ .Player }} cuts through the back roads for a huge comeback!",
		"⭐️ {{ .Player }} drifts flawlessly back into the race!",
		"💨 {{ .Player }} chains rainbow turbos and charges back!",
		"🎯 {{ .Player }} plays the items perfectly to climb back!",
		"✨ {{ .Player }} finds a miracle line and is back in it!",
	},
	"revolution": {
		"Thunder rolls across the sky! Something is up there! It's the King of Misfortune!\nHe has turned the whole race around!\nThe leaders and the stragglers have swapped places!",
	},
	poolDistraction: {
		"⚡️ Oh no! A surprise audio space has just started!",
		"🌟 Wait, a favourite streamer has just gone live!",
		"💫 A guerrilla voice channel has popped up out of nowhere!",
		"🎯 Breaking news! A giveaway is starting right now!",
		"‼️ The weekly community radio show is on air!",
	},
	poolDistractionResult: {
		"{{ .Names | join \", \" }} could not resist and tuned in!",
	},
	poolAccident: {
		"🔥 A giant boulder is rolling down onto the track!",
		"😈 Oil all over the racing line! Sabotage?!",
		"🚀 Incoming missile!",
		"🏪 That was no item box, it was a banana peel!",
		"🐢 A green shell ricochets off the wall and comes back for more!",
	},
	poolAccidentResult: {
		"{{ .Names | join \", \" }} got caught up in the chaos!",
	},
	"final_duel_beat": {
		"Final corner! {{ .First }} takes the inside and {{ .Second }} looks for the cross-over!",
		"{{ .Second }} pulls alongside out of the slipstream! Side by side, neither will give way!",
		"{{ .First }} throws in a huge drift, sparks flying, and {{ .Second }} hangs on!",
		"Contact! {{ .First }} and {{ .Second }} wobble and somehow gather it up!",
		"{{ .Second }} dives for the inside! Can {{ .First }} shut the door?",
		"Into the final straight and {{ .First }} noses ahead! Does {{ .Second }} have the legs?",
		"Dead level! Nobody can call this one!",
		"{{ .First }}'s tyres are giving up, the kart is twitching, and {{ .Second }} is closing!",
		"{{ .Second }} keeps it tidy and turns up the pressure on {{ .First }}!",
		"{{ .First }} spots the gap and slides in front of {{ .Second }}! Brilliant call!",
		"{{ .Second }} hits the bump on the outside and {{ .First }} takes the lead!",
		"A mini turbo from {{ .First }}! Can {{ .Second }} keep up?",
		"{{ .First }} and {{ .Second }} wait to see who blinks first!",
		"Every trick in the book from both drivers! Pure pride on the line!",
		"{{ .First }} runs wide and {{ .Second }} pounces!",
		"The crowd is on its feet! {{ .First }} against {{ .Second }} for the ages!",
		"{{ .First }} weaves across the track to deny {{ .Second }} the tow!",
		"{{ .Second }} brakes impossibly late and is up the inside of {{ .First }}!",
		"{{ .First }} crosses back over and retakes it! What a battle of wits!",
		"Through the chicane and a tenth separates {{ .First }} and {{ .Second }}!",
		"{{ .First }} stays calm and controls the pace, {{ .Second }} cannot find a way by!",
		"The line is in sight! {{ .First }} and {{ .Second }} give it everything!",
	},
	"final_duel_climax": {
		"🔥 One hundred metres to go! It all comes down to this for {{ .First }} and {{ .Second }}!",
	},
	"final_duel_outcome": {
		"🏁 {{ .Winner }} crosses the line first! {{ .Loser }} falls just short!",
		"🏁 By a nose! {{ .Winner }} takes it from {{ .Loser }}!",
		"🏁 {{ .Winner }} holds on for the win! {{ .Loser }} gave it everything!",
	},
	"comeback": {
		"Wait! {{ .Winner }} is flying up from the back!\n{{ .First }} and {{ .Second }} are blown away!\nThe miracle comeback! {{ .Winner }} wins it!",
	},
	poolAnnouncer: {
		"So {{ .Announcer }}, what should we be watching at {{ .Course }} today?",
		"At {{ .Course }} today I think it all comes down to {{ .Strategy }}!",
		"Looking at {{ .Course }}, machines built for {{ .Strategy }} might just have the edge!",
		"{{ .Announcer }} here. At {{ .Course }}, {{ .Strategy }} could be the deciding factor.",
	},
}
