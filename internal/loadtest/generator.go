package loadtest

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/okian/housecup/internal/domain/model"
)

const maxPosition = 4

var fallbackNames = []string{"Relay", "Chess", "Debate", "Spelling Bee", "Long Jump"}

// Submission is one POST /events request.
type Submission struct {
	Key    string           `json:"key"`
	Draft  model.EventDraft `json:"draft"`
	Replay bool             `json:"replay"`
}

// Generate builds n distinct submissions for houses, plus replays of a
// dupRate fraction of them, shuffled. Names, types and categories come from
// templates when there are any.
func Generate(houses []string, templates []model.EventTemplate, n int, dupRate float64, rng *rand.Rand) []Submission {
	date := time.Now().UTC().Format(model.DateLayout)
	subs := make([]Submission, 0, n+int(float64(n)*dupRate)+1)
	for i := 0; i < n; i++ {
		subs = append(subs, Submission{
			Key:   uuid.NewString(),
			Draft: randomDraft(houses, templates, date, rng),
		})
	}
	for i := 0; i < n; i++ {
		if rng.Float64() < dupRate {
			replay := subs[i]
			replay.Replay = true
			subs = append(subs, replay)
		}
	}
	rng.Shuffle(len(subs), func(i, j int) { subs[i], subs[j] = subs[j], subs[i] })
	return subs
}

func randomDraft(houses []string, templates []model.EventTemplate, date string, rng *rand.Rand) model.EventDraft {
	d := model.EventDraft{
		House:    houses[rng.IntN(len(houses))],
		Position: 1 + rng.IntN(maxPosition),
		Date:     date,
	}
	if len(templates) > 0 {
		t := templates[rng.IntN(len(templates))]
		d.Name, d.Type, d.Category = t.Name, t.Type, t.Category
	} else {
		d.Name = fallbackNames[rng.IntN(len(fallbackNames))]
		d.Type = []model.ResultType{model.Individual, model.Group}[rng.IntN(2)]
	}
	if !d.Category.ValidForEvent() {
		d.Category = []model.Category{model.CategoryJunior, model.CategoryMiddle, model.CategorySenior}[rng.IntN(3)]
	}
	return d
}
