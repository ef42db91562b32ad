// Package admin holds operator tooling: demo seeding, store diagnostics and
// JSON export of every collection.
package admin

import (
	"context"
	"fmt"

	"github.com/okian/housecup/internal/adapters/repository"
	"github.com/okian/housecup/internal/adapters/store"
	"github.com/okian/housecup/internal/domain/model"
	"github.com/okian/housecup/pkg/logger"
)

// SeedReport counts documents inserted per collection. A collection that
// already had documents is listed in Skipped.
type SeedReport struct {
	Inserted map[string]int `json:"inserted"`
	Skipped  []string       `json:"skipped"`
}

// Seeder fills empty collections with demo data.
type Seeder struct {
	houses    *repository.Houses
	events    *repository.Events
	winners   *repository.Winners
	templates *repository.Templates
	logger    logger.Logger
}

// NewSeeder creates a Seeder over st.
func NewSeeder(st store.Store, l logger.Logger) *Seeder {
	if l == nil {
		l = logger.Get().Named("admin")
	}
	opts := []repository.Option{repository.WithLogger(l)}
	return &Seeder{
		houses:    repository.NewHouses(st, opts...),
		events:    repository.NewEvents(st, opts...),
		winners:   repository.NewWinners(st, nil, opts...),
		templates: repository.NewTemplates(st, opts...),
		logger:    l,
	}
}

// SeedDemo inserts the demo houses, templates, events and winners into the
// collections that are empty. Events are stored with their points as given;
// house scores already include them.
func (s *Seeder) SeedDemo(ctx context.Context) (SeedReport, error) {
	report := SeedReport{Inserted: make(map[string]int, len(repository.Collections))}

	steps := []struct {
		coll  string
		empty func() (bool, error)
		fill  func() (int, error)
	}{
		{repository.HousesCollection, emptyCheck(ctx, s.houses.GetAll), func() (int, error) {
			return insertAll(ctx, demoHouses(), s.houses.Add)
		}},
		{repository.TemplatesCollection, emptyCheck(ctx, s.templates.GetAll), func() (int, error) {
			return insertAll(ctx, demoTemplates(), s.templates.Add)
		}},
		{repository.EventsCollection, emptyCheck(ctx, s.events.GetAll), func() (int, error) {
			return insertAll(ctx, demoEvents(), s.events.Add)
		}},
		{repository.WinnersCollection, emptyCheck(ctx, s.winners.GetAll), func() (int, error) {
			return insertAll(ctx, demoWinners(), s.winners.Add)
		}},
	}

	for _, step := range steps {
		empty, err := step.empty()
		if err != nil {
			return report, err
		}
		if !empty {
			report.Skipped = append(report.Skipped, step.coll)
			s.logger.Info(ctx, "collection not empty, skipping", logger.String("collection", step.coll))
			continue
		}
		n, err := step.fill()
		report.Inserted[step.coll] = n
		if err != nil {
			return report, fmt.Errorf("seed %s: %w", step.coll, err)
		}
		s.logger.Info(ctx, "seeded collection", logger.String("collection", step.coll), logger.Int("documents", n))
	}
	return report, nil
}

func emptyCheck[T any](ctx context.Context, getAll func(context.Context) ([]T, error)) func() (bool, error) {
	return func() (bool, error) {
		all, err := getAll(ctx)
		return len(all) == 0, err
	}
}

func insertAll[T any](ctx context.Context, items []T, add func(context.Context, T) (string, error)) (int, error) {
	for i, item := range items {
		if _, err := add(ctx, item); err != nil {
			return i, err
		}
	}
	return len(items), nil
}

func demoHouses() []model.House {
	return []model.House{
		{Name: "Tagore", Score: 285, Rank: 1, Color: model.ColorTagore},
		{Name: "Gandhi", Score: 240, Rank: 2, Color: model.ColorGandhi},
		{Name: "Nehru", Score: 195, Rank: 3, Color: model.ColorNehru},
		{Name: "Delany", Score: 180, Rank: 4, Color: model.ColorDelany},
	}
}

func demoTemplates() []model.EventTemplate {
	return []model.EventTemplate{
		{Name: "Poetry Recitation", Category: model.CategoryJunior, Type: model.Individual,
			Description: "Express creativity through verse", Time: "10:00 AM", Venue: "Main Auditorium"},
		{Name: "Group Dance", Category: model.CategorySenior, Type: model.Group,
			Description: "Showcase traditional and modern dance forms", Time: "2:00 PM", Venue: "School Ground"},
		{Name: "Science Quiz", Category: model.CategoryMiddle, Type: model.Individual,
			Description: "Test your scientific knowledge", Time: "11:00 AM", Venue: "Science Laboratory"},
		{Name: "Drama Competition", Category: model.CategorySenior, Type: model.Group,
			Description: "Theatrical performances", Time: "3:00 PM", Venue: "Main Auditorium"},
		{Name: "Art Exhibition", Category: model.CategoryAll, Type: model.Individual,
			Description: "Display of creative artwork", Time: "9:00 AM", Venue: "Art Gallery"},
	}
}

func demoEvents() []model.EventResult {
	return []model.EventResult{
		{EventDraft: model.EventDraft{Name: "Poetry Recitation", Category: model.CategoryJunior, Type: model.Individual,
			House: "Tagore", Position: 1, Date: "2024-01-15"}, Points: 10},
		{EventDraft: model.EventDraft{Name: "Group Dance", Category: model.CategorySenior, Type: model.Group,
			House: "Gandhi", Position: 1, Date: "2024-01-16"}, Points: 20},
		{EventDraft: model.EventDraft{Name: "Science Quiz", Category: model.CategoryMiddle, Type: model.Individual,
			House: "Nehru", Position: 2, Date: "2024-01-17"}, Points: 7},
	}
}

func demoWinners() []model.Winner {
	const img = "https://images.unsplash.com/photo-%s?w=150&h=150&fit=crop&crop=face"
	return []model.Winner{
		{Name: "Arjun Sharma", Event: "Poetry Recitation", House: "Tagore", Position: 1,
			Image: fmt.Sprintf(img, "1507003211169-0a1dd7228f2d")},
		{Name: "Priya Patel", Event: "Group Dance", House: "Gandhi", Position: 1,
			Image: fmt.Sprintf(img, "1494790108755-2616b612b1d4")},
		{Name: "Rahul Singh", Event: "Science Quiz", House: "Nehru", Position: 2,
			Image: fmt.Sprintf(img, "1472099645785-5658abf4ff4e")},
		{Name: "Ananya Reddy", Event: "Drama Competition", House: "Delany", Position: 1,
			Image: fmt.Sprintf(img, "1438761681033-6461ffad8d80")},
		{Name: "Vikram Kumar", Event: "Art Exhibition", House: "Tagore", Position: 3,
			Image: fmt.Sprintf(img, "1500648767791-00dcc994a43e")},
	}
}
