package seed

import (
	"context"
	"fmt"
	"log/slog"

	"stackit/internal/middleware"
	"stackit/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	Users      int
	Questions  int
	MaxAnswers int
	// Clean wipes every StackIt table first.
	Clean bool
	// FastPasswords hashes the shared password with the minimum bcrypt cost.
	FastPasswords bool
	// RandSeed makes a run reproducible; zero picks a random seed.
	RandSeed int64
}

// Summary counts what a Seed run created.
type Summary struct {
	OfficialTags int
	Users        int
	Questions    int
	Answers      int
	Votes        int
	Accepted     int
}

// truncated in dependency order
var seededTables = []string{
	"notifications",
	"votes",
	"answer_comments",
	"answers",
	"question_tags",
	"questions",
	"tags",
	"users",
}

// Seed populates the database with users, questions, answers and votes on
// top of the official tag catalogue.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	middleware.Logger.Info("starting database seed",
		slog.Int("users", opts.Users),
		slog.Int("questions", opts.Questions))

	if opts.Clean {
		if err := Clear(ctx, db); err != nil {
			return nil, fmt.Errorf("clear data: %w", err)
		}
	}

	sum := &Summary{}
	var err error
	if sum.OfficialTags, err = OfficialTags(ctx, db); err != nil {
		return nil, fmt.Errorf("seed official tags: %w", err)
	}
	catalogue, err := Catalogue()
	if err != nil {
		return nil, err
	}

	f, err := NewFactory(db, opts.RandSeed, opts.FastPasswords)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		u, err := f.CreateUser(ctx)
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	sum.Users = len(users)
	if len(users) == 0 {
		return sum, nil
	}

	faker := f.Faker()
	maxAnswers := opts.MaxAnswers
	if maxAnswers <= 0 {
		maxAnswers = 3
	}

	for i := 0; i < opts.Questions; i++ {
		author := users[faker.Number(0, len(users)-1)]
		tags := pickTags(faker.Number(1, 3), catalogue, func(n int) int { return faker.Number(0, n-1) })
		q, err := f.CreateQuestion(ctx, author, tags)
		if err != nil {
			return nil, fmt.Errorf("create question: %w", err)
		}
		sum.Questions++

		votes, err := castVotes(ctx, f, models.VoteTargetQuestion, q.ID, author.ID, users)
		if err != nil {
			return nil, err
		}
		sum.Votes += votes

		var answers []*models.Answer
		for _, answerer := range distinctOthers(users, author.ID, faker.Number(0, maxAnswers), func(n int) int { return faker.Number(0, n-1) }) {
			a, err := f.CreateAnswer(ctx, answerer, q)
			if err != nil {
				return nil, fmt.Errorf("create answer: %w", err)
			}
			answers = append(answers, a)
			sum.Answers++

			votes, err := castVotes(ctx, f, models.VoteTargetAnswer, a.ID, answerer.ID, users)
			if err != nil {
				return nil, err
			}
			sum.Votes += votes
		}

		if len(answers) > 0 && faker.Bool() {
			if err := f.Accept(ctx, answers[faker.Number(0, len(answers)-1)]); err != nil {
				return nil, fmt.Errorf("accept answer: %w", err)
			}
			sum.Accepted++
		}
	}

	middleware.Logger.Info("database seed finished",
		slog.Int("users", sum.Users),
		slog.Int("questions", sum.Questions),
		slog.Int("answers", sum.Answers),
		slog.Int("votes", sum.Votes))
	return sum, nil
}

// Clear deletes every row of the StackIt tables.
func Clear(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range seededTables {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}

// castVotes has a random subset of voters, never the author, vote on the target.
// Upvotes outnumber downvotes roughly four to one.
func castVotes(ctx context.Context, f *Factory, target models.VoteTarget, targetID, authorID uint, users []*models.User) (int, error) {
	faker := f.Faker()
	voters := distinctOthers(users, authorID, faker.Number(0, 6), func(n int) int { return faker.Number(0, n-1) })
	for _, voter := range voters {
		voteType := models.VoteUp
		if faker.Number(1, 5) == 1 {
			voteType = models.VoteDown
		}
		if err := f.Vote(ctx, target, targetID, voter, voteType); err != nil {
			return 0, fmt.Errorf("vote on %s %d: %w", target, targetID, err)
		}
	}
	return len(voters), nil
}

// pickTags draws n distinct tag names from the catalogue.
func pickTags(n int, catalogue []CatalogueTag, intn func(int) int) []string {
	if n > len(catalogue) {
		n = len(catalogue)
	}
	pool := make([]string, len(catalogue))
	for i, t := range catalogue {
		pool[i] = t.Name
	}
	for i := 0; i < n; i++ {
		j := i + intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}

// distinctOthers draws up to n distinct users other than excludeID.
func distinctOthers(users []*models.User, excludeID uint, n int, intn func(int) int) []*models.User {
	pool := make([]*models.User, 0, len(users))
	for _, u := range users {
		if u.ID != excludeID {
			pool = append(pool, u)
		}
	}
	if n > len(pool) {
		n = len(pool)
	}
	for i := 0; i < n; i++ {
		j := i + intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}
