// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"stackit/internal/models"
	"stackit/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "Password123"

// Factory builds domain entities and persists them through the repositories,
// so tag counters and vote sets stay consistent with what the API would write.
type Factory struct {
	db        *gorm.DB
	faker     *gofakeit.Faker
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
	votes     repository.VoteRepository
	password  string
	seq       int
}

// NewFactory creates a Factory bound to db. A zero seed draws a random one.
func NewFactory(db *gorm.DB, seed int64, fastPasswords bool) (*Factory, error) {
	cost := bcrypt.DefaultCost
	if fastPasswords {
		cost = bcrypt.MinCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		db:        db,
		faker:     gofakeit.New(seed),
		questions: repository.NewQuestionRepository(db),
		answers:   repository.NewAnswerRepository(db),
		votes:     repository.NewVoteRepository(db),
		password:  string(hashed),
	}, nil
}

// Faker exposes the factory's deterministic generator.
func (f *Factory) Faker() *gofakeit.Faker {
	return f.faker
}

// CreateUser constructs and persists a sample user. Overrides run before the insert.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	f.seq++
	username := f.username()
	user := &models.User{
		Username:      username,
		Email:         strings.ToLower(username) + "@example.com",
		Password:      f.password,
		Role:          models.RoleUser,
		Reputation:    f.reputation(),
		Bio:           f.faker.Sentence(12),
		EmailVerified: true,
		LastActive:    f.faker.DateRange(time.Now().AddDate(0, -1, 0), time.Now()),
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateQuestion asks a question tagged with tags on behalf of author.
func (f *Factory) CreateQuestion(ctx context.Context, author *models.User, tags []string, overrides ...func(*models.Question)) (*models.Question, error) {
	topic := "this"
	if len(tags) > 0 {
		topic = tags[0]
	}
	q := &models.Question{
		Title:        fmt.Sprintf("How do I %s the %s %s in %s?", f.faker.HackerVerb(), f.faker.HackerAdjective(), f.faker.HackerNoun(), topic),
		Description:  f.faker.Paragraph(2, 3, 12, "\n\n"),
		AuthorID:     author.ID,
		Views:        f.faker.Number(0, 2500),
		LastActivity: f.faker.DateRange(time.Now().AddDate(0, -3, 0), time.Now()),
	}
	for _, override := range overrides {
		override(q)
	}
	if err := f.questions.Create(ctx, q, tags); err != nil {
		return nil, err
	}
	return q, nil
}

// CreateAnswer answers question on behalf of author.
func (f *Factory) CreateAnswer(ctx context.Context, author *models.User, question *models.Question) (*models.Answer, error) {
	a := &models.Answer{
		Content:    f.faker.Paragraph(1, 4, 14, "\n\n"),
		QuestionID: question.ID,
		AuthorID:   author.ID,
	}
	if err := f.answers.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Vote records voter's vote on a question or answer.
func (f *Factory) Vote(ctx context.Context, target models.VoteTarget, targetID uint, voter *models.User, voteType models.VoteType) error {
	_, err := f.votes.Apply(ctx, target, targetID, voter.ID, voteType)
	return err
}

// Accept marks answer as its question's accepted answer.
func (f *Factory) Accept(ctx context.Context, answer *models.Answer) error {
	_, err := f.answers.ToggleAccept(ctx, answer)
	return err
}

// username returns a unique name that satisfies the username rule.
func (f *Factory) username() string {
	base := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			return r
		}
		return -1
	}, f.faker.Username())
	if len(base) > 22 {
		base = base[:22]
	}
	if len(base) < 3 {
		base = "user"
	}
	return fmt.Sprintf("%s_%d", base, f.seq)
}

// reputation is skewed low so that most users sit below the capability thresholds.
func (f *Factory) reputation() int {
	switch n := f.faker.Number(1, 100); {
	case n <= 60:
		return f.faker.Number(0, models.ReputationToVote-1)
	case n <= 85:
		return f.faker.Number(models.ReputationToVote, models.ReputationToCreateTags)
	case n <= 98:
		return f.faker.Number(models.ReputationToCreateTags, models.ReputationToModerate)
	default:
		return f.faker.Number(models.ReputationToCloseQuestion, 10000)
	}
}
