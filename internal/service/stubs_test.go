package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stackit/internal/middleware"
	"stackit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// userRepoStub is a stub for repository.UserRepository. Unset functions return zero values.
type userRepoStub struct {
	getByIDFn         func(context.Context, uint) (*models.User, error)
	getFreshFn        func(context.Context, uint) (*models.User, error)
	getByEmailFn      func(context.Context, string) (*models.User, error)
	getByUsernameFn   func(context.Context, string) (*models.User, error)
	getByResetTokenFn func(context.Context, string, time.Time) (*models.User, error)
	createFn          func(context.Context, *models.User) error
	updateFieldsFn    func(context.Context, uint, map[string]any) error
	touchFn           func(context.Context, uint, time.Time) error
	deleteFn          func(context.Context, uint) error
	listFn            func(context.Context, models.UserFilter) ([]models.User, int64, error)
	statsFn           func(context.Context, uint) (*models.UserStats, error)
	profileFn         func(context.Context, *models.User, int, int) (*models.UserProfile, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	if s.getByIDFn == nil {
		return &models.User{ID: id}, nil
	}
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetFresh(ctx context.Context, id uint) (*models.User, error) {
	if s.getFreshFn == nil {
		return &models.User{ID: id}, nil
	}
	return s.getFreshFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.getByEmailFn == nil {
		return nil, nil
	}
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if s.getByUsernameFn == nil {
		return nil, nil
	}
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) GetByResetToken(ctx context.Context, hash string, now time.Time) (*models.User, error) {
	if s.getByResetTokenFn == nil {
		return nil, nil
	}
	return s.getByResetTokenFn(ctx, hash, now)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, user)
}
func (s *userRepoStub) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	if s.updateFieldsFn == nil {
		return nil
	}
	return s.updateFieldsFn(ctx, id, fields)
}
func (s *userRepoStub) TouchLastActive(ctx context.Context, id uint, at time.Time) error {
	if s.touchFn == nil {
		return nil
	}
	return s.touchFn(ctx, id, at)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, id)
}
func (s *userRepoStub) List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error) {
	if s.listFn == nil {
		return nil, 0, nil
	}
	return s.listFn(ctx, filter)
}
func (s *userRepoStub) ListAdmins(context.Context) ([]models.User, error) { return nil, nil }
func (s *userRepoStub) Stats(ctx context.Context, id uint) (*models.UserStats, error) {
	if s.statsFn == nil {
		return &models.UserStats{}, nil
	}
	return s.statsFn(ctx, id)
}
func (s *userRepoStub) Profile(ctx context.Context, user *models.User, page, limit int) (*models.UserProfile, error) {
	if s.profileFn == nil {
		return &models.UserProfile{User: user.Public()}, nil
	}
	return s.profileFn(ctx, user, page, limit)
}

// questionRepoStub is a stub for repository.QuestionRepository.
type questionRepoStub struct {
	createFn    func(context.Context, *models.Question, []string) error
	getFn       func(context.Context, uint) (*models.Question, error)
	getByIDFn   func(context.Context, uint, uint) (*models.Question, error)
	updateFn    func(context.Context, uint, map[string]any, []string, uint) error
	deleteFn    func(context.Context, uint) error
	setClosedFn func(context.Context, uint, bool) error
	viewsFn     func(context.Context, uint) error
	touchFn     func(context.Context, uint, time.Time) error
	listFn      func(context.Context, models.QuestionFilter) ([]*models.Question, int64, error)
}

func (s *questionRepoStub) Create(ctx context.Context, q *models.Question, tags []string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, q, tags)
}
func (s *questionRepoStub) Get(ctx context.Context, id uint) (*models.Question, error) {
	if s.getFn == nil {
		return nil, models.NewNotFoundError("Question", id)
	}
	return s.getFn(ctx, id)
}
func (s *questionRepoStub) GetByID(ctx context.Context, id, viewerID uint) (*models.Question, error) {
	if s.getByIDFn == nil {
		return s.Get(ctx, id)
	}
	return s.getByIDFn(ctx, id, viewerID)
}
func (s *questionRepoStub) Update(ctx context.Context, id uint, fields map[string]any, tags []string, userID uint) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(ctx, id, fields, tags, userID)
}
func (s *questionRepoStub) Delete(ctx context.Context, id uint) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, id)
}
func (s *questionRepoStub) SetClosed(ctx context.Context, id uint, closed bool) error {
	if s.setClosedFn == nil {
		return nil
	}
	return s.setClosedFn(ctx, id, closed)
}
func (s *questionRepoStub) IncrementViews(ctx context.Context, id uint) error {
	if s.viewsFn == nil {
		return nil
	}
	return s.viewsFn(ctx, id)
}
func (s *questionRepoStub) TouchActivity(ctx context.Context, id uint, at time.Time) error {
	if s.touchFn == nil {
		return nil
	}
	return s.touchFn(ctx, id, at)
}
func (s *questionRepoStub) List(ctx context.Context, filter models.QuestionFilter) ([]*models.Question, int64, error) {
	if s.listFn == nil {
		return nil, 0, nil
	}
	return s.listFn(ctx, filter)
}

// answerRepoStub is a stub for repository.AnswerRepository.
type answerRepoStub struct {
	createFn        func(context.Context, *models.Answer) error
	getFn           func(context.Context, uint) (*models.Answer, error)
	getByIDFn       func(context.Context, uint, uint) (*models.Answer, error)
	hasAnsweredFn   func(context.Context, uint, uint) (bool, error)
	listFn          func(context.Context, uint, models.AnswerSort, int, int, uint) ([]*models.Answer, int64, error)
	updateFn        func(context.Context, uint, string) error
	deleteFn        func(context.Context, uint) error
	toggleAcceptFn  func(context.Context, *models.Answer) (bool, error)
	addCommentFn    func(context.Context, *models.AnswerComment) error
	getCommentFn    func(context.Context, uint, uint) (*models.AnswerComment, error)
	deleteCommentFn func(context.Context, uint) error
}

func (s *answerRepoStub) Create(ctx context.Context, a *models.Answer) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, a)
}
func (s *answerRepoStub) Get(ctx context.Context, id uint) (*models.Answer, error) {
	if s.getFn == nil {
		return nil, models.NewNotFoundError("Answer", id)
	}
	return s.getFn(ctx, id)
}
func (s *answerRepoStub) GetByID(ctx context.Context, id, viewerID uint) (*models.Answer, error) {
	if s.getByIDFn == nil {
		return &models.Answer{ID: id}, nil
	}
	return s.getByIDFn(ctx, id, viewerID)
}
func (s *answerRepoStub) HasAnswered(ctx context.Context, questionID, authorID uint) (bool, error) {
	if s.hasAnsweredFn == nil {
		return false, nil
	}
	return s.hasAnsweredFn(ctx, questionID, authorID)
}
func (s *answerRepoStub) ListByQuestion(ctx context.Context, questionID uint, sort models.AnswerSort, page, limit int, viewerID uint) ([]*models.Answer, int64, error) {
	if s.listFn == nil {
		return nil, 0, nil
	}
	return s.listFn(ctx, questionID, sort, page, limit, viewerID)
}
func (s *answerRepoStub) UpdateContent(ctx context.Context, id uint, content string) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(ctx, id, content)
}
func (s *answerRepoStub) Delete(ctx context.Context, id uint) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, id)
}
func (s *answerRepoStub) ToggleAccept(ctx context.Context, a *models.Answer) (bool, error) {
	if s.toggleAcceptFn == nil {
		return true, nil
	}
	return s.toggleAcceptFn(ctx, a)
}
func (s *answerRepoStub) AddComment(ctx context.Context, c *models.AnswerComment) error {
	if s.addCommentFn == nil {
		return nil
	}
	return s.addCommentFn(ctx, c)
}
func (s *answerRepoStub) GetComment(ctx context.Context, answerID, commentID uint) (*models.AnswerComment, error) {
	if s.getCommentFn == nil {
		return nil, models.NewNotFoundError("Comment", commentID)
	}
	return s.getCommentFn(ctx, answerID, commentID)
}
func (s *answerRepoStub) DeleteComment(ctx context.Context, commentID uint) error {
	if s.deleteCommentFn == nil {
		return nil
	}
	return s.deleteCommentFn(ctx, commentID)
}

// tagRepoStub is a stub for repository.TagRepository.
type tagRepoStub struct {
	getByIDFn      func(context.Context, uint) (*models.Tag, error)
	getByNameFn    func(context.Context, string) (*models.Tag, error)
	createFn       func(context.Context, *models.Tag) error
	updateFieldsFn func(context.Context, uint, map[string]any) error
	deleteFn       func(context.Context, uint) error
	countFn        func(context.Context, uint) (int64, error)
	popularFn      func(context.Context, int) ([]models.Tag, error)
	searchFn       func(context.Context, string, int) ([]models.Tag, error)
}

func (s *tagRepoStub) FindOrCreate(_ context.Context, name string, _ uint) (*models.Tag, error) {
	return &models.Tag{Name: name}, nil
}
func (s *tagRepoStub) GetByID(ctx context.Context, id uint) (*models.Tag, error) {
	if s.getByIDFn == nil {
		return nil, models.NewNotFoundError("Tag", id)
	}
	return s.getByIDFn(ctx, id)
}
func (s *tagRepoStub) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	if s.getByNameFn == nil {
		return nil, nil
	}
	return s.getByNameFn(ctx, name)
}
func (s *tagRepoStub) Create(ctx context.Context, tag *models.Tag) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tag)
}
func (s *tagRepoStub) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	if s.updateFieldsFn == nil {
		return nil
	}
	return s.updateFieldsFn(ctx, id, fields)
}
func (s *tagRepoStub) Delete(ctx context.Context, id uint) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, id)
}
func (s *tagRepoStub) CountQuestions(ctx context.Context, id uint) (int64, error) {
	if s.countFn == nil {
		return 0, nil
	}
	return s.countFn(ctx, id)
}
func (s *tagRepoStub) List(context.Context, models.TagFilter) ([]models.Tag, int64, error) {
	return nil, 0, nil
}
func (s *tagRepoStub) Popular(ctx context.Context, limit int) ([]models.Tag, error) {
	if s.popularFn == nil {
		return nil, nil
	}
	return s.popularFn(ctx, limit)
}
func (s *tagRepoStub) Search(ctx context.Context, q string, limit int) ([]models.Tag, error) {
	if s.searchFn == nil {
		return nil, nil
	}
	return s.searchFn(ctx, q, limit)
}

// voteRepoStub is a stub for repository.VoteRepository.
type voteRepoStub struct {
	applyFn func(context.Context, models.VoteTarget, uint, uint, models.VoteType) (*models.VoteResult, error)
}

func (s *voteRepoStub) Apply(ctx context.Context, target models.VoteTarget, id, userID uint, voteType models.VoteType) (*models.VoteResult, error) {
	return s.applyFn(ctx, target, id, userID, voteType)
}
func (s *voteRepoStub) Load(context.Context, models.VoteTarget, uint) (models.Votes, error) {
	return models.NewVotes(nil), nil
}

// notificationRepoStub is a stub for repository.NotificationRepository.
type notificationRepoStub struct {
	getFn         func(context.Context, uint) (*models.Notification, error)
	getDeletedFn  func(context.Context, uint) (*models.Notification, error)
	listFn        func(context.Context, uint, models.NotificationFilter) ([]models.Notification, int64, error)
	setReadFn     func(context.Context, uint, bool, time.Time) error
	markAllReadFn func(context.Context, uint, time.Time) (int64, error)
	deleteFn      func(context.Context, uint) error
	deleteAllFn   func(context.Context, uint) (int64, error)
	restoreFn     func(context.Context, uint) error
	purgeFn       func(context.Context, time.Time) (int64, error)
}

func (s *notificationRepoStub) Create(context.Context, *models.Notification) error { return nil }
func (s *notificationRepoStub) Get(ctx context.Context, id uint) (*models.Notification, error) {
	return s.getFn(ctx, id)
}
func (s *notificationRepoStub) GetIncludingDeleted(ctx context.Context, id uint) (*models.Notification, error) {
	return s.getDeletedFn(ctx, id)
}
func (s *notificationRepoStub) List(ctx context.Context, recipientID uint, filter models.NotificationFilter) ([]models.Notification, int64, error) {
	if s.listFn == nil {
		return nil, 0, nil
	}
	return s.listFn(ctx, recipientID, filter)
}
func (s *notificationRepoStub) SetRead(ctx context.Context, id uint, read bool, at time.Time) error {
	if s.setReadFn == nil {
		return nil
	}
	return s.setReadFn(ctx, id, read, at)
}
func (s *notificationRepoStub) MarkAllRead(ctx context.Context, recipientID uint, at time.Time) (int64, error) {
	return s.markAllReadFn(ctx, recipientID, at)
}
func (s *notificationRepoStub) CountUnread(context.Context, uint) (int64, error) { return 0, nil }
func (s *notificationRepoStub) Delete(ctx context.Context, id uint) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, id)
}
func (s *notificationRepoStub) DeleteAll(ctx context.Context, recipientID uint) (int64, error) {
	return s.deleteAllFn(ctx, recipientID)
}
func (s *notificationRepoStub) Restore(ctx context.Context, id uint) error {
	if s.restoreFn == nil {
		return nil
	}
	return s.restoreFn(ctx, id)
}
func (s *notificationRepoStub) PurgeRead(ctx context.Context, olderThan time.Time) (int64, error) {
	return s.purgeFn(ctx, olderThan)
}

// recordingEmitter collects emitted notification events.
type recordingEmitter struct {
	mu     sync.Mutex
	events []models.NotificationEvent
}

func (r *recordingEmitter) Emit(_ context.Context, ev models.NotificationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingEmitter) Events() []models.NotificationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.NotificationEvent(nil), r.events...)
}

// countPublisher records the recipients whose unread count was pushed.
type countPublisher struct {
	mu         sync.Mutex
	recipients []uint
}

func (p *countPublisher) PublishUnreadCount(_ context.Context, recipientID uint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recipients = append(p.recipients, recipientID)
}

// tokenStub issues predictable tokens and records revocations.
type tokenStub struct {
	issued  int
	revoked []*middleware.Claims
	failFn  func() error
}

func (s *tokenStub) Issue(userID uint, username string) (string, *middleware.Claims, error) {
	if s.failFn != nil {
		if err := s.failFn(); err != nil {
			return "", nil, err
		}
	}
	s.issued++
	return "token-" + username, &middleware.Claims{UserID: userID, Username: username}, nil
}

func (s *tokenStub) Revoke(_ context.Context, claims *middleware.Claims) error {
	s.revoked = append(s.revoked, claims)
	return nil
}

func assertAppError(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func member(id uint, username string) *models.User {
	return &models.User{ID: id, Username: username, Role: models.RoleUser}
}

func admin(id uint) *models.User {
	return &models.User{ID: id, Username: "admin", Role: models.RoleAdmin}
}
