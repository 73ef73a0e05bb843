package repository

import (
	"context"
	"time"

	"stackit/internal/models"

	"gorm.io/gorm"
)

// VoteRepository persists vote set membership.
type VoteRepository interface {
	// Apply records voteType for userID on the target in one transaction and
	// returns the recomputed count with the user's resulting vote.
	Apply(ctx context.Context, target models.VoteTarget, targetID, userID uint, voteType models.VoteType) (*models.VoteResult, error)
	Load(ctx context.Context, target models.VoteTarget, targetID uint) (models.Votes, error)
}

type voteRepository struct {
	db *gorm.DB
}

// NewVoteRepository returns a new VoteRepository implementation.
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

func (r *voteRepository) Load(ctx context.Context, target models.VoteTarget, targetID uint) (models.Votes, error) {
	votes, err := loadVotes(ctx, r.db, target, []uint{targetID})
	if err != nil {
		return models.Votes{}, models.NewInternalError(err)
	}
	return votes[targetID], nil
}

func (r *voteRepository) Apply(ctx context.Context, target models.VoteTarget, targetID, userID uint, voteType models.VoteType) (*models.VoteResult, error) {
	result, err := r.apply(ctx, target, targetID, userID, voteType)
	if err != nil && isUniqueConstraintError(err) {
		// a concurrent request from the same user won the insert; replay against its row
		result, err = r.apply(ctx, target, targetID, userID, voteType)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return result, nil
}

func (r *voteRepository) apply(ctx context.Context, target models.VoteTarget, targetID, userID uint, voteType models.VoteType) (*models.VoteResult, error) {
	result := &models.VoteResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current []models.Vote
		if err := tx.Where("target_type = ? AND target_id = ? AND user_id = ?", target, targetID, userID).
			Find(&current).Error; err != nil {
			return err
		}
		votes := models.NewVotes(current)
		held := votes.Apply(userID, voteType)

		if err := tx.Where("target_type = ? AND target_id = ? AND user_id = ?", target, targetID, userID).
			Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if held != nil {
			if err := tx.Create(&models.Vote{
				TargetType: target,
				TargetID:   targetID,
				UserID:     userID,
				Type:       *held,
			}).Error; err != nil {
				return err
			}
		}
		if target == models.VoteTargetQuestion {
			if err := tx.Model(&models.Question{ID: targetID}).
				UpdateColumn("last_activity", time.Now()).Error; err != nil {
				return err
			}
		}

		var rows []models.Vote
		if err := tx.Where("target_type = ? AND target_id = ?", target, targetID).Find(&rows).Error; err != nil {
			return err
		}
		stored := models.NewVotes(rows)
		result.VoteCount = stored.Count()
		result.UserVote = stored.Of(userID)
		result.Cast = held != nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
