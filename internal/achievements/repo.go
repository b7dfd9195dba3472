package achievements

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valcrest-online/valcrest-backend/pkg/db/models"
)

// Repository manages persistence for the achievement catalog and per-character
// progress.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetAchievement(ctx context.Context, id uuid.UUID) (*models.Achievement, error)
	ListAchievements(ctx context.Context) ([]models.Achievement, error)
	GetProgress(ctx context.Context, achievementID, characterID uuid.UUID) (*models.CharacterAchievement, error)
	ListProgress(ctx context.Context, characterID uuid.UUID) ([]models.CharacterAchievement, error)
	CreateProgress(ctx context.Context, progress *models.CharacterAchievement) error
	UpdateProgress(ctx context.Context, id uuid.UUID, currentValue int, unlockedAt *time.Time) error
	MarkClaimed(ctx context.Context, id uuid.UUID, claimedAt time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an achievements repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetAchievement(ctx context.Context, id uuid.UUID) (*models.Achievement, error) {
	var achievement models.Achievement
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&achievement).Error; err != nil {
		return nil, err
	}
	return &achievement, nil
}

func (r *repository) ListAchievements(ctx context.Context) ([]models.Achievement, error) {
	var achievements []models.Achievement
	if err := r.db.WithContext(ctx).
		Order("code ASC").
		Find(&achievements).Error; err != nil {
		return nil, err
	}
	return achievements, nil
}

func (r *repository) GetProgress(ctx context.Context, achievementID, characterID uuid.UUID) (*models.CharacterAchievement, error) {
	var progress models.CharacterAchievement
	err := r.db.WithContext(ctx).
		Where("achievement_id = ? AND character_id = ?", achievementID, characterID).
		First(&progress).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &progress, nil
}

func (r *repository) ListProgress(ctx context.Context, characterID uuid.UUID) ([]models.CharacterAchievement, error) {
	var rows []models.CharacterAchievement
	if err := r.db.WithContext(ctx).
		Where("character_id = ?", characterID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreateProgress(ctx context.Context, progress *models.CharacterAchievement) error {
	return r.db.WithContext(ctx).Create(progress).Error
}

func (r *repository) UpdateProgress(ctx context.Context, id uuid.UUID, currentValue int, unlockedAt *time.Time) error {
	updates := map[string]any{"current_value": currentValue}
	if unlockedAt != nil {
		updates["unlocked_at"] = *unlockedAt
	}
	return r.db.WithContext(ctx).Model(&models.CharacterAchievement{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// MarkClaimed flips the claim marker exactly once; a second claim affects zero
// rows.
func (r *repository) MarkClaimed(ctx context.Context, id uuid.UUID, claimedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.CharacterAchievement{}).
		Where("id = ? AND claimed_at IS NULL AND unlocked_at IS NOT NULL", id).
		UpdateColumn("claimed_at", claimedAt)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
