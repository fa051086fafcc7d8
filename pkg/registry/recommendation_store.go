package registry

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecommendationStore provides the like/unlike toggle for figure records.
type RecommendationStore struct {
	db *gorm.DB
}

// NewRecommendationStore creates a new RecommendationStore.
func NewRecommendationStore(db *gorm.DB) *RecommendationStore {
	return &RecommendationStore{db: db}
}

// AutoMigrate creates or updates the recommendations table.
func (s *RecommendationStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&Recommendation{}); err != nil {
		return fmt.Errorf("auto-migrate recommendations: %w", err)
	}
	return nil
}

// ToggleResult is the outcome of a recommendation toggle or status read.
type ToggleResult struct {
	Recommended bool  `json:"recommended"`
	Total       int64 `json:"totalRecommendations"`
}

// Toggle flips the recommendation for a (user, record) pair. The unique
// index on the pair backs the race between two concurrent first likes; the
// loser's insert fails with a duplicate key and surfaces as ErrConflict.
// Total is a fresh count after the mutation, never a cached counter.
func (s *RecommendationStore) Toggle(userID, recordID string) (*ToggleResult, error) {
	var result ToggleResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		deleted := tx.Where("user_id = ? AND record_id = ?", userID, recordID).
			Delete(&Recommendation{})
		if deleted.Error != nil {
			return fmt.Errorf("delete recommendation: %w", deleted.Error)
		}

		if deleted.RowsAffected == 0 {
			rec := &Recommendation{
				ID:       uuid.New().String(),
				UserID:   userID,
				RecordID: recordID,
			}
			if err := tx.Create(rec).Error; err != nil {
				if IsDuplicateKey(err) {
					return ErrConflict
				}
				return fmt.Errorf("create recommendation: %w", err)
			}
			result.Recommended = true
		}

		if err := tx.Model(&Recommendation{}).
			Where("record_id = ?", recordID).
			Count(&result.Total).Error; err != nil {
			return fmt.Errorf("count recommendations: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Status reports whether the user currently recommends the record, with a
// fresh total.
func (s *RecommendationStore) Status(userID, recordID string) (*ToggleResult, error) {
	var result ToggleResult

	var existing int64
	err := s.db.Model(&Recommendation{}).
		Where("user_id = ? AND record_id = ?", userID, recordID).
		Count(&existing).Error
	if err != nil {
		return nil, fmt.Errorf("get recommendation: %w", err)
	}
	result.Recommended = existing > 0

	err = s.db.Model(&Recommendation{}).
		Where("record_id = ?", recordID).
		Count(&result.Total).Error
	if err != nil {
		return nil, fmt.Errorf("count recommendations: %w", err)
	}
	return &result, nil
}
