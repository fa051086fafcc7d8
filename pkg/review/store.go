package review

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/figuredex/figuredex/pkg/registry"
)

// ReviewStore provides CRUD operations for the three contribution request
// kinds. All three share the same pending-guard transition primitive.
type ReviewStore struct {
	db *gorm.DB
}

// NewReviewStore creates a new ReviewStore.
func NewReviewStore(db *gorm.DB) *ReviewStore {
	return &ReviewStore{db: db}
}

// AutoMigrate creates or updates the request tables.
func (s *ReviewStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&EditRequest{}); err != nil {
		return fmt.Errorf("auto-migrate edit_requests: %w", err)
	}
	if err := s.db.AutoMigrate(&ImageRequest{}); err != nil {
		return fmt.Errorf("auto-migrate image_requests: %w", err)
	}
	if err := s.db.AutoMigrate(&UserSubmittedImage{}); err != nil {
		return fmt.Errorf("auto-migrate user_submitted_images: %w", err)
	}
	return nil
}

// CreateEditRequest inserts a new pending edit request.
func (s *ReviewStore) CreateEditRequest(req *EditRequest) error {
	if err := s.db.Create(req).Error; err != nil {
		return fmt.Errorf("create edit request: %w", err)
	}
	return nil
}

// GetEditRequest retrieves an edit request by ID. Returns nil, nil if absent.
func (s *ReviewStore) GetEditRequest(id string) (*EditRequest, error) {
	var req EditRequest
	if err := s.db.Where("id = ?", id).First(&req).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get edit request: %w", err)
	}
	return &req, nil
}

// ListEditRequests returns paginated edit requests, optionally filtered by
// status, record, and requester.
func (s *ReviewStore) ListEditRequests(f ListFilter) ([]EditRequest, string, error) {
	var requests []EditRequest
	nextToken, err := listRequests(s.db.Model(&EditRequest{}), "requested_by_id", f, &requests,
		func(i int) time.Time { return requests[i].CreatedAt })
	if err != nil {
		return nil, "", fmt.Errorf("list edit requests: %w", err)
	}
	return requests, nextToken, nil
}

// CreateImageRequest inserts a new pending image request.
func (s *ReviewStore) CreateImageRequest(req *ImageRequest) error {
	if err := s.db.Create(req).Error; err != nil {
		return fmt.Errorf("create image request: %w", err)
	}
	return nil
}

// GetImageRequest retrieves an image request by ID. Returns nil, nil if absent.
func (s *ReviewStore) GetImageRequest(id string) (*ImageRequest, error) {
	var req ImageRequest
	if err := s.db.Where("id = ?", id).First(&req).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get image request: %w", err)
	}
	return &req, nil
}

// ListImageRequests returns paginated image requests.
func (s *ReviewStore) ListImageRequests(f ListFilter) ([]ImageRequest, string, error) {
	var requests []ImageRequest
	nextToken, err := listRequests(s.db.Model(&ImageRequest{}), "requested_by_id", f, &requests,
		func(i int) time.Time { return requests[i].CreatedAt })
	if err != nil {
		return nil, "", fmt.Errorf("list image requests: %w", err)
	}
	return requests, nextToken, nil
}

// CreateSubmission inserts a new pending image submission.
func (s *ReviewStore) CreateSubmission(sub *UserSubmittedImage) error {
	if err := s.db.Create(sub).Error; err != nil {
		return fmt.Errorf("create image submission: %w", err)
	}
	return nil
}

// GetSubmission retrieves an image submission by ID. Returns nil, nil if absent.
func (s *ReviewStore) GetSubmission(id string) (*UserSubmittedImage, error) {
	var sub UserSubmittedImage
	if err := s.db.Where("id = ?", id).First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get image submission: %w", err)
	}
	return &sub, nil
}

// ListSubmissions returns paginated image submissions (the global moderation
// queue when filtered to PENDING).
func (s *ReviewStore) ListSubmissions(f ListFilter) ([]UserSubmittedImage, string, error) {
	var subs []UserSubmittedImage
	nextToken, err := listRequests(s.db.Model(&UserSubmittedImage{}), "submitted_by_id", f, &subs,
		func(i int) time.Time { return subs[i].CreatedAt })
	if err != nil {
		return nil, "", fmt.Errorf("list image submissions: %w", err)
	}
	return subs, nextToken, nil
}

// ListFilter narrows and paginates request listings.
type ListFilter struct {
	Status      RequestStatus
	RecordID    string
	RequesterID string
	PageSize    int
	PageToken   string
}

// listRequests applies the shared filter, ordering, and cursor pagination.
// The requester column differs per table; submissions use submitted_by_id.
func listRequests[T any](query *gorm.DB, requesterColumn string, f ListFilter, out *[]T, createdAt func(int) time.Time) (string, error) {
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	if f.Status != "" {
		query = query.Where("status = ?", string(f.Status))
	}
	if f.RecordID != "" {
		query = query.Where("record_id = ?", f.RecordID)
	}
	if f.RequesterID != "" {
		query = query.Where(requesterColumn+" = ?", f.RequesterID)
	}
	if f.PageToken != "" {
		t, err := time.Parse(time.RFC3339Nano, f.PageToken)
		if err != nil {
			return "", fmt.Errorf("invalid page token: %w", err)
		}
		query = query.Where("created_at < ?", t)
	}

	if err := query.Order("created_at DESC").Limit(pageSize + 1).Find(out).Error; err != nil {
		return "", err
	}

	var nextToken string
	if len(*out) > pageSize {
		nextToken = createdAt(pageSize - 1).Format(time.RFC3339Nano)
		*out = (*out)[:pageSize]
	}
	return nextToken, nil
}

// markResolvedIn transitions a request out of PENDING using the caller's
// transaction handle. The status predicate in the WHERE clause is what makes
// concurrent resolution safe: of two racing reviewers, exactly one update
// affects a row; the other observes zero rows and reports ErrAlreadyResolved.
func markResolvedIn(tx *gorm.DB, model any, id string, status RequestStatus, reviewerID string) error {
	now := time.Now()
	result := tx.Model(model).
		Where("id = ? AND status = ?", id, string(StatusPending)).
		Updates(map[string]any{
			"status":         string(status),
			"reviewed_by_id": reviewerID,
			"reviewed_at":    &now,
		})
	if result.Error != nil {
		return fmt.Errorf("resolve request: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return registry.ErrAlreadyResolved
	}
	return nil
}
