package review

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/figuredex/figuredex/pkg/auth"
	"github.com/figuredex/figuredex/pkg/registry"
)

// Engine carries contribution requests through their approval lifecycle.
// Submissions are accepted from any authenticated user; resolution is gated
// on reviewer privileges, and every approve effect (field merge, image
// attach) commits in the same transaction as the status transition.
type Engine struct {
	db      *gorm.DB
	reviews *ReviewStore
	records *registry.RecordStore
	logger  *slog.Logger
}

// NewEngine creates a review Engine over the given database handle.
func NewEngine(db *gorm.DB, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		db:      db,
		reviews: NewReviewStore(db),
		records: registry.NewRecordStore(db),
		logger:  logger,
	}
}

// Store returns the underlying review store.
func (e *Engine) Store() *ReviewStore { return e.reviews }

// AutoMigrate migrates the request tables.
func (e *Engine) AutoMigrate() error { return e.reviews.AutoMigrate() }

// requireSubmit gates request creation: any authenticated user may submit.
func requireSubmit(actor auth.Principal) error {
	if !actor.Authenticated() {
		return auth.ErrUnauthenticated
	}
	if auth.Decide(actor.Role, auth.OpSubmitRequest) != auth.Direct {
		return auth.ErrForbidden
	}
	return nil
}

// requireResolve gates request resolution: admins and owners only.
func requireResolve(actor auth.Principal) error {
	if !actor.Authenticated() {
		return auth.ErrUnauthenticated
	}
	if auth.Decide(actor.Role, auth.OpResolveRequest) != auth.Direct {
		return auth.ErrForbidden
	}
	return nil
}

// SubmitEditRequestParams describes a proposed field-level change.
type SubmitEditRequestParams struct {
	RecordID    string
	Type        EditRequestType
	Description string
	NewData     map[string]any
}

// SubmitEditRequest creates a pending edit request. The record's current
// values for every key present in NewData are snapshotted into OldData now;
// the diff base is never recomputed at review time.
func (e *Engine) SubmitEditRequest(actor auth.Principal, p SubmitEditRequestParams) (*EditRequest, error) {
	if err := requireSubmit(actor); err != nil {
		return nil, err
	}
	if !p.Type.Valid() {
		return nil, registry.NewValidationError("type", "unknown edit request type")
	}
	if len(p.NewData) == 0 {
		return nil, registry.NewValidationError("newData", "at least one field is required")
	}
	// Validate the payload now so reviewers never face an unapplicable diff.
	if _, err := registry.MergeFields(p.NewData); err != nil {
		return nil, err
	}

	record, err := e.records.Get(p.RecordID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, registry.ErrNotFound
	}

	req := &EditRequest{
		ID:            uuid.New().String(),
		RecordID:      p.RecordID,
		Type:          p.Type,
		Description:   p.Description,
		OldData:       registry.SnapshotFields(record, p.NewData),
		NewData:       registry.JSONAny(p.NewData),
		Status:        StatusPending,
		RequestedByID: actor.UserID,
	}
	if err := e.reviews.CreateEditRequest(req); err != nil {
		return nil, err
	}
	e.logger.Info("edit request submitted",
		"requestId", req.ID, "recordId", p.RecordID, "requester", actor.UserID, "type", p.Type)
	return req, nil
}

// ResolveEditRequest approves or rejects a pending edit request. On
// approval the proposed fields merge into the record inside the same
// transaction as the status transition; both apply or neither does.
func (e *Engine) ResolveEditRequest(actor auth.Principal, requestID string, decision Decision) (*EditRequest, error) {
	if err := requireResolve(actor); err != nil {
		return nil, err
	}
	if !decision.Valid() {
		return nil, registry.NewValidationError("decision", "must be approve or reject")
	}

	req, err := e.reviews.GetEditRequest(requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, registry.ErrNotFound
	}
	if decision == DecisionApprove && req.RequestedByID == actor.UserID {
		return nil, auth.ErrForbidden
	}

	err = e.db.Transaction(func(tx *gorm.DB) error {
		status := StatusRejected
		if decision == DecisionApprove {
			status = StatusApproved
		}
		if err := markResolvedIn(tx, &EditRequest{}, requestID, status, actor.UserID); err != nil {
			return err
		}
		if decision != DecisionApprove {
			return nil
		}

		updates, err := registry.MergeFields(req.NewData)
		if err != nil {
			return err
		}
		return e.records.WithTx(tx).ApplyPatch(req.RecordID, updates)
	})
	if err != nil {
		return nil, mapStoreError(err)
	}

	e.logger.Info("edit request resolved",
		"requestId", requestID, "decision", decision, "reviewer", actor.UserID)
	return e.reviews.GetEditRequest(requestID)
}

// SubmitImageRequest creates a pending request to replace a record's
// primary image.
func (e *Engine) SubmitImageRequest(actor auth.Principal, recordID, newImageURL, reason string) (*ImageRequest, error) {
	if err := requireSubmit(actor); err != nil {
		return nil, err
	}
	if newImageURL == "" {
		return nil, registry.NewValidationError("newImageUrl", "image url is required")
	}

	record, err := e.records.Get(recordID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, registry.ErrNotFound
	}

	req := &ImageRequest{
		ID:            uuid.New().String(),
		RecordID:      recordID,
		NewImageURL:   newImageURL,
		Reason:        reason,
		Status:        StatusPending,
		RequestedByID: actor.UserID,
	}
	if err := e.reviews.CreateImageRequest(req); err != nil {
		return nil, err
	}
	e.logger.Info("image request submitted",
		"requestId", req.ID, "recordId", recordID, "requester", actor.UserID)
	return req, nil
}

// ResolveImageRequest approves or rejects a pending image request. Approval
// attaches the proposed image as the record's new primary in the same
// transaction as the status transition, so the attach never runs twice.
func (e *Engine) ResolveImageRequest(actor auth.Principal, requestID string, decision Decision) (*ImageRequest, error) {
	if err := requireResolve(actor); err != nil {
		return nil, err
	}
	if !decision.Valid() {
		return nil, registry.NewValidationError("decision", "must be approve or reject")
	}

	req, err := e.reviews.GetImageRequest(requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, registry.ErrNotFound
	}
	if decision == DecisionApprove && req.RequestedByID == actor.UserID {
		return nil, auth.ErrForbidden
	}

	err = e.db.Transaction(func(tx *gorm.DB) error {
		status := StatusRejected
		if decision == DecisionApprove {
			status = StatusApproved
		}
		if err := markResolvedIn(tx, &ImageRequest{}, requestID, status, actor.UserID); err != nil {
			return err
		}
		if decision != DecisionApprove {
			return nil
		}

		_, err := registry.AttachImageIn(tx, registry.AttachImageParams{
			RecordID:     req.RecordID,
			URL:          req.NewImageURL,
			MakePrimary:  true,
			UploadedByID: req.RequestedByID,
		})
		return err
	})
	if err != nil {
		return nil, mapStoreError(err)
	}

	e.logger.Info("image request resolved",
		"requestId", requestID, "decision", decision, "reviewer", actor.UserID)
	return e.reviews.GetImageRequest(requestID)
}

// SubmitUserImage creates a pending free-standing image submission with no
// record binding; a reviewer chooses the target record at approval time.
func (e *Engine) SubmitUserImage(actor auth.Principal, imageURL, title, description string) (*UserSubmittedImage, error) {
	if err := requireSubmit(actor); err != nil {
		return nil, err
	}
	if imageURL == "" {
		return nil, registry.NewValidationError("imageUrl", "image url is required")
	}

	sub := &UserSubmittedImage{
		ID:            uuid.New().String(),
		ImageURL:      imageURL,
		Title:         title,
		Description:   description,
		Status:        StatusPending,
		SubmittedByID: actor.UserID,
	}
	if err := e.reviews.CreateSubmission(sub); err != nil {
		return nil, err
	}
	e.logger.Info("image submitted", "submissionId", sub.ID, "submitter", actor.UserID)
	return sub, nil
}

// ResolveUserImageParams describes a reviewer's verdict on a submission.
// RecordID is required for approval; Reason is appended to the submission's
// description on rejection, keeping the audit trail in place.
type ResolveUserImageParams struct {
	SubmissionID string
	Decision     Decision
	RecordID     string
	Reason       string
}

// ResolveUserImage approves or rejects a pending image submission. Approval
// binds the image to the chosen record as a non-primary image; the attach
// and the status transition commit together.
func (e *Engine) ResolveUserImage(actor auth.Principal, p ResolveUserImageParams) (*UserSubmittedImage, error) {
	if err := requireResolve(actor); err != nil {
		return nil, err
	}
	if !p.Decision.Valid() {
		return nil, registry.NewValidationError("decision", "must be approve or reject")
	}

	sub, err := e.reviews.GetSubmission(p.SubmissionID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, registry.ErrNotFound
	}

	if p.Decision == DecisionApprove {
		if sub.SubmittedByID == actor.UserID {
			return nil, auth.ErrForbidden
		}
		if p.RecordID == "" {
			return nil, registry.NewValidationError("recordId", "a target record is required for approval")
		}
		record, err := e.records.Get(p.RecordID)
		if err != nil {
			return nil, err
		}
		if record == nil {
			return nil, registry.NewValidationError("recordId", "record does not exist")
		}
	}

	err = e.db.Transaction(func(tx *gorm.DB) error {
		if p.Decision == DecisionApprove {
			if err := markResolvedIn(tx, &UserSubmittedImage{}, p.SubmissionID, StatusApproved, actor.UserID); err != nil {
				return err
			}
			altText := sub.Title
			if altText == "" {
				altText = sub.Description
			}
			_, err := registry.AttachImageIn(tx, registry.AttachImageParams{
				RecordID:     p.RecordID,
				URL:          sub.ImageURL,
				AltText:      altText,
				MakePrimary:  false,
				UploadedByID: actor.UserID,
			})
			return err
		}

		if err := markResolvedIn(tx, &UserSubmittedImage{}, p.SubmissionID, StatusRejected, actor.UserID); err != nil {
			return err
		}
		if p.Reason == "" {
			return nil
		}
		description := strings.TrimSpace(sub.Description + "\n\nRejection reason: " + p.Reason)
		return tx.Model(&UserSubmittedImage{}).
			Where("id = ?", p.SubmissionID).
			Update("description", description).Error
	})
	if err != nil {
		return nil, mapStoreError(err)
	}

	e.logger.Info("image submission resolved",
		"submissionId", p.SubmissionID, "decision", p.Decision, "reviewer", actor.UserID)
	return e.reviews.GetSubmission(p.SubmissionID)
}

// ListEditRequests lists edit requests. Reviewers see everything; other
// users see only their own submissions.
func (e *Engine) ListEditRequests(actor auth.Principal, f ListFilter) ([]EditRequest, string, error) {
	if err := scopeFilter(actor, &f); err != nil {
		return nil, "", err
	}
	return e.reviews.ListEditRequests(f)
}

// ListImageRequests lists image requests with the same scoping rule.
func (e *Engine) ListImageRequests(actor auth.Principal, f ListFilter) ([]ImageRequest, string, error) {
	if err := scopeFilter(actor, &f); err != nil {
		return nil, "", err
	}
	return e.reviews.ListImageRequests(f)
}

// ListSubmissions lists image submissions with the same scoping rule.
func (e *Engine) ListSubmissions(actor auth.Principal, f ListFilter) ([]UserSubmittedImage, string, error) {
	if err := scopeFilter(actor, &f); err != nil {
		return nil, "", err
	}
	return e.reviews.ListSubmissions(f)
}

// scopeFilter restricts listings to the caller's own requests unless the
// Gate lets them review.
func scopeFilter(actor auth.Principal, f *ListFilter) error {
	if !actor.Authenticated() {
		return auth.ErrUnauthenticated
	}
	if auth.Decide(actor.Role, auth.OpResolveRequest) != auth.Direct {
		f.RequesterID = actor.UserID
	}
	return nil
}

// mapStoreError classifies transaction failures. Duplicate-key and
// serialization failures become the retryable ErrConflict; taxonomy errors
// pass through unchanged.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, registry.ErrAlreadyResolved) || errors.Is(err, registry.ErrNotFound) {
		return err
	}
	if registry.IsDuplicateKey(err) {
		return registry.ErrConflict
	}
	msg := err.Error()
	if strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "Deadlock found") {
		return registry.ErrConflict
	}
	return err
}
