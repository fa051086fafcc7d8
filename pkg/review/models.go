package review

import (
	"time"

	"github.com/figuredex/figuredex/pkg/registry"
)

// RequestStatus represents the lifecycle state of a contribution request.
// PENDING transitions exactly once to APPROVED or REJECTED; both are
// terminal.
type RequestStatus string

const (
	StatusPending  RequestStatus = "PENDING"
	StatusApproved RequestStatus = "APPROVED"
	StatusRejected RequestStatus = "REJECTED"
)

// Decision is a reviewer's verdict on a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Valid reports whether the decision is one of the two known verdicts.
func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// EditRequestType classifies what kind of change an edit request proposes.
type EditRequestType string

const (
	TypeInfoUpdate       EditRequestType = "INFO_UPDATE"
	TypeCategoryChange   EditRequestType = "CATEGORY_CHANGE"
	TypeSeriesCorrection EditRequestType = "SERIES_CORRECTION"
	TypeOther            EditRequestType = "OTHER"
)

// Valid reports whether the type is one of the known edit request types.
func (t EditRequestType) Valid() bool {
	switch t {
	case TypeInfoUpdate, TypeCategoryChange, TypeSeriesCorrection, TypeOther:
		return true
	}
	return false
}

// EditRequest is a GORM model for a proposed field-level change to a figure
// record. OldData snapshots the record's values for the keys present in
// NewData at creation time.
type EditRequest struct {
	ID            string           `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	RecordID      string           `gorm:"column:record_id;index:idx_edit_request_record;not null" json:"recordId"`
	Type          EditRequestType  `gorm:"column:type;not null" json:"type"`
	Description   string           `gorm:"column:description" json:"description"`
	OldData       registry.JSONAny `gorm:"column:old_data;type:text" json:"oldData,omitempty"`
	NewData       registry.JSONAny `gorm:"column:new_data;type:text" json:"newData"`
	Status        RequestStatus    `gorm:"column:status;index:idx_edit_request_status;not null;default:PENDING" json:"status"`
	RequestedByID string           `gorm:"column:requested_by_id;not null" json:"requestedById"`
	ReviewedByID  string           `gorm:"column:reviewed_by_id" json:"reviewedById,omitempty"`
	ReviewedAt    *time.Time       `gorm:"column:reviewed_at" json:"reviewedAt,omitempty"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

// TableName returns the GORM table name.
func (EditRequest) TableName() string { return "edit_requests" }

// ImageRequest is a GORM model for a proposed replacement of a record's
// primary image. The target record is bound at submission time.
type ImageRequest struct {
	ID            string        `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	RecordID      string        `gorm:"column:record_id;index:idx_image_request_record;not null" json:"recordId"`
	NewImageURL   string        `gorm:"column:new_image_url;not null" json:"newImageUrl"`
	Reason        string        `gorm:"column:reason" json:"reason"`
	Status        RequestStatus `gorm:"column:status;index:idx_image_request_status;not null;default:PENDING" json:"status"`
	RequestedByID string        `gorm:"column:requested_by_id;not null" json:"requestedById"`
	ReviewedByID  string        `gorm:"column:reviewed_by_id" json:"reviewedById,omitempty"`
	ReviewedAt    *time.Time    `gorm:"column:reviewed_at" json:"reviewedAt,omitempty"`
	CreatedAt     time.Time     `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

// TableName returns the GORM table name.
func (ImageRequest) TableName() string { return "image_requests" }

// UserSubmittedImage is a GORM model for a free-standing image submission.
// Unlike ImageRequest there is no record binding until a reviewer supplies
// one at approval time.
type UserSubmittedImage struct {
	ID            string        `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	ImageURL      string        `gorm:"column:image_url;not null" json:"imageUrl"`
	Title         string        `gorm:"column:title" json:"title"`
	Description   string        `gorm:"column:description" json:"description"`
	Status        RequestStatus `gorm:"column:status;index:idx_submission_status;not null;default:PENDING" json:"status"`
	SubmittedByID string        `gorm:"column:submitted_by_id;not null" json:"submittedById"`
	ReviewedByID  string        `gorm:"column:reviewed_by_id" json:"reviewedById,omitempty"`
	ReviewedAt    *time.Time    `gorm:"column:reviewed_at" json:"reviewedAt,omitempty"`
	CreatedAt     time.Time     `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

// TableName returns the GORM table name.
func (UserSubmittedImage) TableName() string { return "user_submitted_images" }
