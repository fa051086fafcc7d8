package registry

import (
	"time"

	"github.com/figuredex/figuredex/pkg/auth"
)

// User is a GORM model for a registered user.
type User struct {
	ID        string    `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	Name      string    `gorm:"column:name" json:"name"`
	Email     string    `gorm:"column:email;uniqueIndex:idx_user_email;not null" json:"email"`
	Role      string    `gorm:"column:role;not null;default:USER" json:"role"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName returns the GORM table name.
func (User) TableName() string { return "users" }

// ParsedRole returns the user's role with legacy values normalized.
func (u *User) ParsedRole() auth.Role { return auth.ParseRole(u.Role) }

// FigureRecord is a GORM model for a collectible figure in the catalog.
// Series, category, and collaboration are reference data owned elsewhere;
// only their ids are kept here.
type FigureRecord struct {
	ID                string     `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	Name              string     `gorm:"column:name;index:idx_record_name;not null" json:"name"`
	Description       string     `gorm:"column:description" json:"description"`
	SizePercentage    int        `gorm:"column:size_percentage" json:"sizePercentage"`
	RarityPercentage  float64    `gorm:"column:rarity_percentage" json:"rarityPercentage"`
	EstimatedQuantity int        `gorm:"column:estimated_quantity" json:"estimatedQuantity"`
	MaterialType      string     `gorm:"column:material_type" json:"materialType"`
	ReleaseDate       *time.Time `gorm:"column:release_date" json:"releaseDate,omitempty"`
	SeriesID          string     `gorm:"column:series_id;index:idx_record_series" json:"seriesId"`
	CategoryID        string     `gorm:"column:category_id" json:"categoryId"`
	CollaborationID   string     `gorm:"column:collaboration_id" json:"collaborationId"`
	CreatedByID       string     `gorm:"column:created_by_id" json:"createdById"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName returns the GORM table name.
func (FigureRecord) TableName() string { return "figure_records" }

// RecordImage is a GORM model for an image attached to a figure record.
// At most one image per record has IsPrimary set; AttachImageIn and
// SetPrimaryImage enforce this transactionally.
type RecordImage struct {
	ID           string    `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	RecordID     string    `gorm:"column:record_id;index:idx_image_record;not null" json:"recordId"`
	URL          string    `gorm:"column:url;not null" json:"url"`
	AltText      string    `gorm:"column:alt_text" json:"altText"`
	IsPrimary    bool      `gorm:"column:is_primary;not null;default:false" json:"isPrimary"`
	UploadedByID string    `gorm:"column:uploaded_by_id" json:"uploadedById"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

// TableName returns the GORM table name.
func (RecordImage) TableName() string { return "record_images" }

// Recommendation is a GORM model for a user's like of a figure record.
// The pair is unique at the store level; existence means "liked".
type Recommendation struct {
	ID        string    `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"column:user_id;uniqueIndex:idx_recommendation_pair;not null" json:"userId"`
	RecordID  string    `gorm:"column:record_id;uniqueIndex:idx_recommendation_pair;not null" json:"recordId"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

// TableName returns the GORM table name.
func (Recommendation) TableName() string { return "recommendations" }
