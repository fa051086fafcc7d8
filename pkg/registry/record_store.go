package registry

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecordStore provides CRUD operations for figure records and their images.
type RecordStore struct {
	db *gorm.DB
}

// NewRecordStore creates a new RecordStore.
func NewRecordStore(db *gorm.DB) *RecordStore {
	return &RecordStore{db: db}
}

// AutoMigrate creates or updates the record and image tables.
func (s *RecordStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&FigureRecord{}); err != nil {
		return fmt.Errorf("auto-migrate figure_records: %w", err)
	}
	if err := s.db.AutoMigrate(&RecordImage{}); err != nil {
		return fmt.Errorf("auto-migrate record_images: %w", err)
	}
	return nil
}

// WithTx returns a RecordStore bound to the given transaction handle.
func (s *RecordStore) WithTx(tx *gorm.DB) *RecordStore {
	return &RecordStore{db: tx}
}

// Get retrieves a figure record by ID. Returns nil, nil if no record exists.
func (s *RecordStore) Get(id string) (*FigureRecord, error) {
	var record FigureRecord
	err := s.db.Where("id = ?", id).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get figure record: %w", err)
	}
	return &record, nil
}

// Create inserts a new figure record, assigning an ID if absent.
func (s *RecordStore) Create(record *FigureRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("create figure record: %w", err)
	}
	return nil
}

// List returns paginated figure records, optionally filtered by series.
// pageToken is the created-at cursor of the last record from the previous
// page; pass "" for the first page.
func (s *RecordStore) List(seriesID string, pageSize int, pageToken string) ([]FigureRecord, string, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	query := s.db.Order("created_at DESC").Limit(pageSize + 1)
	if seriesID != "" {
		query = query.Where("series_id = ?", seriesID)
	}
	if pageToken != "" {
		t, err := time.Parse(time.RFC3339Nano, pageToken)
		if err != nil {
			return nil, "", fmt.Errorf("invalid page token: %w", err)
		}
		query = query.Where("created_at < ?", t)
	}

	var records []FigureRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, "", fmt.Errorf("list figure records: %w", err)
	}

	var nextToken string
	if len(records) > pageSize {
		nextToken = records[pageSize-1].CreatedAt.Format(time.RFC3339Nano)
		records = records[:pageSize]
	}

	return records, nextToken, nil
}

// ApplyPatch applies a validated column update map to a record. An empty
// update map is a no-op. Returns ErrNotFound if the record does not exist.
func (s *RecordStore) ApplyPatch(id string, updates map[string]any) error {
	if len(updates) == 0 {
		existing, err := s.Get(id)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrNotFound
		}
		return nil
	}
	result := s.db.Model(&FigureRecord{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("update figure record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Images returns all images of a record, primary first.
func (s *RecordStore) Images(recordID string) ([]RecordImage, error) {
	var images []RecordImage
	err := s.db.Where("record_id = ?", recordID).
		Order("is_primary DESC, created_at ASC").
		Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("list record images: %w", err)
	}
	return images, nil
}

// AttachImageParams describes a new image to attach to a record.
type AttachImageParams struct {
	RecordID     string
	URL          string
	AltText      string
	MakePrimary  bool
	UploadedByID string
}

// AttachImage attaches a new image to a record inside its own transaction.
func (s *RecordStore) AttachImage(p AttachImageParams) (*RecordImage, error) {
	var image *RecordImage
	err := s.db.Transaction(func(tx *gorm.DB) error {
		img, err := AttachImageIn(tx, p)
		if err != nil {
			return err
		}
		image = img
		return nil
	})
	if err != nil {
		return nil, err
	}
	return image, nil
}

// AttachImageIn attaches a new image to a record using the caller's
// transaction handle. This is the single primitive both contribution flows
// and direct attachment converge on.
//
// Primary exclusivity: when the new image becomes primary, all existing
// primary flags are cleared first, in the same transaction. The first image
// ever attached to a record becomes primary regardless of MakePrimary.
func AttachImageIn(tx *gorm.DB, p AttachImageParams) (*RecordImage, error) {
	var record FigureRecord
	if err := tx.Where("id = ?", p.RecordID).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get figure record: %w", err)
	}

	var existing int64
	if err := tx.Model(&RecordImage{}).Where("record_id = ?", p.RecordID).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("count record images: %w", err)
	}

	makePrimary := p.MakePrimary
	if existing == 0 {
		makePrimary = true
	}

	if makePrimary {
		err := tx.Model(&RecordImage{}).
			Where("record_id = ? AND is_primary = ?", p.RecordID, true).
			Update("is_primary", false).Error
		if err != nil {
			return nil, fmt.Errorf("demote primary images: %w", err)
		}
	}

	altText := p.AltText
	if altText == "" {
		altText = fmt.Sprintf("%s image", record.Name)
	}

	image := &RecordImage{
		ID:           uuid.New().String(),
		RecordID:     p.RecordID,
		URL:          p.URL,
		AltText:      altText,
		IsPrimary:    makePrimary,
		UploadedByID: p.UploadedByID,
	}
	if err := tx.Create(image).Error; err != nil {
		return nil, fmt.Errorf("create record image: %w", err)
	}
	return image, nil
}

// SetPrimaryImage makes the given image the record's primary image,
// clearing the flag on all others in the same transaction. Returns
// ErrNotFound if the image does not belong to the record.
func (s *RecordStore) SetPrimaryImage(recordID, imageID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var image RecordImage
		err := tx.Where("id = ? AND record_id = ?", imageID, recordID).First(&image).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrNotFound
			}
			return fmt.Errorf("get record image: %w", err)
		}

		err = tx.Model(&RecordImage{}).
			Where("record_id = ? AND is_primary = ?", recordID, true).
			Update("is_primary", false).Error
		if err != nil {
			return fmt.Errorf("demote primary images: %w", err)
		}

		err = tx.Model(&RecordImage{}).
			Where("id = ?", imageID).
			Update("is_primary", true).Error
		if err != nil {
			return fmt.Errorf("promote primary image: %w", err)
		}
		return nil
	})
}

// DeleteImage removes an image from a record. If the deleted image was
// primary and other images remain, the most recently attached remaining
// image is promoted so the record keeps exactly one primary.
func (s *RecordStore) DeleteImage(recordID, imageID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var image RecordImage
		err := tx.Where("id = ? AND record_id = ?", imageID, recordID).First(&image).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrNotFound
			}
			return fmt.Errorf("get record image: %w", err)
		}

		if err := tx.Delete(&RecordImage{}, "id = ?", imageID).Error; err != nil {
			return fmt.Errorf("delete record image: %w", err)
		}

		if !image.IsPrimary {
			return nil
		}

		var successor RecordImage
		err = tx.Where("record_id = ?", recordID).
			Order("created_at DESC").
			First(&successor).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return fmt.Errorf("find successor image: %w", err)
		}

		err = tx.Model(&RecordImage{}).
			Where("id = ?", successor.ID).
			Update("is_primary", true).Error
		if err != nil {
			return fmt.Errorf("promote successor image: %w", err)
		}
		return nil
	})
}
