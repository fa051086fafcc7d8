package registry

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/figuredex/figuredex/pkg/auth"
)

// UserStore provides CRUD operations for users and role management.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a new UserStore.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// AutoMigrate creates or updates the users table.
func (s *UserStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&User{}); err != nil {
		return fmt.Errorf("auto-migrate users: %w", err)
	}
	return nil
}

// Get retrieves a user by ID. Returns nil, nil if no user exists.
func (s *UserStore) Get(id string) (*User, error) {
	var user User
	err := s.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// GetByEmail retrieves a user by email. Returns nil, nil if no user exists.
func (s *UserStore) GetByEmail(email string) (*User, error) {
	var user User
	err := s.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &user, nil
}

// Create inserts a new user, assigning an ID and default role if absent.
func (s *UserStore) Create(user *User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = string(auth.RoleUser)
	}
	if err := s.db.Create(user).Error; err != nil {
		if IsDuplicateKey(err) {
			return ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// List returns paginated users ordered by creation time.
func (s *UserStore) List(pageSize int, pageToken string) ([]User, string, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	query := s.db.Order("created_at ASC").Limit(pageSize + 1)
	if pageToken != "" {
		t, err := time.Parse(time.RFC3339Nano, pageToken)
		if err != nil {
			return nil, "", fmt.Errorf("invalid page token: %w", err)
		}
		query = query.Where("created_at > ?", t)
	}

	var users []User
	if err := query.Find(&users).Error; err != nil {
		return nil, "", fmt.Errorf("list users: %w", err)
	}

	var nextToken string
	if len(users) > pageSize {
		nextToken = users[pageSize-1].CreatedAt.Format(time.RFC3339Nano)
		users = users[:pageSize]
	}

	return users, nextToken, nil
}

// SetRole updates a user's role. Authorization and owner-protection guards
// live in the service layer; the store additionally refuses to overwrite an
// OWNER row so no code path can demote the last owner.
func (s *UserStore) SetRole(id string, role auth.Role) error {
	result := s.db.Model(&User{}).
		Where("id = ? AND role <> ?", id, string(auth.RoleOwner)).
		Update("role", string(role))
	if result.Error != nil {
		return fmt.Errorf("set user role: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureBootstrapOwner promotes the given user to OWNER if and only if no
// owner exists yet. This is the only code path that grants OWNER.
func (s *UserStore) EnsureBootstrapOwner(userID string) (*User, error) {
	var user *User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var owners int64
		if err := tx.Model(&User{}).Where("role = ?", string(auth.RoleOwner)).Count(&owners).Error; err != nil {
			return fmt.Errorf("count owners: %w", err)
		}
		if owners > 0 {
			return auth.ErrForbidden
		}

		result := tx.Model(&User{}).Where("id = ?", userID).Update("role", string(auth.RoleOwner))
		if result.Error != nil {
			return fmt.Errorf("promote bootstrap owner: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		var promoted User
		if err := tx.Where("id = ?", userID).First(&promoted).Error; err != nil {
			return fmt.Errorf("reload promoted user: %w", err)
		}
		user = &promoted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// MigrateLegacyRoles back-fills the deprecated CONTRIBUTOR level to USER.
// Returns the number of rows changed. Safe to run repeatedly.
func (s *UserStore) MigrateLegacyRoles() (int64, error) {
	result := s.db.Model(&User{}).
		Where("role = ?", "CONTRIBUTOR").
		Update("role", string(auth.RoleUser))
	if result.Error != nil {
		return 0, fmt.Errorf("migrate legacy roles: %w", result.Error)
	}
	return result.RowsAffected, nil
}
