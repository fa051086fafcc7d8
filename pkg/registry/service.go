package registry

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/figuredex/figuredex/pkg/auth"
)

// CatalogService exposes the role-gated catalog operations. Every mutation
// passes through auth.Decide exactly once; handlers and the CLI never carry
// their own role checks.
type CatalogService struct {
	records *RecordStore
	users   *UserStore
	recs    *RecommendationStore
	logger  *slog.Logger
}

// NewCatalogService creates a CatalogService over the given database handle.
func NewCatalogService(db *gorm.DB, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{
		records: NewRecordStore(db),
		users:   NewUserStore(db),
		recs:    NewRecommendationStore(db),
		logger:  logger,
	}
}

// Records returns the underlying record store.
func (s *CatalogService) Records() *RecordStore { return s.records }

// Users returns the underlying user store.
func (s *CatalogService) Users() *UserStore { return s.users }

// AutoMigrate migrates all catalog tables.
func (s *CatalogService) AutoMigrate() error {
	if err := s.users.AutoMigrate(); err != nil {
		return err
	}
	if err := s.records.AutoMigrate(); err != nil {
		return err
	}
	return s.recs.AutoMigrate()
}

// requireDirect evaluates the Gate for an operation that must apply
// immediately. A Queue decision on a direct entry point means the caller
// should go through the contribution flow instead, and is reported as
// forbidden.
func requireDirect(actor auth.Principal, op auth.Operation) error {
	if !actor.Authenticated() {
		return auth.ErrUnauthenticated
	}
	if auth.Decide(actor.Role, op) != auth.Direct {
		return auth.ErrForbidden
	}
	return nil
}

// GetRecord retrieves a figure record. Returns ErrNotFound if absent.
func (s *CatalogService) GetRecord(id string) (*FigureRecord, error) {
	record, err := s.records.Get(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotFound
	}
	return record, nil
}

// ListRecords returns paginated figure records.
func (s *CatalogService) ListRecords(seriesID string, pageSize int, pageToken string) ([]FigureRecord, string, error) {
	return s.records.List(seriesID, pageSize, pageToken)
}

// RecordImages returns all images of a record.
func (s *CatalogService) RecordImages(recordID string) ([]RecordImage, error) {
	if _, err := s.GetRecord(recordID); err != nil {
		return nil, err
	}
	return s.records.Images(recordID)
}

// CreateRecord inserts a new figure record directly. Admin/owner only.
func (s *CatalogService) CreateRecord(actor auth.Principal, record *FigureRecord) (*FigureRecord, error) {
	if err := requireDirect(actor, auth.OpMutateRecord); err != nil {
		return nil, err
	}
	if record.Name == "" {
		return nil, NewValidationError(FieldName, "name is required")
	}
	record.CreatedByID = actor.UserID
	if err := s.records.Create(record); err != nil {
		return nil, err
	}
	s.logger.Info("record created", "recordId", record.ID, "actor", actor.UserID)
	return record, nil
}

// DirectUpdateRecord applies a partial field update immediately. The Gate
// must yield DIRECT; users go through the edit-request flow instead.
func (s *CatalogService) DirectUpdateRecord(actor auth.Principal, recordID string, fields map[string]any) (*FigureRecord, error) {
	if err := requireDirect(actor, auth.OpMutateRecord); err != nil {
		return nil, err
	}
	updates, err := MergeFields(fields)
	if err != nil {
		return nil, err
	}
	if err := s.records.ApplyPatch(recordID, updates); err != nil {
		return nil, err
	}
	s.logger.Info("record updated", "recordId", recordID, "actor", actor.UserID, "fields", len(updates))
	return s.GetRecord(recordID)
}

// DirectAttachImage attaches an image to a record immediately.
func (s *CatalogService) DirectAttachImage(actor auth.Principal, p AttachImageParams) (*RecordImage, error) {
	if err := requireDirect(actor, auth.OpMutateRecord); err != nil {
		return nil, err
	}
	if p.URL == "" {
		return nil, NewValidationError("url", "image url is required")
	}
	if p.UploadedByID == "" {
		p.UploadedByID = actor.UserID
	}
	image, err := s.records.AttachImage(p)
	if err != nil {
		return nil, err
	}
	s.logger.Info("image attached", "recordId", p.RecordID, "imageId", image.ID, "primary", image.IsPrimary)
	return image, nil
}

// SetPrimaryImage changes a record's primary image.
func (s *CatalogService) SetPrimaryImage(actor auth.Principal, recordID, imageID string) error {
	if err := requireDirect(actor, auth.OpMutateRecord); err != nil {
		return err
	}
	return s.records.SetPrimaryImage(recordID, imageID)
}

// DeleteImage removes an image from a record.
func (s *CatalogService) DeleteImage(actor auth.Principal, recordID, imageID string) error {
	if err := requireDirect(actor, auth.OpMutateRecord); err != nil {
		return err
	}
	return s.records.DeleteImage(recordID, imageID)
}

// ToggleRecommendation flips the actor's like for a record.
func (s *CatalogService) ToggleRecommendation(actor auth.Principal, recordID string) (*ToggleResult, error) {
	if err := requireDirect(actor, auth.OpToggleRecommendation); err != nil {
		return nil, err
	}
	if _, err := s.GetRecord(recordID); err != nil {
		return nil, err
	}
	return s.recs.Toggle(actor.UserID, recordID)
}

// RecommendationStatus reports the actor's like state for a record.
func (s *CatalogService) RecommendationStatus(actor auth.Principal, recordID string) (*ToggleResult, error) {
	if !actor.Authenticated() {
		return nil, auth.ErrUnauthenticated
	}
	if _, err := s.GetRecord(recordID); err != nil {
		return nil, err
	}
	return s.recs.Status(actor.UserID, recordID)
}

// GetUser retrieves a user. Admin surface.
func (s *CatalogService) GetUser(actor auth.Principal, id string) (*User, error) {
	if err := requireDirect(actor, auth.OpReadUsers); err != nil {
		return nil, err
	}
	user, err := s.users.Get(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// ListUsers returns paginated users. Admin surface.
func (s *CatalogService) ListUsers(actor auth.Principal, pageSize int, pageToken string) ([]User, string, error) {
	if err := requireDirect(actor, auth.OpReadUsers); err != nil {
		return nil, "", err
	}
	return s.users.List(pageSize, pageToken)
}

// SetUserRole assigns USER or ADMIN to a target user. The operation kind is
// derived from the full (actor, target, requested) triple so owner
// protection and self-change denial go through the same Gate table as
// everything else.
func (s *CatalogService) SetUserRole(actor auth.Principal, targetID, requestedRole string) (*User, error) {
	if !actor.Authenticated() {
		return nil, auth.ErrUnauthenticated
	}

	requested, err := parseRequestedRole(requestedRole)
	if err != nil {
		return nil, err
	}

	target, err := s.users.Get(targetID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrNotFound
	}

	op := auth.RoleOperation(actor.UserID, targetID, target.ParsedRole(), requested)
	if auth.Decide(actor.Role, op) != auth.Direct {
		return nil, auth.ErrForbidden
	}

	if err := s.users.SetRole(targetID, requested); err != nil {
		return nil, err
	}
	s.logger.Info("user role changed", "userId", targetID, "role", requested, "actor", actor.UserID)
	return s.users.Get(targetID)
}

// BootstrapOwner promotes the actor to OWNER when no owner exists yet.
// Replaces the legacy ad hoc setup endpoints with one gated path.
func (s *CatalogService) BootstrapOwner(actor auth.Principal) (*User, error) {
	if !actor.Authenticated() {
		return nil, auth.ErrUnauthenticated
	}
	user, err := s.users.EnsureBootstrapOwner(actor.UserID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("bootstrap owner promoted", "userId", user.ID)
	return user, nil
}

// parseRequestedRole validates a role assignment payload. Only USER and
// ADMIN are accepted; OWNER passes validation so the Gate can report it as
// forbidden rather than malformed.
func parseRequestedRole(s string) (auth.Role, error) {
	switch s {
	case string(auth.RoleUser), string(auth.RoleAdmin), string(auth.RoleOwner):
		return auth.Role(s), nil
	default:
		return "", NewValidationError("role", "must be USER or ADMIN")
	}
}
