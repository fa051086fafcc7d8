package registry

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/figuredex/figuredex/pkg/auth"
)

var (
	anonActor  = auth.Principal{}
	userActor  = auth.Principal{UserID: "user-1", Role: auth.RoleUser}
	adminActor = auth.Principal{UserID: "admin-1", Role: auth.RoleAdmin}
	ownerActor = auth.Principal{UserID: "owner-1", Role: auth.RoleOwner}
)

func newTestService(t *testing.T) *CatalogService {
	t.Helper()
	return NewCatalogService(newTestDB(t), slog.Default())
}

func TestCatalogService_CreateRecord(t *testing.T) {
	svc := newTestService(t)

	rec, err := svc.CreateRecord(adminActor, &FigureRecord{Name: "New Figure"})
	require.NoError(t, err)
	assert.Equal(t, "admin-1", rec.CreatedByID)

	// Users go through the edit-request flow, never the direct path.
	_, err = svc.CreateRecord(userActor, &FigureRecord{Name: "Nope"})
	assert.ErrorIs(t, err, auth.ErrForbidden)

	_, err = svc.CreateRecord(anonActor, &FigureRecord{Name: "Nope"})
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)

	_, err = svc.CreateRecord(adminActor, &FigureRecord{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestCatalogService_DirectUpdateRecord(t *testing.T) {
	svc := newTestService(t)
	rec, err := svc.CreateRecord(adminActor, &FigureRecord{Name: "Figure"})
	require.NoError(t, err)

	updated, err := svc.DirectUpdateRecord(adminActor, rec.ID, map[string]any{"name": "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	_, err = svc.DirectUpdateRecord(userActor, rec.ID, map[string]any{"name": "Blocked"})
	assert.ErrorIs(t, err, auth.ErrForbidden)

	_, err = svc.DirectUpdateRecord(adminActor, "missing", map[string]any{"name": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogService_DirectAttachImage(t *testing.T) {
	svc := newTestService(t)
	rec, err := svc.CreateRecord(adminActor, &FigureRecord{Name: "Figure"})
	require.NoError(t, err)

	img, err := svc.DirectAttachImage(adminActor, AttachImageParams{
		RecordID: rec.ID,
		URL:      "https://img.example/1.jpg",
	})
	require.NoError(t, err)
	assert.True(t, img.IsPrimary)
	assert.Equal(t, "admin-1", img.UploadedByID)

	_, err = svc.DirectAttachImage(adminActor, AttachImageParams{RecordID: rec.ID})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "url", verr.Field)

	_, err = svc.DirectAttachImage(userActor, AttachImageParams{RecordID: rec.ID, URL: "https://img.example/2.jpg"})
	assert.ErrorIs(t, err, auth.ErrForbidden)
}

func TestCatalogService_ToggleRecommendation(t *testing.T) {
	svc := newTestService(t)
	rec, err := svc.CreateRecord(adminActor, &FigureRecord{Name: "Figure"})
	require.NoError(t, err)

	result, err := svc.ToggleRecommendation(userActor, rec.ID)
	require.NoError(t, err)
	assert.True(t, result.Recommended)

	_, err = svc.ToggleRecommendation(anonActor, rec.ID)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)

	_, err = svc.ToggleRecommendation(userActor, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogService_UserSurface(t *testing.T) {
	svc := newTestService(t)
	target := &User{Email: "target@example.com"}
	require.NoError(t, svc.Users().Create(target))

	// Admin can read users; plain users cannot.
	got, err := svc.GetUser(adminActor, target.ID)
	require.NoError(t, err)
	assert.Equal(t, target.ID, got.ID)

	_, err = svc.GetUser(userActor, target.ID)
	assert.ErrorIs(t, err, auth.ErrForbidden)

	_, _, err = svc.ListUsers(userActor, 10, "")
	assert.ErrorIs(t, err, auth.ErrForbidden)
}

func TestCatalogService_SetUserRole(t *testing.T) {
	svc := newTestService(t)
	target := &User{Email: "target@example.com"}
	require.NoError(t, svc.Users().Create(target))

	// Only owners manage roles.
	_, err := svc.SetUserRole(adminActor, target.ID, "ADMIN")
	assert.ErrorIs(t, err, auth.ErrForbidden)

	updated, err := svc.SetUserRole(ownerActor, target.ID, "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", updated.Role)

	updated, err = svc.SetUserRole(ownerActor, target.ID, "USER")
	require.NoError(t, err)
	assert.Equal(t, "USER", updated.Role)
}

func TestCatalogService_SetUserRole_OwnerProtection(t *testing.T) {
	svc := newTestService(t)
	ownerRow := &User{ID: ownerActor.UserID, Email: "owner@example.com", Role: "OWNER"}
	require.NoError(t, svc.Users().Create(ownerRow))
	target := &User{Email: "target@example.com"}
	require.NoError(t, svc.Users().Create(target))

	// OWNER can never be granted through the API.
	_, err := svc.SetUserRole(ownerActor, target.ID, "OWNER")
	assert.ErrorIs(t, err, auth.ErrForbidden)

	// An owner row can never be targeted, not even by another owner.
	_, err = svc.SetUserRole(ownerActor, ownerRow.ID, "USER")
	assert.ErrorIs(t, err, auth.ErrForbidden)

	// Self-change is denied.
	other := &User{ID: "owner-2", Email: "owner2@example.com", Role: "OWNER"}
	require.NoError(t, svc.Users().Create(other))
	actor2 := auth.Principal{UserID: "owner-2", Role: auth.RoleOwner}
	_, err = svc.SetUserRole(actor2, "owner-2", "ADMIN")
	assert.ErrorIs(t, err, auth.ErrForbidden)

	// Malformed roles are validation errors, not permission errors.
	_, err = svc.SetUserRole(ownerActor, target.ID, "SUPERUSER")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "role", verr.Field)
}

func TestCatalogService_BootstrapOwner(t *testing.T) {
	svc := newTestService(t)
	first := &User{ID: "user-1", Email: "first@example.com"}
	require.NoError(t, svc.Users().Create(first))

	promoted, err := svc.BootstrapOwner(userActor)
	require.NoError(t, err)
	assert.Equal(t, "OWNER", promoted.Role)

	second := &User{ID: "user-2", Email: "second@example.com"}
	require.NoError(t, svc.Users().Create(second))
	_, err = svc.BootstrapOwner(auth.Principal{UserID: "user-2", Role: auth.RoleUser})
	assert.ErrorIs(t, err, auth.ErrForbidden)

	_, err = svc.BootstrapOwner(anonActor)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}
