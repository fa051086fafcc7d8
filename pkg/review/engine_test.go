package review

import (
	"log/slog"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/figuredex/figuredex/pkg/auth"
	"github.com/figuredex/figuredex/pkg/registry"
)

var (
	anonActor   = auth.Principal{}
	userActor   = auth.Principal{UserID: "user-1", Role: auth.RoleUser}
	user2Actor  = auth.Principal{UserID: "user-2", Role: auth.RoleUser}
	adminActor  = auth.Principal{UserID: "admin-1", Role: auth.RoleAdmin}
	admin2Actor = auth.Principal{UserID: "admin-2", Role: auth.RoleAdmin}
)

// newTestEngine creates an Engine over an in-memory SQLite DB with all
// tables migrated.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, registry.NewRecordStore(db).AutoMigrate())
	engine := NewEngine(db, slog.Default())
	require.NoError(t, engine.AutoMigrate())
	return engine
}

func mustCreateRecord(t *testing.T, e *Engine, name string) *registry.FigureRecord {
	t.Helper()
	rec := &registry.FigureRecord{Name: name, SizePercentage: 100}
	require.NoError(t, e.records.Create(rec))
	return rec
}

func TestSubmitEditRequest(t *testing.T) {
	engine := newTestEngine(t)
	rec := mustCreateRecord(t, engine, "Figure")

	req, err := engine.SubmitEditRequest(userActor, SubmitEditRequestParams{
		RecordID:    rec.ID,
		Type:        TypeInfoUpdate,
		Description: "fix the size",
		NewData:     map[string]any{"sizePercentage": float64(400), "name": "Corrected"},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, "user-1", req.RequestedByID)

	// OldData snapshots the record's pre-change values for the patched keys.
	assert.Equal(t, "Figure", req.OldData["name"])
	assert.EqualValues(t, 100, req.OldData["sizePercentage"])
	assert.NotContains(t, req.OldData, "description")
}

func TestSubmitEditRequest_Validation(t *testing.T) {
	engine := newTestEngine(t)
	rec := mustCreateRecord(t, engine, "Figure")

	_, err := engine.SubmitEditRequest(anonActor, SubmitEditRequestParams{
		RecordID: rec.ID, Type: TypeInfoUpdate, NewData: map[string]any{"name": "x"},
	})
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)

	_, err = engine.SubmitEditRequest(userActor, SubmitEditRequestParams{
		RecordID: rec.ID, Type: EditRequestType("BOGUS"), NewData: map[string]any{"name": "x"},
	})
	var verr *registry.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = engine.SubmitEditRequest(userActor, SubmitEditRequestParams{
		RecordID: rec.ID, Type: TypeInfoUpdate,
	})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "newData", verr.Field)

	// Unapplicable payloads are rejected at submission, not at review.
	_, err = engine.SubmitEditRequest(userActor, SubmitEditRequestParams{
		RecordID: rec.ID, Type: TypeInfoUpdate, NewData: map[string]any{"bogusField": "x"},
	})
	require.ErrorAs(t, err, &verr)

	_, err = engine.SubmitEditRequest(userActor, SubmitEditRequestParams{
		RecordID: "missing", Type: TypeInfoUpdate, NewData: map[string]any{"name": "x"},
	})
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestResolveEditRequest_Approve(t *testing.T) {
	engine := newTestEngine(t)
	rec := mustCreateRecord(t, engine, "Figure")

	req, err := engine.SubmitEditRequest(userActor, SubmitEditRequestParams{
		RecordID: rec.ID, Type: TypeInfoUpdate,
		NewData: map[string]any{"name": "Approved Name", "sizePercentage": float64(0)},
	})
	require.NoError(t, err)

	resolved, err := engine.ResolveEditRequest(adminActor, req.ID, DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, resolved.Status)
	assert.Equal(t, "admin-1", resolved.ReviewedByID)
	require.NotNil(t, resolved.ReviewedAt)

	// The merge applied, including the zero value.
	got, err := engine.records.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Approved Name", got.Name)
	assert.Zero(t, got.SizePercentage)
}

func TestResolveEditRequest_Reject(t *testing.T) {
	engine := newTestEngine(t)
	rec := mustCreateRecord(t, engine, "Figure")

	req, err := engine.SubmitEditRequest(userActor, SubmitEditRequestParams{
		RecordID: rec.ID, Type: TypeInfoUpdate, NewData: map[string]any{"name": "Rejected Name"},
	})
	require.NoError(t, err)

	resolved, err := engine.ResolveEditRequest(adminActor, req.ID, DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, resolved.Status)

	// Rejection leaves the record untouched.
	got, err := engine.records.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Figure", got.Name)
}

func TestResolveEditRequest_ExactlyOnce(t *testing.T) {
	engine := newTestEngine(t)
	rec := mustCreateRecord(t, engine, "Figure")

	req, err := engine.SubmitEditRequest(userActor, SubmitEditRequestParams{
		RecordID: rec.ID, Type: TypeInfoUpdate, NewData: map[string]any{"name": "Once"},
	})
	require.NoError(t, err)

	_, err = engine.ResolveEditRequest(adminActor, req.ID, DecisionApprove)
	require.NoError(t, err)

	// A second resolution of any kind loses.
	_, err = engine.ResolveEditRequest(admin2Actor, req.ID, DecisionReject)
	assert.ErrorIs(t, err, registry.ErrAlreadyResolved)
	_, err = engine.ResolveEditRequest(admin2Actor, req.ID, DecisionApprove)
	assert.ErrorIs(t, err, registry.ErrAlreadyResolved)

	got, err := engine.reviews.GetEditRequest(req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
	assert.Equal(t, "admin-1", got.ReviewedByID)
}

func TestResolveEditRequest_Guards(t *testing.T) {
	engine := newTestEngine(t)
	rec := mustCreateRecord(t, engine, "Figure")

	req, err := engine.SubmitEditRequest(adminActor, SubmitEditRequestParams{
		RecordID: rec.ID, Type: TypeInfoUpdate, NewData: map[string]any{"name": "Self"},
	})
	require.NoError(t, err)

	// Users cannot resolve.
	_, err = engine.ResolveEditRequest(userActor, req.ID, DecisionApprove)
	assert.ErrorIs(t, err, auth.ErrForbidden)

	// Reviewers cannot approve their own request.
	_, err = engine.ResolveEditRequest(adminActor, req.ID, DecisionApprove)
	assert.ErrorIs(t, err, auth.ErrForbidden)

	// But they may reject it.
	resolved, err := engine.ResolveEditRequest(adminActor, req.ID, DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, resolved.Status)

	_, err = engine.ResolveEditRequest(adminActor, "missing", DecisionApprove)
	assert.ErrorIs(t, err, registry.ErrNotFound)

	_, err = engine.ResolveEditRequest(adminActor, req.ID, Decision("maybe"))
	var verr *registry.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestResolveImageRequest_Approve(t *testing.T) {
	engine := newTestEngine(t)
	rec := mustCreateRecord(t, engine, "Figure")

	// Seed an existing primary so the replacement is observable.
	_, err := registry.NewRecordStore(engine.db).AttachImage(registry.AttachImageParams{
		RecordID: rec.ID, URL: "https://img.example/old.jpg",
	})
	require.NoError(t, err)

	req, err := engine.SubmitImageRequest(userActor, rec.ID, "https://img.example/new.jpg", "better shot")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, req.Status)

	resolved, err := engine.ResolveImageRequest(adminActor, req.ID, DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, resolved.Status)

	images, err := registry.NewRecordStore(engine.db).Images(rec.ID)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "https://img.example/new.jpg", images[0].URL, "approved image is the new primary")
	assert.True(t, images[0].IsPrimary)
	assert.Equal(t, "user-1", images[0].UploadedByID, "attributed to the requester, not the reviewer")
	assert.False(t, images[1].IsPrimary)
}

func TestResolveImageRequest_ExactlyOnce(t *testing.T) {
	engine := newTestEngine(t)
	rec := mustCreateRecord(t, engine, "Figure")

	req, err := engine.SubmitImageRequest(userActor, rec.ID, "https://img.example/new.jpg", "")
	require.NoError(t, err)

	_, err = engine.ResolveImageRequest(adminActor, req.ID, DecisionApprove)
	require.NoError(t, err)
	_, err = engine.ResolveImageRequest(admin2Actor, req.ID, DecisionApprove)
	assert.ErrorIs(t, err, registry.ErrAlreadyResolved)

	// The attach ran exactly once.
	images, err := registry.NewRecordStore(engine.db).Images(rec.ID)
	require.NoError(t, err)
	assert.Len(t, images, 1)
}

func TestSubmitImageRequest_Validation(t *testing.T) {
	engine := newTestEngine(t)
	rec := mustCreateRecord(t, engine, "Figure")

	_, err := engine.SubmitImageRequest(userActor, rec.ID, "", "")
	var verr *registry.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "newImageUrl", verr.Field)

	_, err = engine.SubmitImageRequest(userActor, "missing", "https://img.example/x.jpg", "")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestResolveUserImage_Approve(t *testing.T) {
	engine := newTestEngine(t)
	rec := mustCreateRecord(t, engine, "Figure")

	// Record already has a primary; an approved submission must not displace it.
	primary, err := registry.NewRecordStore(engine.db).AttachImage(registry.AttachImageParams{
		RecordID: rec.ID, URL: "https://img.example/primary.jpg",
	})
	require.NoError(t, err)

	sub, err := engine.SubmitUserImage(userActor, "https://img.example/extra.jpg", "Side view", "")
	require.NoError(t, err)

	resolved, err := engine.ResolveUserImage(adminActor, ResolveUserImageParams{
		SubmissionID: sub.ID,
		Decision:     DecisionApprove,
		RecordID:     rec.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, resolved.Status)

	images, err := registry.NewRecordStore(engine.db).Images(rec.ID)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, primary.ID, images[0].ID, "existing primary keeps its flag")
	assert.Equal(t, "Side view", images[1].AltText)
	assert.Equal(t, "admin-1", images[1].UploadedByID, "attributed to the attaching reviewer")
	assert.False(t, images[1].IsPrimary)
}

func TestResolveUserImage_ApproveRequiresRecord(t *testing.T) {
	engine := newTestEngine(t)

	sub, err := engine.SubmitUserImage(userActor, "https://img.example/x.jpg", "", "")
	require.NoError(t, err)

	// No target record: validation error, submission stays pending.
	_, err = engine.ResolveUserImage(adminActor, ResolveUserImageParams{
		SubmissionID: sub.ID,
		Decision:     DecisionApprove,
	})
	var verr *registry.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "recordId", verr.Field)

	// Nonexistent target record: same outcome.
	_, err = engine.ResolveUserImage(adminActor, ResolveUserImageParams{
		SubmissionID: sub.ID,
		Decision:     DecisionApprove,
		RecordID:     "missing",
	})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "recordId", verr.Field)

	got, err := engine.reviews.GetSubmission(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestResolveUserImage_RejectAppendsReason(t *testing.T) {
	engine := newTestEngine(t)

	sub, err := engine.SubmitUserImage(userActor, "https://img.example/x.jpg", "Blurry", "taken at the expo")
	require.NoError(t, err)

	resolved, err := engine.ResolveUserImage(adminActor, ResolveUserImageParams{
		SubmissionID: sub.ID,
		Decision:     DecisionReject,
		Reason:       "image is out of focus",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, resolved.Status)
	assert.Equal(t, "taken at the expo\n\nRejection reason: image is out of focus", resolved.Description)
}

func TestResolveUserImage_RejectWithoutReason(t *testing.T) {
	engine := newTestEngine(t)

	sub, err := engine.SubmitUserImage(userActor, "https://img.example/x.jpg", "", "original text")
	require.NoError(t, err)

	resolved, err := engine.ResolveUserImage(adminActor, ResolveUserImageParams{
		SubmissionID: sub.ID,
		Decision:     DecisionReject,
	})
	require.NoError(t, err)
	assert.Equal(t, "original text", resolved.Description)
}

func TestResolveUserImage_SelfApprovalForbidden(t *testing.T) {
	engine := newTestEngine(t)
	rec := mustCreateRecord(t, engine, "Figure")

	sub, err := engine.SubmitUserImage(adminActor, "https://img.example/x.jpg", "", "")
	require.NoError(t, err)

	_, err = engine.ResolveUserImage(adminActor, ResolveUserImageParams{
		SubmissionID: sub.ID,
		Decision:     DecisionApprove,
		RecordID:     rec.ID,
	})
	assert.ErrorIs(t, err, auth.ErrForbidden)
}

func TestListScoping(t *testing.T) {
	engine := newTestEngine(t)
	rec := mustCreateRecord(t, engine, "Figure")

	_, err := engine.SubmitEditRequest(userActor, SubmitEditRequestParams{
		RecordID: rec.ID, Type: TypeInfoUpdate, NewData: map[string]any{"name": "A"},
	})
	require.NoError(t, err)
	_, err = engine.SubmitEditRequest(user2Actor, SubmitEditRequestParams{
		RecordID: rec.ID, Type: TypeInfoUpdate, NewData: map[string]any{"name": "B"},
	})
	require.NoError(t, err)

	// Reviewers see everything.
	all, _, err := engine.ListEditRequests(adminActor, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Plain users see only their own.
	mine, _, err := engine.ListEditRequests(userActor, ListFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "user-1", mine[0].RequestedByID)

	// Scoping ignores a forged requester filter.
	forged, _, err := engine.ListEditRequests(userActor, ListFilter{RequesterID: "user-2"})
	require.NoError(t, err)
	require.Len(t, forged, 1)
	assert.Equal(t, "user-1", forged[0].RequestedByID)

	_, _, err = engine.ListEditRequests(anonActor, ListFilter{})
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestListEditRequests_StatusFilter(t *testing.T) {
	engine := newTestEngine(t)
	rec := mustCreateRecord(t, engine, "Figure")

	req, err := engine.SubmitEditRequest(userActor, SubmitEditRequestParams{
		RecordID: rec.ID, Type: TypeInfoUpdate, NewData: map[string]any{"name": "A"},
	})
	require.NoError(t, err)
	_, err = engine.SubmitEditRequest(userActor, SubmitEditRequestParams{
		RecordID: rec.ID, Type: TypeInfoUpdate, NewData: map[string]any{"name": "B"},
	})
	require.NoError(t, err)

	_, err = engine.ResolveEditRequest(adminActor, req.ID, DecisionReject)
	require.NoError(t, err)

	pending, _, err := engine.ListEditRequests(adminActor, ListFilter{Status: StatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	rejected, _, err := engine.ListEditRequests(adminActor, ListFilter{Status: StatusRejected})
	require.NoError(t, err)
	assert.Len(t, rejected, 1)
}

func TestMapStoreError(t *testing.T) {
	assert.Nil(t, mapStoreError(nil))
	assert.ErrorIs(t, mapStoreError(registry.ErrAlreadyResolved), registry.ErrAlreadyResolved)
	assert.ErrorIs(t, mapStoreError(registry.ErrNotFound), registry.ErrNotFound)

	assert.ErrorIs(t, mapStoreError(assert.AnError), assert.AnError)

	locked := gorm.ErrInvalidTransaction
	assert.ErrorIs(t, mapStoreError(locked), locked)
}
