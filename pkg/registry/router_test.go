package registry

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/figuredex/figuredex/pkg/auth"
)

// newTestServer wires a full router behind the identity middleware, the same
// way the server binary mounts it.
func newTestServer(t *testing.T) (*httptest.Server, *CatalogService) {
	t.Helper()
	svc := NewCatalogService(newTestDB(t), slog.Default())
	handler := auth.IdentityMiddleware(nil)(NewRouter(svc))
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts, svc
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, actor auth.Principal, body any) *http.Response {
	t.Helper()
	var payload *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewReader(data)
	} else {
		payload = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ts.URL+path, payload)
	require.NoError(t, err)
	if actor.UserID != "" {
		req.Header.Set(auth.UserIDHeader, actor.UserID)
		req.Header.Set(auth.RoleHeader, string(actor.Role))
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestRouter_RecordLifecycle(t *testing.T) {
	ts, _ := newTestServer(t)

	// Anonymous browsing works.
	resp := doRequest(t, ts, http.MethodGet, "/records", anonActor, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Create requires admin.
	resp = doRequest(t, ts, http.MethodPost, "/records", userActor, map[string]any{"name": "Figure"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, ts, http.MethodPost, "/records", adminActor, map[string]any{"name": "Figure"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody(t, resp)
	recordID, _ := created["id"].(string)
	require.NotEmpty(t, recordID)

	// Patch applies presence-based merge over HTTP.
	resp = doRequest(t, ts, http.MethodPatch, "/records/"+recordID, adminActor, map[string]any{
		"name":           "Renamed",
		"sizePercentage": 0,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	patched := decodeBody(t, resp)
	assert.Equal(t, "Renamed", patched["name"])
	assert.EqualValues(t, 0, patched["sizePercentage"])

	// Fetch returns record plus images.
	resp = doRequest(t, ts, http.MethodGet, "/records/"+recordID, anonActor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fetched := decodeBody(t, resp)
	assert.Contains(t, fetched, "record")
	assert.Contains(t, fetched, "images")
}

func TestRouter_ErrorMapping(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doRequest(t, ts, http.MethodGet, "/records/missing", anonActor, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doRequest(t, ts, http.MethodPatch, "/records/missing", anonActor, map[string]any{"name": "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, ts, http.MethodPost, "/records", adminActor, map[string]any{"name": ""})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "name", body["field"])
}

func TestRouter_ImageEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doRequest(t, ts, http.MethodPost, "/records", adminActor, map[string]any{"name": "Figure"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	recordID := decodeBody(t, resp)["id"].(string)

	resp = doRequest(t, ts, http.MethodPost, "/records/"+recordID+"/images", adminActor, map[string]any{
		"url": "https://img.example/1.jpg",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	first := decodeBody(t, resp)
	assert.Equal(t, true, first["isPrimary"])
	firstID := first["id"].(string)

	resp = doRequest(t, ts, http.MethodPost, "/records/"+recordID+"/images", adminActor, map[string]any{
		"url": "https://img.example/2.jpg", "isPrimary": true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	secondID := decodeBody(t, resp)["id"].(string)

	// Flip primary back to the first image.
	resp = doRequest(t, ts, http.MethodPost, "/records/"+recordID+"/images/"+firstID+"/primary", adminActor, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, ts, http.MethodDelete, "/records/"+recordID+"/images/"+secondID, adminActor, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, ts, http.MethodGet, "/records/"+recordID+"/images", anonActor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	images := decodeBody(t, resp)["images"].([]any)
	require.Len(t, images, 1)
}

func TestRouter_Recommendation(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doRequest(t, ts, http.MethodPost, "/records", adminActor, map[string]any{"name": "Figure"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	recordID := decodeBody(t, resp)["id"].(string)

	resp = doRequest(t, ts, http.MethodPost, "/records/"+recordID+"/recommendation", userActor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeBody(t, resp)
	assert.Equal(t, true, result["recommended"])
	assert.EqualValues(t, 1, result["totalRecommendations"])

	resp = doRequest(t, ts, http.MethodPost, "/records/"+recordID+"/recommendation", userActor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result = decodeBody(t, resp)
	assert.Equal(t, false, result["recommended"])

	resp = doRequest(t, ts, http.MethodPost, "/records/"+recordID+"/recommendation", anonActor, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_UserManagement(t *testing.T) {
	ts, svc := newTestServer(t)

	target := &User{Email: "target@example.com"}
	require.NoError(t, svc.Users().Create(target))

	resp := doRequest(t, ts, http.MethodGet, "/users", userActor, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, ts, http.MethodGet, "/users", adminActor, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, ts, http.MethodPatch, "/users/"+target.ID+"/role", adminActor, map[string]any{"role": "ADMIN"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, ts, http.MethodPatch, "/users/"+target.ID+"/role", ownerActor, map[string]any{"role": "ADMIN"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody(t, resp)
	assert.Equal(t, "ADMIN", updated["role"])

	resp = doRequest(t, ts, http.MethodPatch, "/users/"+target.ID+"/role", ownerActor, map[string]any{"role": "OWNER"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRouter_BootstrapOwner(t *testing.T) {
	ts, svc := newTestServer(t)

	first := &User{ID: "user-1", Email: "first@example.com"}
	require.NoError(t, svc.Users().Create(first))

	resp := doRequest(t, ts, http.MethodPost, "/users/bootstrap-owner", userActor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	promoted := decodeBody(t, resp)
	assert.Equal(t, "OWNER", promoted["role"])

	second := &User{ID: "user-2", Email: "second@example.com"}
	require.NoError(t, svc.Users().Create(second))
	resp = doRequest(t, ts, http.MethodPost, "/users/bootstrap-owner",
		auth.Principal{UserID: "user-2", Role: auth.RoleUser}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
