package review

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/figuredex/figuredex/pkg/auth"
	"github.com/figuredex/figuredex/pkg/registry"
)

func actorFrom(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}

// listFilterFrom reads the shared listing query parameters.
func listFilterFrom(r *http.Request) ListFilter {
	f := ListFilter{
		Status:    RequestStatus(r.URL.Query().Get("status")),
		RecordID:  r.URL.Query().Get("recordId"),
		PageToken: r.URL.Query().Get("pageToken"),
	}
	if ps := r.URL.Query().Get("pageSize"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 {
			f.PageSize = v
		}
	}
	return f
}

// canView reports whether the actor may see a request they did not create.
func canView(actor auth.Principal, requesterID string) bool {
	if actor.UserID == requesterID {
		return true
	}
	return auth.Decide(actor.Role, auth.OpResolveRequest) == auth.Direct
}

// submitEditRequestHandler creates a pending edit request.
// POST /edit-requests
func submitEditRequestHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RecordID    string         `json:"recordId"`
			Type        string         `json:"type"`
			Description string         `json:"description"`
			NewData     map[string]any `json:"newData"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			registry.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req, err := engine.SubmitEditRequest(actorFrom(r), SubmitEditRequestParams{
			RecordID:    body.RecordID,
			Type:        EditRequestType(body.Type),
			Description: body.Description,
			NewData:     body.NewData,
		})
		if err != nil {
			registry.WriteDomainError(w, err)
			return
		}
		registry.WriteJSON(w, http.StatusCreated, req)
	}
}

// listEditRequestsHandler lists edit requests scoped to the caller.
// GET /edit-requests?status=PENDING&recordId=...
func listEditRequestsHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requests, nextToken, err := engine.ListEditRequests(actorFrom(r), listFilterFrom(r))
		if err != nil {
			registry.WriteDomainError(w, err)
			return
		}
		registry.WriteJSON(w, http.StatusOK, map[string]any{
			"requests":      requests,
			"nextPageToken": nextToken,
		})
	}
}

// getEditRequestHandler retrieves one edit request.
// GET /edit-requests/{id}
func getEditRequestHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := engine.Store().GetEditRequest(chi.URLParam(r, "id"))
		if err != nil {
			registry.WriteDomainError(w, err)
			return
		}
		if req == nil || !canView(actorFrom(r), req.RequestedByID) {
			registry.WriteError(w, http.StatusNotFound, "edit request not found")
			return
		}
		registry.WriteJSON(w, http.StatusOK, req)
	}
}

// resolveEditRequestHandler approves or rejects a pending edit request.
// POST /edit-requests/{id}/resolve
func resolveEditRequestHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Decision string `json:"decision"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			registry.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req, err := engine.ResolveEditRequest(actorFrom(r), chi.URLParam(r, "id"), Decision(body.Decision))
		if err != nil {
			registry.WriteDomainError(w, err)
			return
		}
		registry.WriteJSON(w, http.StatusOK, req)
	}
}

// submitImageRequestHandler creates a pending primary-image replacement.
// POST /image-requests
func submitImageRequestHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RecordID    string `json:"recordId"`
			NewImageURL string `json:"newImageUrl"`
			Reason      string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			registry.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req, err := engine.SubmitImageRequest(actorFrom(r), body.RecordID, body.NewImageURL, body.Reason)
		if err != nil {
			registry.WriteDomainError(w, err)
			return
		}
		registry.WriteJSON(w, http.StatusCreated, req)
	}
}

// listImageRequestsHandler lists image requests scoped to the caller.
// GET /image-requests
func listImageRequestsHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requests, nextToken, err := engine.ListImageRequests(actorFrom(r), listFilterFrom(r))
		if err != nil {
			registry.WriteDomainError(w, err)
			return
		}
		registry.WriteJSON(w, http.StatusOK, map[string]any{
			"requests":      requests,
			"nextPageToken": nextToken,
		})
	}
}

// getImageRequestHandler retrieves one image request.
// GET /image-requests/{id}
func getImageRequestHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := engine.Store().GetImageRequest(chi.URLParam(r, "id"))
		if err != nil {
			registry.WriteDomainError(w, err)
			return
		}
		if req == nil || !canView(actorFrom(r), req.RequestedByID) {
			registry.WriteError(w, http.StatusNotFound, "image request not found")
			return
		}
		registry.WriteJSON(w, http.StatusOK, req)
	}
}

// resolveImageRequestHandler approves or rejects a pending image request.
// POST /image-requests/{id}/resolve
func resolveImageRequestHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Decision string `json:"decision"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			registry.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req, err := engine.ResolveImageRequest(actorFrom(r), chi.URLParam(r, "id"), Decision(body.Decision))
		if err != nil {
			registry.WriteDomainError(w, err)
			return
		}
		registry.WriteJSON(w, http.StatusOK, req)
	}
}

// submitUserImageHandler accepts a free-standing image submission.
// POST /image-submissions
func submitUserImageHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ImageURL    string `json:"imageUrl"`
			Title       string `json:"title"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			registry.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		sub, err := engine.SubmitUserImage(actorFrom(r), body.ImageURL, body.Title, body.Description)
		if err != nil {
			registry.WriteDomainError(w, err)
			return
		}
		registry.WriteJSON(w, http.StatusCreated, sub)
	}
}

// listSubmissionsHandler lists image submissions scoped to the caller.
// GET /image-submissions?status=PENDING
func listSubmissionsHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subs, nextToken, err := engine.ListSubmissions(actorFrom(r), listFilterFrom(r))
		if err != nil {
			registry.WriteDomainError(w, err)
			return
		}
		registry.WriteJSON(w, http.StatusOK, map[string]any{
			"submissions":   subs,
			"nextPageToken": nextToken,
		})
	}
}

// getSubmissionHandler retrieves one image submission.
// GET /image-submissions/{id}
func getSubmissionHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := engine.Store().GetSubmission(chi.URLParam(r, "id"))
		if err != nil {
			registry.WriteDomainError(w, err)
			return
		}
		if sub == nil || !canView(actorFrom(r), sub.SubmittedByID) {
			registry.WriteError(w, http.StatusNotFound, "image submission not found")
			return
		}
		registry.WriteJSON(w, http.StatusOK, sub)
	}
}

// resolveSubmissionHandler approves or rejects a pending image submission.
// Approval requires a target recordId in the body.
// POST /image-submissions/{id}/resolve
func resolveSubmissionHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Decision string `json:"decision"`
			RecordID string `json:"recordId"`
			Reason   string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			registry.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		sub, err := engine.ResolveUserImage(actorFrom(r), ResolveUserImageParams{
			SubmissionID: chi.URLParam(r, "id"),
			Decision:     Decision(body.Decision),
			RecordID:     body.RecordID,
			Reason:       body.Reason,
		})
		if err != nil {
			registry.WriteDomainError(w, err)
			return
		}
		registry.WriteJSON(w, http.StatusOK, sub)
	}
}
