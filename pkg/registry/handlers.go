package registry

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/figuredex/figuredex/pkg/auth"
)

// actorFrom resolves the request principal placed by auth.IdentityMiddleware.
func actorFrom(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}

// pageParams reads the shared pagination query parameters.
func pageParams(r *http.Request) (int, string) {
	pageSize := 20
	if ps := r.URL.Query().Get("pageSize"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 {
			pageSize = v
		}
	}
	return pageSize, r.URL.Query().Get("pageToken")
}

// listRecordsHandler returns paginated figure records.
// GET /records?seriesId=...&pageSize=20&pageToken=...
func listRecordsHandler(svc *CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pageSize, pageToken := pageParams(r)
		records, nextToken, err := svc.ListRecords(r.URL.Query().Get("seriesId"), pageSize, pageToken)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{
			"records":       records,
			"nextPageToken": nextToken,
		})
	}
}

// getRecordHandler returns one figure record with its images.
// GET /records/{id}
func getRecordHandler(svc *CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		record, err := svc.GetRecord(id)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		images, err := svc.RecordImages(id)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{
			"record": record,
			"images": images,
		})
	}
}

// createRecordHandler inserts a new record directly. Admin surface.
// POST /records
func createRecordHandler(svc *CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var record FigureRecord
		if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		created, err := svc.CreateRecord(actorFrom(r), &record)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, created)
	}
}

// updateRecordHandler applies a direct partial field update.
// PATCH /records/{id}
func updateRecordHandler(svc *CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		record, err := svc.DirectUpdateRecord(actorFrom(r), chi.URLParam(r, "id"), fields)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, record)
	}
}

// listImagesHandler returns all images of a record, primary first.
// GET /records/{id}/images
func listImagesHandler(svc *CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		images, err := svc.RecordImages(chi.URLParam(r, "id"))
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"images": images})
	}
}

// attachImageHandler attaches an image directly. Admin surface.
// POST /records/{id}/images
func attachImageHandler(svc *CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			URL         string `json:"url"`
			AltText     string `json:"altText"`
			MakePrimary bool   `json:"isPrimary"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		image, err := svc.DirectAttachImage(actorFrom(r), AttachImageParams{
			RecordID:    chi.URLParam(r, "id"),
			URL:         body.URL,
			AltText:     body.AltText,
			MakePrimary: body.MakePrimary,
		})
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, image)
	}
}

// setPrimaryImageHandler changes the record's primary image.
// POST /records/{id}/images/{imageId}/primary
func setPrimaryImageHandler(svc *CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.SetPrimaryImage(actorFrom(r), chi.URLParam(r, "id"), chi.URLParam(r, "imageId"))
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// deleteImageHandler removes an image from a record.
// DELETE /records/{id}/images/{imageId}
func deleteImageHandler(svc *CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.DeleteImage(actorFrom(r), chi.URLParam(r, "id"), chi.URLParam(r, "imageId"))
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// toggleRecommendationHandler flips the caller's like for a record.
// POST /records/{id}/recommendation
func toggleRecommendationHandler(svc *CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.ToggleRecommendation(actorFrom(r), chi.URLParam(r, "id"))
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, result)
	}
}

// recommendationStatusHandler reports the caller's like state for a record.
// GET /records/{id}/recommendation
func recommendationStatusHandler(svc *CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.RecommendationStatus(actorFrom(r), chi.URLParam(r, "id"))
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, result)
	}
}

// listUsersHandler returns paginated users. Admin surface.
// GET /users
func listUsersHandler(svc *CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pageSize, pageToken := pageParams(r)
		users, nextToken, err := svc.ListUsers(actorFrom(r), pageSize, pageToken)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{
			"users":         users,
			"nextPageToken": nextToken,
		})
	}
}

// getUserHandler returns one user. Admin surface.
// GET /users/{id}
func getUserHandler(svc *CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := svc.GetUser(actorFrom(r), chi.URLParam(r, "id"))
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, user)
	}
}

// setUserRoleHandler assigns USER or ADMIN to a target user. Owner surface.
// PATCH /users/{id}/role
func setUserRoleHandler(svc *CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Role string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		user, err := svc.SetUserRole(actorFrom(r), chi.URLParam(r, "id"), body.Role)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, user)
	}
}

// bootstrapOwnerHandler promotes the caller to OWNER when none exists.
// POST /users/bootstrap-owner
func bootstrapOwnerHandler(svc *CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := svc.BootstrapOwner(actorFrom(r))
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, user)
	}
}
