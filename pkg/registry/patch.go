package registry

import (
	"fmt"
	"math"
	"time"
)

// Patchable field keys as they appear in edit-request payloads and direct
// update bodies.
const (
	FieldName              = "name"
	FieldDescription       = "description"
	FieldSizePercentage    = "sizePercentage"
	FieldRarityPercentage  = "rarityPercentage"
	FieldEstimatedQuantity = "estimatedQuantity"
	FieldMaterialType      = "materialType"
	FieldReleaseDate       = "releaseDate"
	FieldSeriesID          = "seriesId"
	FieldCategoryID        = "categoryId"
	FieldCollaborationID   = "collaborationId"
)

// releaseDateLayouts are accepted formats for the releaseDate field.
var releaseDateLayouts = []string{time.RFC3339, "2006-01-02"}

// MergeFields validates a partial update payload and converts it to a column
// update map. The merge is presence-based: a key present with a non-null
// value is applied, including zero and empty-string values. JSON null means
// "no change". Unknown keys and non-finite numbers are rejected.
func MergeFields(patch map[string]any) (map[string]any, error) {
	updates := make(map[string]any, len(patch))
	for key, raw := range patch {
		if raw == nil {
			continue
		}
		switch key {
		case FieldName, FieldDescription, FieldMaterialType,
			FieldSeriesID, FieldCategoryID, FieldCollaborationID:
			s, ok := raw.(string)
			if !ok {
				return nil, NewValidationError(key, fmt.Sprintf("expected string, got %T", raw))
			}
			updates[columnFor(key)] = s

		case FieldSizePercentage, FieldEstimatedQuantity:
			n, err := finiteNumber(key, raw)
			if err != nil {
				return nil, err
			}
			updates[columnFor(key)] = int(n)

		case FieldRarityPercentage:
			n, err := finiteNumber(key, raw)
			if err != nil {
				return nil, err
			}
			updates[columnFor(key)] = n

		case FieldReleaseDate:
			s, ok := raw.(string)
			if !ok {
				return nil, NewValidationError(key, fmt.Sprintf("expected date string, got %T", raw))
			}
			t, err := parseReleaseDate(s)
			if err != nil {
				return nil, NewValidationError(key, err.Error())
			}
			updates[columnFor(key)] = t

		default:
			return nil, NewValidationError(key, "unknown field")
		}
	}
	return updates, nil
}

// SnapshotFields captures the record's current value for every key present
// in the patch. This is the point-in-time diff base stored on an edit
// request at creation; it is never recomputed at review time.
func SnapshotFields(rec *FigureRecord, patch map[string]any) JSONAny {
	snapshot := make(JSONAny, len(patch))
	for key := range patch {
		switch key {
		case FieldName:
			snapshot[key] = rec.Name
		case FieldDescription:
			snapshot[key] = rec.Description
		case FieldSizePercentage:
			snapshot[key] = rec.SizePercentage
		case FieldRarityPercentage:
			snapshot[key] = rec.RarityPercentage
		case FieldEstimatedQuantity:
			snapshot[key] = rec.EstimatedQuantity
		case FieldMaterialType:
			snapshot[key] = rec.MaterialType
		case FieldReleaseDate:
			if rec.ReleaseDate != nil {
				snapshot[key] = rec.ReleaseDate.Format(time.RFC3339)
			} else {
				snapshot[key] = nil
			}
		case FieldSeriesID:
			snapshot[key] = rec.SeriesID
		case FieldCategoryID:
			snapshot[key] = rec.CategoryID
		case FieldCollaborationID:
			snapshot[key] = rec.CollaborationID
		}
	}
	return snapshot
}

// columnFor maps a payload key to its database column.
func columnFor(key string) string {
	switch key {
	case FieldName:
		return "name"
	case FieldDescription:
		return "description"
	case FieldSizePercentage:
		return "size_percentage"
	case FieldRarityPercentage:
		return "rarity_percentage"
	case FieldEstimatedQuantity:
		return "estimated_quantity"
	case FieldMaterialType:
		return "material_type"
	case FieldReleaseDate:
		return "release_date"
	case FieldSeriesID:
		return "series_id"
	case FieldCategoryID:
		return "category_id"
	case FieldCollaborationID:
		return "collaboration_id"
	}
	return key
}

// finiteNumber extracts a finite float64 from a decoded JSON value.
func finiteNumber(key string, raw any) (float64, error) {
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case int:
		n = float64(v)
	default:
		return 0, NewValidationError(key, fmt.Sprintf("expected number, got %T", raw))
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, NewValidationError(key, "value must be a finite number")
	}
	return n, nil
}

func parseReleaseDate(s string) (time.Time, error) {
	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q (want RFC3339 or YYYY-MM-DD)", s)
}
