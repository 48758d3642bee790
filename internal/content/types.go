// Package content implements the relationship and lifecycle engine:
// junction-table sync, soft-delete/restore with an audit trail, and
// fault-tolerant content fetching over the db store.
package content

import (
	"time"

	"github.com/tensorline/tensorline-backend/internal/db"
)

// Type identifies a content type. Its value is the content table name.
type Type string

const (
	TypeCaseStudy Type = "case_studies"
	TypeAlgorithm Type = "algorithms"
	TypeIndustry  Type = "industries"
	TypePersona   Type = "personas"
)

// Audit actions recorded for lifecycle transitions.
const (
	ActionSoftDelete = "soft_delete"
	ActionRestore    = "restore"
)

// Item is one content row plus its expanded relationship collections, keyed
// by the related type's name as seen from this item's side of each junction.
type Item struct {
	Fields    db.Row              `json:"fields"`
	Relations map[string][]db.Row `json:"relations,omitempty"`
}

func (i *Item) ID() string {
	return stringField(i.Fields, "id")
}

func (i *Item) Slug() string {
	return stringField(i.Fields, "slug")
}

func (i *Item) Published() bool {
	v, _ := i.Fields["published"].(bool)
	return v
}

func stringField(row db.Row, field string) string {
	if v, ok := row[field].(string); ok {
		return v
	}
	return ""
}

// displayName extracts a best-effort human label from a content row.
func displayName(row db.Row) string {
	if row == nil {
		return ""
	}
	if v := stringField(row, "title"); v != "" {
		return v
	}
	return stringField(row, "name")
}

// nowUTC is the single clock for lifecycle timestamps.
func nowUTC() time.Time {
	return time.Now().UTC()
}
