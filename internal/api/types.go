package api

import "github.com/tensorline/tensorline-backend/internal/db"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ItemDTO is one content item plus its expanded relationship collections,
// keyed by the related type's name.
type ItemDTO struct {
	Fields    db.Row              `json:"fields"`
	Relations map[string][]db.Row `json:"relations,omitempty"`
}

type ListDTO struct {
	Items []db.Row `json:"items"`
	Count int      `json:"count"`
}

// SyncRequest sets the full desired target-id list per relationship kind.
// Kinds absent from the map are untouched; an empty list clears the kind.
type SyncRequest struct {
	Relationships map[string][]string `json:"relationships"`
}

type SyncResponseDTO struct {
	Synced []SyncKindDTO `json:"synced"`
}

type SyncKindDTO struct {
	Kind  string `json:"kind"`
	Error string `json:"error,omitempty"`
}

type DeleteResponseDTO struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type RestoreResponseDTO struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Fields db.Row `json:"fields,omitempty"`
}

type CacheStatsDTO struct {
	MemoryEntries     int  `json:"memory_entries"`
	MemoryMaxEntries  int  `json:"memory_max_entries"`
	DistributedActive bool `json:"distributed_active"`
}

type CacheInvalidateDTO struct {
	Pattern string `json:"pattern"`
	Removed int    `json:"removed"`
}
