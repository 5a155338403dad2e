// Package registry maintains the unique passenger records keyed by PNR.
package registry

import (
	"strings"

	"airvoice/internal"
	"airvoice/internal/errs"
	"airvoice/internal/storage"
)

type Registry struct {
	db *storage.DB
}

func New(db *storage.DB) *Registry {
	return &Registry{db: db}
}

type BulkCreateResult struct {
	CreatedCount int                  `json:"created_count"`
	Created      []internal.Passenger `json:"created"`
}

// BulkCreate inserts the candidates that are not yet registered. Candidates
// whose PNR already exists are skipped silently and excluded from Created, so
// CreatedCount may be smaller than the request. Unlike the ingest fallback
// policy, a candidate reaching this boundary must carry both fields: any
// missing name or PNR fails the whole call before anything is written.
func (r *Registry) BulkCreate(candidates []internal.PassengerCandidate) (BulkCreateResult, error) {
	for i, c := range candidates {
		if strings.TrimSpace(c.Name) == "" {
			return BulkCreateResult{}, errs.ValidationAt(i, "candidate missing name")
		}
		if strings.TrimSpace(c.PNR) == "" {
			return BulkCreateResult{}, errs.ValidationAt(i, "candidate missing pnr")
		}
	}

	out := BulkCreateResult{Created: []internal.Passenger{}}
	for _, c := range candidates {
		created, err := r.db.CreatePassengerIfAbsent(strings.TrimSpace(c.Name), strings.TrimSpace(c.PNR))
		if err != nil {
			return BulkCreateResult{}, err
		}
		if created == nil {
			continue
		}
		out.Created = append(out.Created, *created)
	}
	out.CreatedCount = len(out.Created)
	return out, nil
}
