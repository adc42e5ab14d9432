// Package results persists mining reports to local files, Redis or S3.
package results

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/logflow/procmine/pkg/conformance"
	"github.com/logflow/procmine/pkg/mining"
)

// Report is the persisted outcome of one mining run.
type Report struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Algorithm  string    `json:"algorithm"`
	CreatedAt  time.Time `json:"created_at"`
	DurationMS int64     `json:"duration_ms"`

	// Log statistics
	Traces     int `json:"traces"`
	Events     int `json:"events"`
	Activities int `json:"activities"`
	Variants   int `json:"variants"`

	// Discovered model
	Nodes int    `json:"nodes"`
	Edges int    `json:"edges"`
	Model string `json:"model"` // DOT text

	TopVariants   []mining.VariantCount  `json:"top_variants,omitempty"`
	TopActivities []mining.ActivityCount `json:"top_activities,omitempty"`

	Conformance *conformance.Summary `json:"conformance,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewReport creates a report with a fresh identifier.
func NewReport(source, algorithm string) *Report {
	return &Report{
		ID:        uuid.NewString(),
		Source:    source,
		Algorithm: algorithm,
		CreatedAt: time.Now().UTC(),
		Metadata:  make(map[string]string),
	}
}

// String returns a one-line summary.
func (r *Report) String() string {
	s := fmt.Sprintf("%s %s [%s] traces=%d events=%d nodes=%d edges=%d",
		r.ID, r.Source, r.Algorithm, r.Traces, r.Events, r.Nodes, r.Edges)
	if r.Conformance != nil {
		s += fmt.Sprintf(" fitness=%.3f", r.Conformance.AverageFitness)
	}
	return s
}

// sortNewestFirst orders reports by creation time, newest first, then by ID.
func sortNewestFirst(reports []*Report) {
	sort.Slice(reports, func(i, j int) bool {
		if !reports[i].CreatedAt.Equal(reports[j].CreatedAt) {
			return reports[i].CreatedAt.After(reports[j].CreatedAt)
		}
		return reports[i].ID < reports[j].ID
	})
}
