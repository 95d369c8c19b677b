package services

import (
	"github.com/custodia-labs/driveindex/internal/core/domain"
	"github.com/custodia-labs/driveindex/internal/logger"
)

// GateDecision is the gatekeeper's verdict for one entry.
type GateDecision struct {
	Supported       bool
	WithinSizeLimit bool
}

// Eligible reports whether the entry may be processed.
func (d GateDecision) Eligible() bool {
	return d.Supported && d.WithinSizeLimit
}

// Reason returns the skip reason, or "" when eligible.
// An unsupported type takes precedence over size.
func (d GateDecision) Reason() string {
	switch {
	case !d.Supported:
		return domain.ReasonUnsupportedType
	case !d.WithinSizeLimit:
		return domain.ReasonSizeLimit
	default:
		return ""
	}
}

// Gatekeeper applies the type allow-list and size threshold.
type Gatekeeper struct {
	supported map[string]bool
	maxSize   int64
}

// NewGatekeeper creates a gatekeeper for the given allow-list and threshold in bytes.
func NewGatekeeper(supportedTypes []string, maxSize int64) *Gatekeeper {
	supported := make(map[string]bool, len(supportedTypes))
	for _, t := range supportedTypes {
		supported[t] = true
	}
	return &Gatekeeper{supported: supported, maxSize: maxSize}
}

// Check decides one entry. A missing size is treated as within the limit.
func (g *Gatekeeper) Check(entry *domain.SourceEntry) GateDecision {
	return GateDecision{
		Supported:       g.supported[entry.MimeType],
		WithinSizeLimit: entry.Size == nil || *entry.Size <= g.maxSize,
	}
}

// Filter splits entries into eligible files and skip outcomes.
func (g *Gatekeeper) Filter(entries []domain.SourceEntry) ([]domain.SourceEntry, []domain.FileOutcome) {
	var (
		eligible []domain.SourceEntry
		skipped  []domain.FileOutcome
	)

	for i := range entries {
		entry := &entries[i]
		decision := g.Check(entry)
		if decision.Eligible() {
			eligible = append(eligible, *entry)
			continue
		}

		reason := decision.Reason()
		logger.Debug("Skipping %s (%s): %s", entry.ID, entry.Name, reason)
		skipped = append(skipped, domain.FileOutcome{
			FileID:   entry.ID,
			FileName: domain.SanitizeFileName(entry.Name),
			Status:   domain.StatusSkipped,
			Reason:   reason,
		})
	}

	return eligible, skipped
}
