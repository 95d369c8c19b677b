package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/driveindex/internal/core/domain"
)

func TestGatekeeper_Check(t *testing.T) {
	g := NewGatekeeper(domain.DefaultSupportedTypes(), domain.DefaultMaxFileSize)
	const mib = 1024 * 1024

	tests := []struct {
		name     string
		entry    domain.SourceEntry
		eligible bool
		reason   string
	}{
		{"pdf within limit", domain.SourceEntry{MimeType: domain.MimeTypePDF, Size: domain.Int64(10 * mib)}, true, ""},
		{"exactly at limit", domain.SourceEntry{MimeType: domain.MimeTypePDF, Size: domain.Int64(50 * mib)}, true, ""},
		{"60 MiB pdf", domain.SourceEntry{MimeType: domain.MimeTypePDF, Size: domain.Int64(60 * mib)}, false, domain.ReasonSizeLimit},
		{"native doc without size", domain.SourceEntry{MimeType: domain.MimeTypeGoogleDoc}, true, ""},
		{"docx", domain.SourceEntry{MimeType: domain.MimeTypeDOCX, Size: domain.Int64(1)}, true, ""},
		{"image", domain.SourceEntry{MimeType: "image/png", Size: domain.Int64(1)}, false, domain.ReasonUnsupportedType},
		{"unsupported and oversized", domain.SourceEntry{MimeType: "video/mp4", Size: domain.Int64(900 * mib)}, false, domain.ReasonUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.Check(&tt.entry)
			assert.Equal(t, tt.eligible, d.Eligible())
			assert.Equal(t, tt.reason, d.Reason())
		})
	}
}

func TestGatekeeper_Filter(t *testing.T) {
	g := NewGatekeeper(domain.DefaultSupportedTypes(), 100)

	entries := []domain.SourceEntry{
		{ID: "ok", Name: "ok.pdf", MimeType: domain.MimeTypePDF, Size: domain.Int64(10)},
		{ID: "big", Name: "a/big.pdf", MimeType: domain.MimeTypePDF, Size: domain.Int64(101)},
		{ID: "sheet", Name: "s.xlsx", MimeType: domain.MimeTypeXLSX},
	}

	eligible, skipped := g.Filter(entries)

	require.Len(t, eligible, 1)
	assert.Equal(t, "ok", eligible[0].ID)

	require.Len(t, skipped, 2)
	assert.Equal(t, domain.StatusSkipped, skipped[0].Status)
	assert.Equal(t, domain.ReasonSizeLimit, skipped[0].Reason)
	assert.Equal(t, "a_big.pdf", skipped[0].FileName)
	assert.Equal(t, domain.ReasonUnsupportedType, skipped[1].Reason)
}
