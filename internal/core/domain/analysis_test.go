package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisResult_SummaryContent(t *testing.T) {
	r := AnalysisResult{DocumentSummary: "Spring catalog", CompleteText: "Item 1. Item 2."}
	assert.Equal(t,
		"## Document Summary:\nSpring catalog\n\n## Complete Document:\nItem 1. Item 2.",
		r.SummaryContent())
}

func TestAnalysisResult_PairImages(t *testing.T) {
	first := "red chair"
	r := AnalysisResult{ImageDescriptions: []ImageDescription{{Description: &first}, {}}}

	images := r.PairImages([]string{"u1", "u2", "u3"})
	require.Len(t, images, 3)
	assert.Equal(t, "u1", images[0].ImagePath)
	require.NotNil(t, images[0].Description)
	assert.Equal(t, "red chair", *images[0].Description)
	assert.Nil(t, images[1].Description)
	assert.Nil(t, images[2].Description)

	assert.Nil(t, r.PairImages(nil))
}
