package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docrag/pkg/utils/json"
)

func TestExtractByFilenamePrefix(t *testing.T) {
	e := NewAnalysisExtractor()

	paragraphs, err := e.Extract(context.Background(), "/tmp/doc.pdf", "建築基準法施行令.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, paragraphs)
	assert.Equal(t, "建築基準法施行令", paragraphs[0].Content)
}

func TestExtractOtherPrefix(t *testing.T) {
	e := NewAnalysisExtractor()

	paragraphs, err := e.Extract(context.Background(), "/tmp/doc.pdf", "東京都建築安全条例（抄）.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, paragraphs)
	assert.Equal(t, "東京都建築安全条例", paragraphs[0].Content)
}

func TestExtractUnknownFilenameFallsBackToSample(t *testing.T) {
	e := NewAnalysisExtractor()

	paragraphs, err := e.Extract(context.Background(), "/tmp/doc.pdf", "report.pdf")
	require.NoError(t, err)
	assert.NotEmpty(t, paragraphs)
	for _, p := range paragraphs {
		assert.NotEmpty(t, strings.TrimSpace(p.Content))
	}
}

func TestParseMissingAnalyzeResult(t *testing.T) {
	var result analysisResult
	require.NoError(t, json.Unmarshal([]byte(`{"status":"succeeded"}`), &result))
	assert.Nil(t, result.AnalyzeResult)
}

func TestParseMissingParagraphs(t *testing.T) {
	var result analysisResult
	require.NoError(t, json.Unmarshal([]byte(`{"analyzeResult":{"apiVersion":"x"}}`), &result))
	require.NotNil(t, result.AnalyzeResult)
	assert.Nil(t, result.AnalyzeResult.Paragraphs)
}
