// Package extract 提供文档文本提取能力。
//
// 当前实现模拟外部 OCR 分析服务：根据文件名返回预置的分析结果，
// 结构与真实 OCR 服务的 JSON 输出一致。
package extract

import (
	"context"
	"embed"
	"fmt"
	"math/rand"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/docrag/internal/model"
	"github.com/kart-io/docrag/pkg/utils/json"
)

//go:embed samples/*.json
var sampleFS embed.FS

const sampleDir = "samples"

var sampleFiles = []string{
	"建築基準法施行令.json",
	"東京都建築安全条例.json",
}

// Extractor 从已下载的文档中提取段落。
type Extractor interface {
	// Extract 提取文档段落。filePath 为本地文件路径，fileName 为原始文件名。
	Extract(ctx context.Context, filePath, fileName string) ([]model.Paragraph, error)
}

// analysisResult OCR 分析结果的顶层结构。
type analysisResult struct {
	AnalyzeResult *analyzeResult `json:"analyzeResult"`
}

type analyzeResult struct {
	Paragraphs *[]model.Paragraph `json:"paragraphs"`
}

// AnalysisExtractor 模拟 OCR 服务的提取器。
// 按文件名前缀选择预置分析结果，无匹配时随机选择。
type AnalysisExtractor struct{}

// NewAnalysisExtractor 创建模拟提取器。
func NewAnalysisExtractor() *AnalysisExtractor {
	return &AnalysisExtractor{}
}

// Extract 返回文档的段落列表。
func (e *AnalysisExtractor) Extract(_ context.Context, filePath, fileName string) ([]model.Paragraph, error) {
	logger.Infow("simulating document analysis", "file_path", filePath, "file_name", fileName)

	data, err := e.readSample(fileName)
	if err != nil {
		return nil, err
	}

	var result analysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse analysis result: %w", err)
	}

	if result.AnalyzeResult == nil {
		return nil, fmt.Errorf("analyzeResult not existed")
	}
	if result.AnalyzeResult.Paragraphs == nil {
		return nil, fmt.Errorf("paragraphs not existed")
	}
	paragraphs := *result.AnalyzeResult.Paragraphs
	if len(paragraphs) == 0 {
		return nil, fmt.Errorf("paragraphs is empty")
	}

	logger.Infow("analysis completed", "paragraphs", len(paragraphs))
	return paragraphs, nil
}

// readSample 按文件名前缀选择预置分析结果。
func (e *AnalysisExtractor) readSample(fileName string) ([]byte, error) {
	var chosen string
	for _, sample := range sampleFiles {
		prefix := strings.TrimSuffix(sample, ".json")
		if strings.HasPrefix(fileName, prefix) {
			chosen = sample
			break
		}
	}
	if chosen == "" {
		chosen = sampleFiles[rand.Intn(len(sampleFiles))]
	}

	logger.Debugw("sample chosen", "file_name", fileName, "sample", chosen)

	data, err := sampleFS.ReadFile(sampleDir + "/" + chosen)
	if err != nil {
		return nil, fmt.Errorf("failed to read sample %q: %w", chosen, err)
	}
	return data, nil
}

// 确保 AnalysisExtractor 实现了 Extractor 接口。
var _ Extractor = (*AnalysisExtractor)(nil)
