package model

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// SepStr 分隔 file_id 与原始文件名，组成对象存储中的唯一文件名。
const SepStr = "___"

// API 标签，选择生成答案时使用的 Chat 供应商。
const (
	APIOpenAI  = "OpenAI"
	APIHunyuan = "hunyuan"
)

// FileInfo 描述一个已上传文件的标识信息。
//
// FileID 同时作为向量库集合名，集合名必须以字母开头，
// 因此在 uuid 前加 "a-" 前缀。
type FileInfo struct {
	FileID         string `json:"file_id"`
	FileName       string `json:"file_name"`
	FileUniqueName string `json:"file_unique_name"`
}

// NewFileInfo 为原始文件名生成带唯一 ID 的文件信息。
// 文件名不能包含分隔符，否则唯一文件名无法被 ParseFileInfo 还原。
func NewFileInfo(fileName string) (*FileInfo, error) {
	if fileName == "" {
		return nil, fmt.Errorf("filename is empty")
	}
	if strings.Contains(fileName, SepStr) {
		return nil, fmt.Errorf("filename %q must not contain %q", fileName, SepStr)
	}

	fileID := "a-" + uuid.NewString()
	return &FileInfo{
		FileID:         fileID,
		FileName:       fileName,
		FileUniqueName: fileID + SepStr + fileName,
	}, nil
}

// ParseFileInfo 从唯一文件名解析文件信息。
// 唯一文件名必须恰好包含一个分隔符，且两侧均非空。
func ParseFileInfo(uniqueName string) (*FileInfo, error) {
	parts := strings.Split(uniqueName, SepStr)
	if len(parts) != 2 {
		return nil, fmt.Errorf("unique filename %q is not in <file_id>%s<file_name> form", uniqueName, SepStr)
	}
	if parts[0] == "" {
		return nil, fmt.Errorf("unique filename %q has empty file_id part", uniqueName)
	}
	if parts[1] == "" {
		return nil, fmt.Errorf("unique filename %q has empty filename part", uniqueName)
	}

	return &FileInfo{
		FileID:         parts[0],
		FileName:       parts[1],
		FileUniqueName: uniqueName,
	}, nil
}

// ParseFileInfoFromURL 从签名 URL 的最后一段路径解析文件信息。
// 路径段可能是 URL 编码的。
func ParseFileInfoFromURL(signedURL string) (*FileInfo, error) {
	u, err := url.Parse(signedURL)
	if err != nil {
		return nil, fmt.Errorf("parse signed url: %w", err)
	}
	if u.Path == "" {
		return nil, fmt.Errorf("signed url %q has no path", signedURL)
	}

	paths := strings.Split(u.Path, "/")
	last := paths[len(paths)-1]
	uniqueName, err := url.QueryUnescape(last)
	if err != nil {
		return nil, fmt.Errorf("unescape path segment %q: %w", last, err)
	}

	return ParseFileInfo(uniqueName)
}

// Valid 报告文件信息是否完整。
func (f *FileInfo) Valid() bool {
	return f != nil && f.FileID != "" && f.FileName != "" && f.FileUniqueName != ""
}

// Paragraph 文档分析结果中的一个段落，段落间保持原文顺序。
type Paragraph struct {
	Content string `json:"content"`
}

// UploadResult 单个文件的上传结果。
type UploadResult struct {
	FileInfo  *FileInfo `json:"file_info"`
	SignedURL string    `json:"signed_url"`
	Expires   string    `json:"expires"`
}

// AnswerResult 问答流水线的结果。
// Found 为 false 表示检索不到相关段落，Answer 为固定的未找到文案。
type AnswerResult struct {
	Answer string `json:"answer"`
	Found  bool   `json:"found"`
}
