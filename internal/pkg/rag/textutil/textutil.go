// Package textutil 提供 RAG 相关的文本处理工具函数。
package textutil

import (
	"unicode/utf8"
)

// CountTokens 返回文本的 token 数。
//
// 这里以 1 token = 1 Unicode 字符 近似。日文平均 1 token 约对应 1-3 个
// 字符，精确计数需要调用供应商的 tokenizer API。
func CountTokens(s string) int {
	return utf8.RuneCountInString(s)
}

// SplitByTokens 将文本按固定 token 数切分，最后一段可能不足 size。
// size 不为正时返回原文本单段。
func SplitByTokens(text string, size int) []string {
	if size <= 0 {
		return []string{text}
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	pieces := make([]string, 0, (len(runes)+size-1)/size)
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[i:end]))
	}
	return pieces
}

// TruncateString 截断字符串到指定的最大 Unicode 字符数。
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}
