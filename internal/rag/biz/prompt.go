package biz

import (
	"fmt"

	"github.com/kart-io/docrag/internal/pkg/rag/textutil"
	"github.com/kart-io/docrag/internal/rag/store"
)

// AskIntroduction 提示词开头的指令部分。
const AskIntroduction = "Use the below paragraphs on the document to answer the subsequent" +
	" question. If the answer cannot be found in the paragraphs," +
	` write "I could not find an answer."`

// PromptBudgeter 在 token 预算内组装提示词。
// 检索结果按相似度降序逐条加入，加入某条会超出预算时停止。
type PromptBudgeter struct {
	budget int
}

// NewPromptBudgeter 创建提示词组装器。budget 为提示词的 token 预算，
// 即模型上下文窗口减去预留给输出的 token 数。
func NewPromptBudgeter(budget int) *PromptBudgeter {
	return &PromptBudgeter{budget: budget}
}

// Build 组装提示词：指令 + 尽可能多的段落 + 问题。
// 问题部分始终保留，段落是被预算裁剪的部分。
func (b *PromptBudgeter) Build(query string, passages []store.Passage) string {
	question := fmt.Sprintf("\n\nQuestion: %s", query)
	message := AskIntroduction

	for _, p := range passages {
		next := fmt.Sprintf("\n\nparagraph section:\n\"\"\"\n%s\n\"\"\"", p.Content)
		if textutil.CountTokens(message+next+question) > b.budget {
			break
		}
		message += next
	}

	return message + question
}
