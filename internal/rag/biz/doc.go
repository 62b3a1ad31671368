// Package biz 提供文档 RAG 服务的业务逻辑层。
//
// 该包将业务逻辑拆分为以下组件：
//   - Chunker: 将提取出的段落合并切分为可嵌入的文本块
//   - Ingestor: 负责文档摄取（下载、提取、分块、嵌入、入库）
//   - ProgressStore: 跟踪后台摄取任务的进度
//   - PromptBudgeter: 在 token 预算内组装提示词
//   - Answerer: 负责回答（查询嵌入、检索、生成）
//   - Service: 组合以上组件，提供统一的服务接口
package biz
