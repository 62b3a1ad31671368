// Package store 提供文档问答服务的向量存储层。
//
// 每个已摄取文件对应一个独立集合（集合名即 file_id），
// 包定义向量存储的接口抽象与 Milvus 实现。
package store
