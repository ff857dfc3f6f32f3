// Package answer 检索增强问答引擎：检索文档、拼装上下文、生成答案
package answer

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// 检索与上下文拼装参数
const (
	searchTop       = 3
	maxContextRunes = 8000
	truncateSuffix  = "...[내용 일부 생략]"
)

// 用户可见的固定回复
const (
	msgNoDocuments = "❌ 질문과 관련된 문서를 찾을 수 없습니다."
	failureFormat  = "❌ 검색 또는 답변 생성 실패: %v"
)

// systemPrompt 回答时的系统提示词
const systemPrompt = `당신은 제공된 문서를 바탕으로 정확하고 도움이 되는 답변을 제공하는 AI 어시스턴트입니다.

규칙:
1. 제공된 문서의 내용만을 바탕으로 답변하세요
2. 문서에 없는 내용은 추측하지 마세요
3. 답변할 수 없다면 솔직히 말하세요
4. 가능한 한 구체적이고 정확한 정보를 제공하세요
5. 한국어로 자연스럽게 답변하세요
6. 답변의 근거가 되는 부분이 있다면 언급해주세요`

// userPromptFormat 用户消息模板：文档上下文 + 问题
const userPromptFormat = `다음 문서들을 바탕으로 질문에 답변해주세요.

문서 내용:
%s

질문: %s`

// Document 检索命中的单篇文档
type Document struct {
	Content  string
	OCRText  string
	Filename string
}

// Searcher 文档检索接口
type Searcher interface {
	Search(ctx context.Context, indexName, query string, top int) ([]Document, error)
	Count(ctx context.Context, indexName string) (int64, error)
}

// Answer 一次问答的结果
type Answer struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources"`
}

// Engine 问答引擎
type Engine struct {
	searcher  Searcher
	chatModel model.BaseChatModel
}

// NewEngine 创建问答引擎
func NewEngine(searcher Searcher, chatModel model.BaseChatModel) *Engine {
	return &Engine{searcher: searcher, chatModel: chatModel}
}

// Ask 检索相关文档并生成答案。检索或生成失败时返回
// 带失败说明的回复而不是错误，保证调用方总能得到可展示的内容。
func (e *Engine) Ask(ctx context.Context, indexName, question string) *Answer {
	docs, err := e.searcher.Search(ctx, indexName, question, searchTop)
	if err != nil {
		log.Printf("Warning: search failed on %s: %v", indexName, err)
		return &Answer{Text: fmt.Sprintf(failureFormat, err), Sources: []string{}}
	}

	contexts, sources := collectContexts(docs)
	if len(contexts) == 0 {
		return &Answer{Text: msgNoDocuments, Sources: []string{}}
	}

	if e.chatModel == nil {
		return &Answer{Text: fmt.Sprintf(failureFormat, "chat model is not configured"), Sources: []string{}}
	}

	combined := truncateRunes(strings.Join(contexts, "\n\n"), maxContextRunes)

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(fmt.Sprintf(userPromptFormat, combined, question)),
	}

	resp, err := e.chatModel.Generate(ctx, messages)
	if err != nil {
		log.Printf("Warning: generation failed on %s: %v", indexName, err)
		return &Answer{Text: fmt.Sprintf(failureFormat, err), Sources: []string{}}
	}

	return &Answer{Text: resp.Content, Sources: sources}
}

// DocumentCount 索引中的文档数量，用于空索引预检
func (e *Engine) DocumentCount(ctx context.Context, indexName string) (int64, error) {
	return e.searcher.Count(ctx, indexName)
}

// collectContexts 从命中文档中取可用文本：优先 OCR 文本，
// 其次原文，两者皆空则跳过。来源标签标注文本出处。
func collectContexts(docs []Document) (contexts, sources []string) {
	for _, doc := range docs {
		name := doc.Filename
		if name == "" {
			name = "알 수 없는 문서"
		}
		switch {
		case strings.TrimSpace(doc.OCRText) != "":
			contexts = append(contexts, doc.OCRText)
			sources = append(sources, fmt.Sprintf("%s (OCR)", name))
		case strings.TrimSpace(doc.Content) != "":
			contexts = append(contexts, doc.Content)
			sources = append(sources, fmt.Sprintf("%s (원본)", name))
		}
	}
	return contexts, sources
}

// truncateRunes 按字符数截断，超长时附加省略标记
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + truncateSuffix
}
