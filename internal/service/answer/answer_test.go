// Package answer 提供问答引擎单元测试
package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// mockSearcher Mock 检索器
type mockSearcher struct {
	docs        []Document
	searchError error
	count       int64
	countError  error
}

func (m *mockSearcher) Search(ctx context.Context, indexName, query string, top int) ([]Document, error) {
	if m.searchError != nil {
		return nil, m.searchError
	}
	if len(m.docs) > top {
		return m.docs[:top], nil
	}
	return m.docs, nil
}

func (m *mockSearcher) Count(ctx context.Context, indexName string) (int64, error) {
	return m.count, m.countError
}

// mockChatModel Mock 对话模型，记录收到的消息
type mockChatModel struct {
	reply         string
	generateError error
	calls         int
	lastMessages  []*schema.Message
}

func (m *mockChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.calls++
	m.lastMessages = input
	if m.generateError != nil {
		return nil, m.generateError
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *mockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func TestAskContextSelection(t *testing.T) {
	tests := []struct {
		name        string
		docs        []Document
		wantSources []string
		wantContext []string
	}{
		{
			name: "ocr text preferred over content",
			docs: []Document{
				{Filename: "scan.pdf", Content: "original text", OCRText: "ocr text"},
			},
			wantSources: []string{"scan.pdf (OCR)"},
			wantContext: []string{"ocr text"},
		},
		{
			name: "content used when ocr is empty",
			docs: []Document{
				{Filename: "doc.txt", Content: "plain content"},
			},
			wantSources: []string{"doc.txt (원본)"},
			wantContext: []string{"plain content"},
		},
		{
			name: "empty document skipped, order preserved",
			docs: []Document{
				{Filename: "a.pdf", OCRText: "first"},
				{Filename: "blank.pdf"},
				{Filename: "b.txt", Content: "second"},
			},
			wantSources: []string{"a.pdf (OCR)", "b.txt (원본)"},
			wantContext: []string{"first", "second"},
		},
		{
			name: "whitespace only text is skipped",
			docs: []Document{
				{Filename: "ws.txt", Content: "   ", OCRText: "\n\t"},
				{Filename: "ok.txt", Content: "usable"},
			},
			wantSources: []string{"ok.txt (원본)"},
			wantContext: []string{"usable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &mockSearcher{docs: tt.docs}
			chatModel := &mockChatModel{reply: "답변입니다"}
			engine := NewEngine(searcher, chatModel)

			ans := engine.Ask(context.Background(), "test-index", "질문")

			if ans.Text != "답변입니다" {
				t.Errorf("Text = %s, want 답변입니다", ans.Text)
			}
			if len(ans.Sources) != len(tt.wantSources) {
				t.Fatalf("Sources = %v, want %v", ans.Sources, tt.wantSources)
			}
			for i, want := range tt.wantSources {
				if ans.Sources[i] != want {
					t.Errorf("Sources[%d] = %s, want %s", i, ans.Sources[i], want)
				}
			}

			if chatModel.calls != 1 {
				t.Fatalf("Generate calls = %d, want 1", chatModel.calls)
			}
			userMsg := chatModel.lastMessages[len(chatModel.lastMessages)-1]
			wantCombined := strings.Join(tt.wantContext, "\n\n")
			if !strings.Contains(userMsg.Content, wantCombined) {
				t.Errorf("user message does not contain combined context %q", wantCombined)
			}
		})
	}
}

func TestAskNoUsableDocuments(t *testing.T) {
	tests := []struct {
		name string
		docs []Document
	}{
		{name: "no hits", docs: nil},
		{name: "hits without text", docs: []Document{{Filename: "empty.pdf"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &mockSearcher{docs: tt.docs}
			chatModel := &mockChatModel{reply: "should not be used"}
			engine := NewEngine(searcher, chatModel)

			ans := engine.Ask(context.Background(), "test-index", "질문")

			if ans.Text != msgNoDocuments {
				t.Errorf("Text = %s, want %s", ans.Text, msgNoDocuments)
			}
			if len(ans.Sources) != 0 {
				t.Errorf("Sources = %v, want empty", ans.Sources)
			}
			if chatModel.calls != 0 {
				t.Errorf("Generate calls = %d, want 0", chatModel.calls)
			}
		})
	}
}

func TestAskSearchFailure(t *testing.T) {
	searcher := &mockSearcher{searchError: errors.New("connection refused")}
	chatModel := &mockChatModel{reply: "should not be used"}
	engine := NewEngine(searcher, chatModel)

	ans := engine.Ask(context.Background(), "test-index", "질문")

	if !strings.HasPrefix(ans.Text, "❌ 검색 또는 답변 생성 실패") {
		t.Errorf("Text = %s, want failure message", ans.Text)
	}
	if !strings.Contains(ans.Text, "connection refused") {
		t.Errorf("Text = %s, want underlying error included", ans.Text)
	}
	if chatModel.calls != 0 {
		t.Errorf("Generate calls = %d, want 0", chatModel.calls)
	}
}

func TestAskGenerationFailure(t *testing.T) {
	searcher := &mockSearcher{docs: []Document{{Filename: "a.txt", Content: "text"}}}
	chatModel := &mockChatModel{generateError: errors.New("rate limited")}
	engine := NewEngine(searcher, chatModel)

	ans := engine.Ask(context.Background(), "test-index", "질문")

	if !strings.HasPrefix(ans.Text, "❌ 검색 또는 답변 생성 실패") {
		t.Errorf("Text = %s, want failure message", ans.Text)
	}
	if len(ans.Sources) != 0 {
		t.Errorf("Sources = %v, want empty", ans.Sources)
	}
}

func TestAskContextTruncation(t *testing.T) {
	long := strings.Repeat("가", maxContextRunes+500)
	searcher := &mockSearcher{docs: []Document{{Filename: "big.txt", Content: long}}}
	chatModel := &mockChatModel{reply: "ok"}
	engine := NewEngine(searcher, chatModel)

	engine.Ask(context.Background(), "test-index", "질문")

	if chatModel.calls != 1 {
		t.Fatalf("Generate calls = %d, want 1", chatModel.calls)
	}
	userMsg := chatModel.lastMessages[len(chatModel.lastMessages)-1]
	if !strings.Contains(userMsg.Content, truncateSuffix) {
		t.Errorf("truncated context missing suffix %q", truncateSuffix)
	}
	if strings.Contains(userMsg.Content, long) {
		t.Error("context was not truncated")
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		s    string
		max  int
		want string
	}{
		{name: "short string unchanged", s: "짧은 글", max: 10, want: "짧은 글"},
		{name: "exactly max unchanged", s: "12345", max: 5, want: "12345"},
		{name: "over max truncated", s: "1234567890", max: 5, want: "12345" + truncateSuffix},
		{name: "multibyte counted by rune", s: "가나다라마", max: 3, want: "가나다" + truncateSuffix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateRunes(tt.s, tt.max); got != tt.want {
				t.Errorf("truncateRunes() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAskSearchTopLimit(t *testing.T) {
	docs := make([]Document, 0, 5)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		docs = append(docs, Document{Filename: name + ".txt", Content: name})
	}
	searcher := &mockSearcher{docs: docs}
	chatModel := &mockChatModel{reply: "ok"}
	engine := NewEngine(searcher, chatModel)

	ans := engine.Ask(context.Background(), "test-index", "질문")

	if len(ans.Sources) != searchTop {
		t.Errorf("Sources count = %d, want %d", len(ans.Sources), searchTop)
	}
}
