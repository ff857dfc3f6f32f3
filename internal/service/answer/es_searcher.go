package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
)

// ESSearcher 基于 Elasticsearch 的文档检索实现
type ESSearcher struct {
	client *elasticsearch.Client
}

// NewESSearcher 创建检索器
func NewESSearcher(client *elasticsearch.Client) *ESSearcher {
	return &ESSearcher{client: client}
}

// Search 在索引中全文检索，任一字段命中即可
func (s *ESSearcher) Search(ctx context.Context, indexName, query string, top int) ([]Document, error) {
	if s.client == nil {
		return nil, errors.New("elasticsearch client is not configured")
	}

	body := map[string]interface{}{
		"size": top,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":    query,
				"fields":   []string{"content", "ocr_text", "key_phrases"},
				"operator": "or",
			},
		},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(indexName),
		s.client.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search failed: %s", res.String())
	}

	var searchResp struct {
		Hits struct {
			Hits []struct {
				Source struct {
					Content  string `json:"content"`
					OCRText  string `json:"ocr_text"`
					Filename string `json:"metadata_storage_name"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	docs := make([]Document, 0, len(searchResp.Hits.Hits))
	for _, hit := range searchResp.Hits.Hits {
		docs = append(docs, Document{
			Content:  hit.Source.Content,
			OCRText:  hit.Source.OCRText,
			Filename: hit.Source.Filename,
		})
	}
	return docs, nil
}

// Count 索引中的文档数量
func (s *ESSearcher) Count(ctx context.Context, indexName string) (int64, error) {
	if s.client == nil {
		return 0, errors.New("elasticsearch client is not configured")
	}

	res, err := s.client.Count(
		s.client.Count.WithContext(ctx),
		s.client.Count.WithIndex(indexName),
	)
	if err != nil {
		return 0, fmt.Errorf("count request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("count failed: %s", res.String())
	}

	var countResp struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&countResp); err != nil {
		return 0, fmt.Errorf("failed to decode count response: %w", err)
	}
	return countResp.Count, nil
}
