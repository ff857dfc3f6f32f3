// Package indexer 搜索索引构建：解析存储中的文档并写入 Elasticsearch
package indexer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/ashwinyue/chatbot-admin/internal/service/storage"
)

// ErrEmptyLocation 存储位置为空，无法确定索引名
var ErrEmptyLocation = errors.New("storage location is empty")

// 关键短语上限
const maxKeyPhrases = 10

// FileStore 索引构建所需的最小存储接口
type FileStore interface {
	List(ctx context.Context, location string) ([]storage.FileInfo, error)
	Get(ctx context.Context, location, name string) (io.ReadCloser, error)
}

// Result 一次索引构建的结果
type Result struct {
	IndexName string        `json:"index_name"`
	Total     int           `json:"total"`
	Indexed   int           `json:"indexed"`
	Skipped   []string      `json:"skipped,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Provisioner 索引构建器。PollInterval/PollCycles 控制构建后
// 等待文档可检索的轮询节奏。
type Provisioner struct {
	client       *elasticsearch.Client
	store        FileStore
	PollInterval time.Duration
	PollCycles   int
}

// NewProvisioner 创建索引构建器
func NewProvisioner(client *elasticsearch.Client, store FileStore) *Provisioner {
	return &Provisioner{
		client:       client,
		store:        store,
		PollInterval: 20 * time.Second,
		PollCycles:   30,
	}
}

// IndexNameFor 由存储位置派生索引名
func IndexNameFor(location string) string {
	return storage.NormalizeLocation(location) + "-index"
}

// Provision 为指定位置重建索引：删除旧索引、创建新索引、
// 解析并写入全部文档，然后轮询等待文档可检索。
func (p *Provisioner) Provision(ctx context.Context, location string) (*Result, error) {
	if location == "" {
		return nil, ErrEmptyLocation
	}
	if p.client == nil {
		return nil, errors.New("elasticsearch client is not configured")
	}

	startTime := time.Now()
	indexName := IndexNameFor(location)

	if err := p.recreateIndex(ctx, indexName); err != nil {
		return nil, err
	}

	files, err := p.store.List(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	result := &Result{IndexName: indexName, Total: len(files)}
	docs := make([]indexDoc, 0, len(files))
	for _, f := range files {
		doc, err := p.buildDoc(ctx, location, f)
		if err != nil {
			log.Printf("Warning: skipping %s: %v", f.Name, err)
			result.Skipped = append(result.Skipped, f.Name)
			continue
		}
		docs = append(docs, doc)
	}

	if len(docs) > 0 {
		if err := p.bulkIndex(ctx, indexName, docs); err != nil {
			return nil, err
		}
		// 轮询仅作观测，超时不视为构建失败
		if err := p.waitSearchable(ctx, indexName, int64(len(docs))); err != nil {
			log.Printf("Warning: %v", err)
		}
	}

	result.Indexed = len(docs)
	result.Duration = time.Since(startTime)
	log.Printf("Index %s built: %d/%d documents", indexName, result.Indexed, result.Total)
	return result, nil
}

// indexDoc 索引中的单篇文档
type indexDoc struct {
	ID           string    `json:"-"`
	Content      string    `json:"content"`
	OCRText      string    `json:"ocr_text"`
	LanguageCode string    `json:"language_code"`
	KeyPhrases   []string  `json:"key_phrases"`
	Name         string    `json:"metadata_storage_name"`
	Size         int64     `json:"metadata_storage_size"`
	LastModified time.Time `json:"metadata_storage_last_modified"`
}

// buildDoc 下载并解析单个文件，生成索引文档
func (p *Provisioner) buildDoc(ctx context.Context, location string, f storage.FileInfo) (indexDoc, error) {
	reader, err := p.store.Get(ctx, location, f.Name)
	if err != nil {
		return indexDoc{}, err
	}
	defer reader.Close()

	text, err := extractText(ctx, f.Name, reader)
	if err != nil {
		return indexDoc{}, err
	}

	return indexDoc{
		ID:           docID(location, f.Name),
		Content:      text,
		LanguageCode: DetectLanguage(text),
		KeyPhrases:   KeyPhrases(text, maxKeyPhrases),
		Name:         f.Name,
		Size:         f.Size,
		LastModified: f.LastModified,
	}, nil
}

// docID 文档 ID：对象路径的 URL 安全 base64 编码
func docID(location, name string) string {
	return base64.URLEncoding.EncodeToString([]byte(location + "/" + name))
}

// recreateIndex 删除旧索引（忽略不存在）并按映射创建新索引
func (p *Provisioner) recreateIndex(ctx context.Context, indexName string) error {
	res, err := p.client.Indices.Delete([]string{indexName},
		p.client.Indices.Delete.WithContext(ctx),
		p.client.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return fmt.Errorf("failed to delete index: %w", err)
	}
	res.Body.Close()

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"content":                        map[string]interface{}{"type": "text"},
				"ocr_text":                       map[string]interface{}{"type": "text"},
				"language_code":                  map[string]interface{}{"type": "keyword"},
				"key_phrases":                    map[string]interface{}{"type": "keyword"},
				"metadata_storage_name":          map[string]interface{}{"type": "keyword"},
				"metadata_storage_size":          map[string]interface{}{"type": "long"},
				"metadata_storage_last_modified": map[string]interface{}{"type": "date"},
			},
		},
		"settings": map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
	}

	mappingData, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	req := esapi.IndicesCreateRequest{
		Index: indexName,
		Body:  bytes.NewReader(mappingData),
	}
	res, err = req.Do(ctx, p.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to create index: %s", res.String())
	}
	return nil
}

// bulkIndex 批量写入文档
func (p *Provisioner) bulkIndex(ctx context.Context, indexName string, docs []indexDoc) error {
	var buf bytes.Buffer
	for _, doc := range docs {
		meta := map[string]interface{}{
			"index": map[string]interface{}{"_id": doc.ID},
		}
		metaLine, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("failed to marshal bulk action: %w", err)
		}
		docLine, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}
		buf.Write(metaLine)
		buf.WriteByte('\n')
		buf.Write(docLine)
		buf.WriteByte('\n')
	}

	req := esapi.BulkRequest{
		Index:   indexName,
		Body:    &buf,
		Refresh: "true",
	}
	res, err := req.Do(ctx, p.client)
	if err != nil {
		return fmt.Errorf("bulk index failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk index failed: %s", res.String())
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if bulkResp.Errors {
		return errors.New("bulk index reported item errors")
	}
	return nil
}

// waitSearchable 轮询文档数量直到达到预期或轮询耗尽
func (p *Provisioner) waitSearchable(ctx context.Context, indexName string, want int64) error {
	for i := 0; i < p.PollCycles; i++ {
		count, err := p.Count(ctx, indexName)
		if err == nil && count >= want {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.PollInterval):
		}
	}
	return fmt.Errorf("index %s not searchable after %d checks", indexName, p.PollCycles)
}

// Count 索引中的文档数量
func (p *Provisioner) Count(ctx context.Context, indexName string) (int64, error) {
	if p.client == nil {
		return 0, errors.New("elasticsearch client is not configured")
	}
	res, err := p.client.Count(
		p.client.Count.WithContext(ctx),
		p.client.Count.WithIndex(indexName),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("failed to count documents: %s", res.String())
	}

	var countResp struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&countResp); err != nil {
		return 0, fmt.Errorf("failed to decode count response: %w", err)
	}
	return countResp.Count, nil
}
