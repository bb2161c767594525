// internal/workers/study-aid/research-chapter/archive.go
package researchchapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"precision-engine/internal/pipeline/research"
)

// ArchiveMapping indexes the fields used to browse past research; the full
// record is kept in the source.
const ArchiveMapping = `{
	"mappings": {
		"properties": {
			"run_id":       {"type": "keyword"},
			"subject":      {"type": "keyword"},
			"chapter_name": {"type": "text", "fields": {"raw": {"type": "keyword"}}},
			"generated_at": {"type": "date"},
			"verification": {
				"properties": {
					"status":           {"type": "keyword"},
					"confidence_score": {"type": "float"}
				}
			},
			"subtopics":           {"type": "object", "enabled": false},
			"important_questions": {"type": "object", "enabled": false},
			"board_questions":     {"type": "object", "enabled": false},
			"sources":             {"type": "object", "enabled": false}
		}
	}
}`

// Archive writes every fresh research record to Elasticsearch.
type Archive struct {
	client *elasticsearch.Client
	index  string
}

func NewArchive(client *elasticsearch.Client, index string) *Archive {
	return &Archive{client: client, index: index}
}

func (a *Archive) Index() string {
	return a.index
}

// Store indexes res under its run id.
func (a *Archive) Store(ctx context.Context, res *research.Result) error {
	id := res.RunID
	body, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode archive document: %w", err)
	}

	resp, err := esapi.IndexRequest{
		Index:      a.index,
		DocumentID: id,
		Body:       bytes.NewReader(body),
	}.Do(ctx, a.client)
	if err != nil {
		return fmt.Errorf("index %s/%s: %w", a.index, id, err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return fmt.Errorf("index %s/%s: %s", a.index, id, resp.String())
	}
	return nil
}
