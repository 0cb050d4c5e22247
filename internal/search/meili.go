package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const indexObjects = "inkwell_objects"

// record is the indexed form of a space, node title or article.
type record struct {
	ID       string `json:"id"`
	Type     int    `json:"type"`
	ObjectID int64  `json:"objectId"`
	SpaceID  int64  `json:"spaceId"`
	Title    string `json:"title"`
	Content  string `json:"content"`
}

func recordID(objectType ObjectType, objectID int64) string {
	return fmt.Sprintf("%d-%d", objectType, objectID)
}

// Meili implements Notifier and Searcher on a single Meilisearch index.
// The index holds spaces, node titles and article content side by side,
// keyed by type and object id. A background probe tracks reachability so
// an outage degrades writes to logged warnings instead of slow failures.
type Meili struct {
	client  meili.ServiceManager
	logger  *slog.Logger
	healthy atomic.Bool
	done    chan struct{}
}

var (
	_ Notifier = (*Meili)(nil)
	_ Searcher = (*Meili)(nil)
)

// NewMeili connects to Meilisearch and configures the index. The returned
// value is usable even while the backend is down; it recovers on its own.
func NewMeili(url, apiKey string, logger *slog.Logger) *Meili {
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		logger: logger,
		done:   make(chan struct{}),
	}

	if _, err := m.client.Health(); err != nil {
		logger.Warn("meilisearch unavailable", "url", url, "error", err)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        indexObjects,
		PrimaryKey: "id",
	}); err != nil {
		m.logger.Debug("create index (may already exist)", "error", err)
	}

	index := m.client.Index(indexObjects)
	filterable := []interface{}{"spaceId", "type"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("update filterable attributes failed", "error", err)
	}
	searchable := []string{"title", "content"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("update searchable attributes failed", "error", err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered")
				m.configureIndex()
			}
		}
	}
}

// Close stops the health probe.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether the backend is currently reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) Upsert(_ context.Context, spaceID int64, objectType ObjectType, objectID int64, title, content string) error {
	if !m.healthy.Load() {
		return nil
	}
	_, err := m.client.Index(indexObjects).AddDocuments([]record{{
		ID:       recordID(objectType, objectID),
		Type:     int(objectType),
		ObjectID: objectID,
		SpaceID:  spaceID,
		Title:    title,
		Content:  content,
	}}, nil)
	if err != nil {
		return fmt.Errorf("index upsert: %w", err)
	}
	return nil
}

func (m *Meili) MarkDeleted(_ context.Context, _ int64, objectType ObjectType, objectID int64) error {
	if !m.healthy.Load() {
		return nil
	}
	_, err := m.client.Index(indexObjects).DeleteDocument(recordID(objectType, objectID), nil)
	if err != nil {
		return fmt.Errorf("index delete: %w", err)
	}
	return nil
}

func (m *Meili) Search(_ context.Context, spaceID int64, query string, limit int) ([]Result, error) {
	if !m.healthy.Load() {
		return nil, fmt.Errorf("search backend unavailable")
	}
	if limit <= 0 {
		limit = 20
	}

	resp, err := m.client.Index(indexObjects).Search(query, &meili.SearchRequest{
		Limit:                 int64(limit),
		Filter:                fmt.Sprintf("spaceId = %d", spaceID),
		AttributesToHighlight: []string{"*"},
		HighlightPreTag:       "<mark>",
		HighlightPostTag:      "</mark>",
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]Result, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		results = append(results, Result{
			Type:    ObjectType(decodeInt(hit, "type")),
			ID:      decodeInt(hit, "objectId"),
			SpaceID: decodeInt(hit, "spaceId"),
			Title:   firstNonBlank(decodeFormatted(hit, "title"), decodeString(hit, "title")),
			Snippet: firstNonBlank(decodeFormatted(hit, "content"), decodeString(hit, "content")),
		})
	}
	return results, nil
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func decodeInt(hit meili.Hit, key string) int64 {
	raw, ok := hit[key]
	if !ok {
		return 0
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return n
}

func decodeFormatted(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]json.RawMessage
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(formatted[key], &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
