package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testBlocks(n int) []map[string]any {
	blocks := make([]map[string]any, n)
	for i := range blocks {
		blocks[i] = map[string]any{
			"object": "block",
			"type":   "paragraph",
			"paragraph": map[string]any{
				"rich_text": []map[string]any{
					{"type": "text", "text": map[string]any{"content": fmt.Sprintf("block %d", i)}},
				},
			},
		}
	}
	return blocks
}

func TestListPagesFollowsPagination(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/databases/db-1/query" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Notion-Version"); got != "2022-06-28" {
			t.Errorf("Notion-Version = %q", got)
		}

		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")

		if atomic.AddInt32(&calls, 1) == 1 {
			if _, has := body["start_cursor"]; has {
				t.Errorf("first query carried start_cursor: %v", body)
			}
			_, _ = io.WriteString(w, `{
				"results":[{"properties":{
					"Name":{"title":[{"text":{"content":"Weekly Wrap"}}]},
					"发件人":{"select":{"name":"Citrini"}},
					"Date":{"date":{"start":"2026-08-24T08:00"}}}}],
				"has_more":true,"next_cursor":"cursor-2"}`)
			return
		}

		if body["start_cursor"] != "cursor-2" {
			t.Errorf("second query cursor = %v", body["start_cursor"])
		}
		_, _ = io.WriteString(w, `{
			"results":[
				{"properties":{
					"Name":{"title":[{"text":{"content":"Daily Note"}}]},
					"发件人":{"select":{"name":"SemiAnalysis"}},
					"Date":{"date":{"start":"2026-08-23T08:00"}}}},
				{"properties":{
					"Name":{"title":[]},
					"发件人":{"select":{"name":"Incomplete"}},
					"Date":{"date":{"start":"2026-08-22"}}}}
			],
			"has_more":false,"next_cursor":null}`)
	}))
	t.Cleanup(server.Close)

	client := NewClient("secret", server.URL, &http.Client{Timeout: 3 * time.Second})

	pages, err := client.ListPages(context.Background(), "db-1")
	if err != nil {
		t.Fatalf("ListPages() error = %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("page count = %d, want 2 (incomplete pages skipped); pages = %+v", len(pages), pages)
	}
	if pages[0].Title != "Weekly Wrap" || pages[0].Sender != "Citrini" || pages[0].Date != "2026-08-24T08:00" {
		t.Fatalf("pages[0] = %+v", pages[0])
	}
	if pages[1].Title != "Daily Note" {
		t.Fatalf("pages[1] = %+v", pages[1])
	}
}

func TestCreatePageWithBlocksChunksAppends(t *testing.T) {
	t.Parallel()

	var (
		mu             sync.Mutex
		createChildren int
		appendSizes    []int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/pages":
			var body struct {
				Children []any `json:"children"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			createChildren = len(body.Children)
			mu.Unlock()
			_, _ = io.WriteString(w, `{"id":"page-1"}`)
		case r.Method == http.MethodPatch && r.URL.Path == "/blocks/page-1/children":
			var body struct {
				Children []any `json:"children"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			appendSizes = append(appendSizes, len(body.Children))
			mu.Unlock()
			_, _ = io.WriteString(w, `{}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	client := NewClient("secret", server.URL, &http.Client{Timeout: 3 * time.Second})

	pageID, err := client.CreatePageWithBlocks(context.Background(), "db-1",
		Properties{Title: "t", Date: "2026-08-24T08:00", Sender: "s", Type: "Article"}.Encode(),
		testBlocks(250))
	if err != nil {
		t.Fatalf("CreatePageWithBlocks() error = %v", err)
	}
	if pageID != "page-1" {
		t.Fatalf("pageID = %q", pageID)
	}
	mu.Lock()
	defer mu.Unlock()
	if createChildren != 100 {
		t.Fatalf("create carried %d children, want 100", createChildren)
	}
	if len(appendSizes) != 2 || appendSizes[0] != 100 || appendSizes[1] != 50 {
		t.Fatalf("append sizes = %v, want 100 then 50", appendSizes)
	}
}

func TestCreatePageSurfacesAPIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"message":"发件人 is not a property that exists"}`)
	}))
	t.Cleanup(server.Close)

	client := NewClient("secret", server.URL, &http.Client{Timeout: 2 * time.Second})

	_, err := client.CreatePage(context.Background(), "db-1", map[string]any{}, nil)
	if err == nil {
		t.Fatalf("CreatePage() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "status 400") || !strings.Contains(err.Error(), "is not a property") {
		t.Fatalf("CreatePage() error = %v", err)
	}
}
