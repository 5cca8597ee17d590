package tfs_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tphakala/go-tfs"
)

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func parseIDs(t *testing.T, raw string) []int {
	t.Helper()
	var ids []int
	for part := range strings.SplitSeq(raw, ",") {
		id, err := strconv.Atoi(part)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func sequence(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i + 1
	}
	return ids
}

// batchHandler serves wit/workitems?ids=... with one item per id and records
// the chunk sizes it saw. Chunks containing an id in fail get a 500.
type batchHandler struct {
	t    *testing.T
	fail map[int]bool

	mu     sync.Mutex
	chunks []int
}

func (h *batchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ids := parseIDs(h.t, r.URL.Query().Get("ids"))

	h.mu.Lock()
	h.chunks = append(h.chunks, len(ids))
	h.mu.Unlock()

	value := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		if h.fail[id] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		value = append(value, map[string]any{"id": id, "fields": map[string]any{"System.Id": id}})
	}
	writeJSON(h.t, w, map[string]any{"count": len(ids), "value": value})
}

func (h *batchHandler) Chunks() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int(nil), h.chunks...)
}

func TestWorkItemService_Query(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/DefaultCollection/Fabrikam/_apis/wit/wiql", r.URL.Path)
			assert.Equal(t, "api-version=1.0", r.URL.RawQuery)
			assert.Equal(t, tfs.ContentTypeJSON, r.Header.Get("Content-Type"))

			body, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			assert.JSONEq(t, `{"query":"SELECT [System.Id] FROM WorkItems"}`, string(body))

			writeJSON(t, w, map[string]any{
				"queryType":       "flat",
				"queryResultType": "workItem",
				"asOf":            "2024-03-01T10:20:30.123Z",
				"columns": []map[string]any{
					{"referenceName": "System.Id", "name": "ID"},
				},
				"workItems": []map[string]any{
					{"id": 7, "url": "https://tfs/7"},
					{"id": 9, "url": "https://tfs/9"},
				},
			})
		})

		res, err := client.WorkItems.Query(context.Background(), "SELECT [System.Id] FROM WorkItems", "Fabrikam")
		require.NoError(t, err)
		require.True(t, res.OK())

		var qr tfs.QueryResult
		require.NoError(t, res.Decode(&qr))
		assert.Equal(t, "flat", qr.QueryType)
		assert.Equal(t, []int{7, 9}, qr.IDs())
		assert.Equal(t, 2024, qr.AsOf.Year())
		require.Len(t, qr.Columns, 1)
		assert.Equal(t, "System.Id", qr.Columns[0].ReferenceName)
	})

	t.Run("without project", func(t *testing.T) {
		client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/DefaultCollection/_apis/wit/wiql", r.URL.Path)
			writeJSON(t, w, map[string]any{"workItems": []any{}})
		})

		res, err := client.WorkItems.Query(context.Background(), "SELECT [System.Id] FROM WorkItems", "")
		require.NoError(t, err)
		assert.True(t, res.OK())
	})
}

func TestWorkItemService_Get(t *testing.T) {
	t.Run("success with expand", func(t *testing.T) {
		client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/DefaultCollection/_apis/wit/workitems/42", r.URL.Path)
			assert.Equal(t, "api-version=1.0&$expand=relations", r.URL.RawQuery)
			assert.Equal(t, "req-1", r.Header.Get("X-Request-ID"))

			writeJSON(t, w, map[string]any{
				"id":  42,
				"rev": 3,
				"fields": map[string]any{
					"System.Title": "Broken build",
					"System.State": "Active",
				},
				"relations": []map[string]any{
					{"rel": "AttachedFile", "url": "https://tfs/attachments/1", "attributes": map[string]any{"name": "log.txt"}},
					{"rel": "System.LinkTypes.Related", "url": "https://tfs/workitems/7"},
				},
				"url": "https://tfs/workitems/42",
			})
		})

		res, err := client.WorkItems.Get(context.Background(), 42, tfs.ExpandRelations, tfs.WithRequestID("req-1"))
		require.NoError(t, err)

		var item tfs.WorkItem
		require.NoError(t, res.Decode(&item))
		assert.Equal(t, 42, item.ID)
		assert.Equal(t, 3, item.Rev)
		assert.Equal(t, "Broken build", item.Title())
		assert.Equal(t, "Active", item.StringField(tfs.FieldState))
		require.Len(t, item.Attachments(), 1)
		assert.Equal(t, "log.txt", item.Attachments()[0].Attributes["name"])

		_, ok := client.Parameter(tfs.ParamExpand)
		assert.False(t, ok, "$expand must be cleared after the read")
	})

	t.Run("id 0 targets the collection", func(t *testing.T) {
		client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/DefaultCollection/_apis/wit/workitems", r.URL.Path)
			assert.Equal(t, "api-version=1.0", r.URL.RawQuery)
			writeJSON(t, w, map[string]any{"count": 0, "value": []any{}})
		})

		res, err := client.WorkItems.Get(context.Background(), 0, "")
		require.NoError(t, err)
		items, ok := res.Items()
		require.True(t, ok)
		assert.Empty(t, items)
	})

	t.Run("not found calls status logger once", func(t *testing.T) {
		client, status := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		res, err := client.WorkItems.Get(context.Background(), 99, "")
		require.NoError(t, err)
		assert.Equal(t, tfs.KindFailure, res.Kind)
		assert.Equal(t, false, res.Legacy())

		var statusErr *tfs.StatusError
		require.ErrorAs(t, res.Err, &statusErr)
		assert.True(t, statusErr.IsNotFound())

		assert.Equal(t, []string{"TFSClientAPI: HTTP Error 404 (Not Found)"}, status.Messages())
	})

	t.Run("invalid JSON", func(t *testing.T) {
		client, status := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>maintenance</html>"))
		})

		res, err := client.WorkItems.Get(context.Background(), 1, "")
		require.NoError(t, err)
		assert.Equal(t, tfs.KindError, res.Kind)

		legacy, ok := res.Legacy().(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Error", legacy["status"])
		assert.NotEmpty(t, legacy["message"])
		assert.Empty(t, status.Messages())
	})

	t.Run("empty body", func(t *testing.T) {
		client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		res, err := client.WorkItems.Get(context.Background(), 1, "")
		require.NoError(t, err)
		assert.Equal(t, tfs.KindEmpty, res.Kind)
		assert.ErrorIs(t, res.Decode(&tfs.WorkItem{}), tfs.ErrEmptyResponse)
	})

	t.Run("non-200 success code is a failure", func(t *testing.T) {
		client, status := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		res, err := client.WorkItems.Get(context.Background(), 1, "")
		require.NoError(t, err)
		assert.Equal(t, tfs.KindFailure, res.Kind)
		assert.Len(t, status.Messages(), 1)
	})

	t.Run("default status logger aborts", func(t *testing.T) {
		client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}, tfs.WithStatusLogger(nil))

		res, err := client.WorkItems.Get(context.Background(), 1, "")
		assert.Nil(t, res)
		assert.ErrorIs(t, err, tfs.ErrStatusLoggerNotImplemented)
		assert.Contains(t, err.Error(), "TFSClientAPI: HTTP Error 500 (Internal Server Error)")
	})
}

func TestWorkItemService_GetBatch(t *testing.T) {
	t.Run("chunks and merges in order", func(t *testing.T) {
		handler := &batchHandler{t: t}
		client, status := setupTestServer(t, handler.ServeHTTP)

		res, err := client.WorkItems.GetBatch(context.Background(), sequence(450), nil)
		require.NoError(t, err)
		require.True(t, res.OK())
		assert.Equal(t, []int{200, 200, 50}, handler.Chunks())
		assert.NoError(t, res.Partial)
		assert.Empty(t, status.Messages())

		items, ok := res.Items()
		require.True(t, ok)
		require.Len(t, items, 450)
		for i, item := range items {
			obj := item.(map[string]any)
			assert.InDelta(t, float64(i+1), obj["id"], 0)
		}

		// Only the value array is merged; count stays at the first chunk's.
		obj, _ := res.Object()
		assert.InDelta(t, 200, obj["count"], 0)

		var list tfs.WorkItemList
		require.NoError(t, res.Decode(&list))
		assert.Equal(t, 200, list.Count)
		assert.Len(t, list.Value, 450)
	})

	t.Run("fields and ids are cleared after the batch", func(t *testing.T) {
		var (
			mu      sync.Mutex
			queries []string
		)
		client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			queries = append(queries, r.URL.RawQuery)
			mu.Unlock()
			writeJSON(t, w, map[string]any{"count": 1, "value": []any{map[string]any{"id": 1}}})
		})

		_, err := client.WorkItems.GetBatch(context.Background(), []int{1}, []string{"System.Id", "System.Title"})
		require.NoError(t, err)
		_, err = client.WorkItems.Get(context.Background(), 1, "")
		require.NoError(t, err)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{
			"api-version=1.0&ids=1&fields=System.Id,System.Title",
			"api-version=1.0",
		}, queries)
	})

	t.Run("custom page size", func(t *testing.T) {
		handler := &batchHandler{t: t}
		client, _ := setupTestServer(t, handler.ServeHTTP, tfs.WithPageSize(2))

		res, err := client.WorkItems.GetBatch(context.Background(), sequence(5), nil)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 2, 1}, handler.Chunks())

		items, _ := res.Items()
		assert.Len(t, items, 5)
	})

	t.Run("failed chunk is partial", func(t *testing.T) {
		handler := &batchHandler{t: t, fail: map[int]bool{3: true}}
		client, status := setupTestServer(t, handler.ServeHTTP, tfs.WithPageSize(2))

		res, err := client.WorkItems.GetBatch(context.Background(), sequence(5), nil)
		require.NoError(t, err)
		require.True(t, res.OK())
		require.Error(t, res.Partial)
		assert.Contains(t, res.Partial.Error(), "chunk 2")

		items, _ := res.Items()
		assert.Len(t, items, 3)
		assert.Len(t, status.Messages(), 1)
	})

	t.Run("failed first chunk does not become the base", func(t *testing.T) {
		handler := &batchHandler{t: t, fail: map[int]bool{1: true}}
		client, _ := setupTestServer(t, handler.ServeHTTP, tfs.WithPageSize(2))

		res, err := client.WorkItems.GetBatch(context.Background(), sequence(4), nil)
		require.NoError(t, err)
		require.True(t, res.OK())

		items, _ := res.Items()
		require.Len(t, items, 2)
		assert.InDelta(t, 3, items[0].(map[string]any)["id"], 0)
	})

	t.Run("all chunks fail", func(t *testing.T) {
		handler := &batchHandler{t: t, fail: map[int]bool{1: true, 3: true}}
		client, status := setupTestServer(t, handler.ServeHTTP, tfs.WithPageSize(2))

		res, err := client.WorkItems.GetBatch(context.Background(), sequence(4), nil)
		require.NoError(t, err)
		assert.Equal(t, tfs.KindFailure, res.Kind)

		var statusErr *tfs.StatusError
		assert.ErrorAs(t, res.Err, &statusErr)
		assert.Len(t, status.Messages(), 2)
	})

	t.Run("empty ids", func(t *testing.T) {
		handler := &batchHandler{t: t}
		client, _ := setupTestServer(t, handler.ServeHTTP)

		res, err := client.WorkItems.GetBatch(context.Background(), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, tfs.KindEmpty, res.Kind)
		assert.Empty(t, handler.Chunks())
	})
}

func TestWorkItemService_Iter(t *testing.T) {
	t.Run("yields every item", func(t *testing.T) {
		handler := &batchHandler{t: t}
		client, _ := setupTestServer(t, handler.ServeHTTP, tfs.WithPageSize(2))

		items, err := tfs.Collect(client.WorkItems.Iter(context.Background(), sequence(5), nil))
		require.NoError(t, err)
		require.Len(t, items, 5)
		assert.InDelta(t, 5, items[4]["id"], 0)
	})

	t.Run("stops fetching on break", func(t *testing.T) {
		handler := &batchHandler{t: t}
		client, _ := setupTestServer(t, handler.ServeHTTP, tfs.WithPageSize(2))

		first, err := tfs.First(client.WorkItems.Iter(context.Background(), sequence(6), nil))
		require.NoError(t, err)
		assert.InDelta(t, 1, first["id"], 0)
		assert.Equal(t, []int{2}, handler.Chunks())
	})

	t.Run("failed chunk ends iteration", func(t *testing.T) {
		handler := &batchHandler{t: t, fail: map[int]bool{3: true}}
		client, _ := setupTestServer(t, handler.ServeHTTP, tfs.WithPageSize(2))

		items, err := tfs.Collect(client.WorkItems.Iter(context.Background(), sequence(6), nil))
		var statusErr *tfs.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Len(t, items, 2)
	})

	t.Run("cancelled context", func(t *testing.T) {
		handler := &batchHandler{t: t}
		client, _ := setupTestServer(t, handler.ServeHTTP)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := tfs.Collect(client.WorkItems.Iter(ctx, sequence(3), nil))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, handler.Chunks())
	})
}

func TestWorkItemService_Create(t *testing.T) {
	t.Run("sends json-patch document", func(t *testing.T) {
		client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPatch, r.Method)
			assert.Equal(t, "/DefaultCollection/Fabrikam/_apis/wit/workitems/$Task", r.URL.Path)
			assert.Equal(t, tfs.ContentTypeJSONPatch, r.Header.Get("Content-Type"))

			body, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			assert.JSONEq(t, `[
				{"op":"add","path":"/fields/System.Title","value":"Investigate build break"},
				{"op":"add","path":"/relations/-","value":{"rel":"AttachedFile","url":"https://tfs/attachments/1"}}
			]`, string(body))

			writeJSON(t, w, map[string]any{"id": 101, "rev": 1, "fields": map[string]any{"System.Title": "Investigate build break"}})
		})

		doc := tfs.NewPatchDocument().
			AddField(tfs.FieldPath(tfs.FieldTitle), "Investigate build break").
			AddAttachmentRel("https://tfs/attachments/1")

		res, err := client.WorkItems.Create(context.Background(), doc, "Task", "Fabrikam")
		require.NoError(t, err)

		var item tfs.WorkItem
		require.NoError(t, res.Decode(&item))
		assert.Equal(t, 101, item.ID)
	})

	t.Run("empty document sends no body", func(t *testing.T) {
		client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			assert.Empty(t, body)
			writeJSON(t, w, map[string]any{"id": 1})
		})

		_, err := client.WorkItems.Create(context.Background(), tfs.NewPatchDocument(), "Bug", "Fabrikam")
		require.NoError(t, err)
	})

	t.Run("requires work item type", func(t *testing.T) {
		client := newOfflineClient(t)
		_, err := client.WorkItems.Create(context.Background(), tfs.NewPatchDocument(), "", "Fabrikam")
		assert.ErrorIs(t, err, tfs.ErrInvalidArgument)
	})
}

func TestWorkItemService_Update(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPatch, r.Method)
			assert.Equal(t, "/DefaultCollection/_apis/wit/workitems/42", r.URL.Path)
			assert.Equal(t, tfs.ContentTypeJSONPatch, r.Header.Get("Content-Type"))

			body, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			assert.JSONEq(t, `[{"op":"add","path":"/fields/System.State","value":"Closed"}]`, string(body))

			writeJSON(t, w, map[string]any{"id": 42, "rev": 5})
		})

		doc := tfs.NewPatchDocument().AddField(tfs.FieldPath(tfs.FieldState), "Closed")
		res, err := client.WorkItems.Update(context.Background(), 42, doc)
		require.NoError(t, err)
		assert.True(t, res.OK())
	})

	t.Run("rejects invalid id", func(t *testing.T) {
		client := newOfflineClient(t)
		for _, id := range []int{0, -1} {
			_, err := client.WorkItems.Update(context.Background(), id, tfs.NewPatchDocument())
			assert.ErrorIs(t, err, tfs.ErrInvalidArgument, fmt.Sprintf("id %d", id))
		}
	})
}

func TestWorkItemService_Tracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/404") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(t, w, map[string]any{"id": 1})
	}, tfs.WithTracerProvider(tp))

	_, err := client.WorkItems.Get(context.Background(), 1, "")
	require.NoError(t, err)
	_, err = client.WorkItems.Get(context.Background(), 404, "")
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "WorkItems.Get", spans[0].Name())
	assert.Equal(t, "Unset", spans[0].Status().Code.String())
	assert.Equal(t, "Error", spans[1].Status().Code.String())
	assert.Contains(t, spans[1].Status().Description, "HTTP Error 404")
}

func TestWorkItemService_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"id": 1})
	}, tfs.WithMetrics(reg))

	_, err := client.WorkItems.Get(context.Background(), 1, "")
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "tfs_client_requests_total", "tfs_client_results_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
