package tfs

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	resourceWIQL      = "wit/wiql"
	resourceWorkItems = "wit/workitems"
)

// Values for the $expand parameter of WorkItemService.Get.
const (
	ExpandNone      = "none"
	ExpandRelations = "relations"
	ExpandFields    = "fields"
	ExpandLinks     = "links"
	ExpandAll       = "all"
)

// WorkItemService provides operations on work items.
type WorkItemService interface {
	// Query runs a WIQL query, optionally scoped to a project.
	Query(ctx context.Context, wiql, project string, opts ...RequestOption) (*Result, error)

	// Get retrieves one work item, or the work item collection when id is 0.
	// A non-empty expand is sent as $expand.
	Get(ctx context.Context, id int, expand string, opts ...RequestOption) (*Result, error)

	// GetBatch retrieves many work items in chunks of the page size and
	// merges the "value" arrays into the first chunk's response.
	GetBatch(ctx context.Context, ids []int, fields []string, opts ...RequestOption) (*Result, error)

	// Iter streams work items chunk by chunk without merging.
	// The iterator fetches chunks lazily as you iterate.
	Iter(ctx context.Context, ids []int, fields []string, opts ...RequestOption) iter.Seq2[map[string]any, error]

	// Create creates a work item of the given type in project.
	Create(ctx context.Context, doc *PatchDocument, workItemType, project string, opts ...RequestOption) (*Result, error)

	// Update applies doc to an existing work item.
	Update(ctx context.Context, id int, doc *PatchDocument, opts ...RequestOption) (*Result, error)
}

// workItemService implements WorkItemService.
type workItemService struct {
	client *Client
}

func newWorkItemService(client *Client) *workItemService {
	return &workItemService{client: client}
}

// Query runs a WIQL query.
func (s *workItemService) Query(ctx context.Context, wiql, project string, opts ...RequestOption) (*Result, error) {
	ctx, span := s.client.startSpan(ctx, "WorkItems.Query", trace.WithAttributes(
		attribute.String("tfs.project", project),
	))
	defer span.End()

	body := map[string]string{"query": wiql}
	res, err := s.client.SetResource(resourceWIQL, project).
		call(ctx, body, http.MethodPost, ContentTypeJSON, opts)
	return s.client.finish(span, "query", res, err)
}

// Get retrieves a single work item.
func (s *workItemService) Get(ctx context.Context, id int, expand string, opts ...RequestOption) (*Result, error) {
	ctx, span := s.client.startSpan(ctx, "WorkItems.Get", trace.WithAttributes(
		attribute.Int("tfs.id", id),
	))
	defer span.End()

	path := resourceWorkItems
	if id != 0 {
		path += "/" + strconv.Itoa(id)
	}
	if expand != "" {
		s.client.SetParameter(ParamExpand, expand)
	}

	res, err := s.client.SetResource(path, "").
		call(ctx, nil, http.MethodGet, ContentTypeJSON, opts)
	return s.client.finish(span, "get", res, err)
}

// GetBatch retrieves work items by id.
//
// The first chunk whose response carries a "value" array becomes the result;
// the items of later chunks are appended to it in order. Other top-level
// fields, such as "count", keep the values of that first chunk. Chunks that
// fail are collected in Result.Partial, or in Result.Err when no chunk
// succeeded.
func (s *workItemService) GetBatch(ctx context.Context, ids []int, fields []string, opts ...RequestOption) (*Result, error) {
	ctx, span := s.client.startSpan(ctx, "WorkItems.GetBatch", trace.WithAttributes(
		attribute.Int("tfs.ids", len(ids)),
	))
	defer span.End()

	if len(ids) == 0 {
		return s.client.finish(span, "get_batch", &Result{Kind: KindEmpty}, nil)
	}

	var (
		merged   *Result
		failures *multierror.Error
		chunkNo  int
	)
	for chunk := range slices.Chunk(ids, s.client.pageSize) {
		chunkNo++

		res, err := s.fetchChunk(ctx, chunk, fields, opts)
		if err != nil {
			return s.client.finish(span, "get_batch", nil, err)
		}

		items, ok := res.Items()
		if !ok {
			failures = multierror.Append(failures, fmt.Errorf("chunk %d: %w", chunkNo, res.cause()))
			continue
		}

		if merged == nil {
			merged = res
			continue
		}

		obj, _ := merged.Object()
		base, _ := obj["value"].([]any)
		obj["value"] = append(base, items...)
	}

	if merged == nil {
		return s.client.finish(span, "get_batch", &Result{Kind: KindFailure, Err: failures.ErrorOrNil()}, nil)
	}

	merged.Partial = failures.ErrorOrNil()
	return s.client.finish(span, "get_batch", merged, nil)
}

// Iter streams work items chunk by chunk.
func (s *workItemService) Iter(ctx context.Context, ids []int, fields []string, opts ...RequestOption) iter.Seq2[map[string]any, error] {
	return func(yield func(map[string]any, error) bool) {
		for chunk := range slices.Chunk(ids, s.client.pageSize) {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			res, err := s.fetchChunk(ctx, chunk, fields, opts)
			if err != nil {
				yield(nil, err)
				return
			}

			items, ok := res.Items()
			if !ok {
				yield(nil, res.cause())
				return
			}

			for _, item := range items {
				obj, _ := item.(map[string]any)
				if !yield(obj, nil) {
					return
				}
			}
		}
	}
}

// fetchChunk requests one chunk of ids.
func (s *workItemService) fetchChunk(ctx context.Context, chunk []int, fields []string, opts []RequestOption) (*Result, error) {
	ctx, span := s.client.startSpan(ctx, "WorkItems.GetBatch.chunk", trace.WithAttributes(
		attribute.Int("tfs.chunk_size", len(chunk)),
	))
	defer span.End()

	s.client.SetParameter(ParamIDs, joinIDs(chunk))
	if len(fields) > 0 {
		s.client.SetParameter(ParamFields, strings.Join(fields, ","))
	}

	res, err := s.client.SetResource(resourceWorkItems, "").
		call(ctx, nil, http.MethodGet, ContentTypeJSON, opts)
	return s.client.finish(span, "get_batch_chunk", res, err)
}

// Create creates a new work item.
func (s *workItemService) Create(ctx context.Context, doc *PatchDocument, workItemType, project string, opts ...RequestOption) (*Result, error) {
	if workItemType == "" {
		return nil, fmt.Errorf("%w: work item type is required", ErrInvalidArgument)
	}

	ctx, span := s.client.startSpan(ctx, "WorkItems.Create", trace.WithAttributes(
		attribute.String("tfs.type", workItemType),
		attribute.String("tfs.project", project),
	))
	defer span.End()

	res, err := s.client.SetResource(resourceWorkItems+"/$"+workItemType, project).
		call(ctx, doc, http.MethodPatch, ContentTypeJSONPatch, opts)
	return s.client.finish(span, "create", res, err)
}

// Update modifies an existing work item.
func (s *workItemService) Update(ctx context.Context, id int, doc *PatchDocument, opts ...RequestOption) (*Result, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: work item id must be positive, got %d", ErrInvalidArgument, id)
	}

	ctx, span := s.client.startSpan(ctx, "WorkItems.Update", trace.WithAttributes(
		attribute.Int("tfs.id", id),
	))
	defer span.End()

	res, err := s.client.SetResource(resourceWorkItems+"/"+strconv.Itoa(id), "").
		call(ctx, doc, http.MethodPatch, ContentTypeJSONPatch, opts)
	return s.client.finish(span, "update", res, err)
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
