package tfs

import "time"

// Common field reference names.
const (
	FieldID            = "System.Id"
	FieldTitle         = "System.Title"
	FieldState         = "System.State"
	FieldWorkItemType  = "System.WorkItemType"
	FieldAssignedTo    = "System.AssignedTo"
	FieldAreaPath      = "System.AreaPath"
	FieldIterationPath = "System.IterationPath"
	FieldDescription   = "System.Description"
	FieldHistory       = "System.History"
	FieldTags          = "System.Tags"
)

// WorkItem represents a TFS work item.
type WorkItem struct {
	ID        int            `json:"id"`
	Rev       int            `json:"rev"`
	Fields    map[string]any `json:"fields"`
	Relations []Relation     `json:"relations,omitempty"`
	URL       string         `json:"url"`
}

// Field returns the value of a field by reference name.
func (w *WorkItem) Field(referenceName string) (any, bool) {
	v, ok := w.Fields[referenceName]
	return v, ok
}

// StringField returns a string field, or "" when absent or not a string.
func (w *WorkItem) StringField(referenceName string) string {
	s, _ := w.Fields[referenceName].(string)
	return s
}

// Title returns System.Title.
func (w *WorkItem) Title() string {
	return w.StringField(FieldTitle)
}

// Attachments returns the AttachedFile relations.
func (w *WorkItem) Attachments() []Relation {
	var out []Relation
	for _, r := range w.Relations {
		if r.Rel == RelAttachedFile {
			out = append(out, r)
		}
	}
	return out
}

// Relation is a typed link from a work item.
type Relation struct {
	Rel        string         `json:"rel"`
	URL        string         `json:"url"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// WorkItemList is the response of GetBatch and of Get without an id.
// Count reflects the first chunk only when GetBatch merged several chunks.
type WorkItemList struct {
	Count int        `json:"count"`
	Value []WorkItem `json:"value"`
}

// WorkItemReference identifies a work item in query results.
type WorkItemReference struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

// FieldReference describes a query result column.
type FieldReference struct {
	ReferenceName string `json:"referenceName"`
	Name          string `json:"name"`
	URL           string `json:"url"`
}

// QueryResult is the response of a WIQL query.
type QueryResult struct {
	QueryType       string              `json:"queryType"`
	QueryResultType string              `json:"queryResultType"`
	AsOf            time.Time           `json:"asOf"`
	Columns         []FieldReference    `json:"columns"`
	WorkItems       []WorkItemReference `json:"workItems"`
}

// IDs returns the ids of the matched work items in result order.
func (q *QueryResult) IDs() []int {
	ids := make([]int, 0, len(q.WorkItems))
	for _, ref := range q.WorkItems {
		ids = append(ids, ref.ID)
	}
	return ids
}

// AttachmentReference is the response of an attachment upload.
type AttachmentReference struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
