package tfs

import "encoding/json"

// Patch operation names.
const (
	OpAdd    = "add"
	OpRemove = "remove"
)

// RelationsAppendPath appends to the work item's relations collection.
const RelationsAppendPath = "/relations/-"

// RelAttachedFile is the relation type of a file attachment link.
const RelAttachedFile = "AttachedFile"

// Operation is one JSON-patch edit.
type Operation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// PatchDocument accumulates the ordered edits sent to create or update a
// work item. Order is significant and duplicates are kept. A document is
// meant to be submitted once.
type PatchDocument struct {
	ops []Operation
}

// NewPatchDocument returns an empty document.
func NewPatchDocument() *PatchDocument {
	return &PatchDocument{ops: []Operation{}}
}

// AddField appends an add operation for path. The path is not validated.
func (d *PatchDocument) AddField(path string, value any) *PatchDocument {
	d.ops = append(d.ops, Operation{Op: OpAdd, Path: path, Value: value})
	return d
}

// RemoveField removes the first operation whose path equals path and
// reports whether one was removed.
func (d *PatchDocument) RemoveField(path string) bool {
	for i, op := range d.ops {
		if op.Path == path {
			d.ops = append(d.ops[:i], d.ops[i+1:]...)
			return true
		}
	}
	return false
}

// AddRelationship appends value to the relations collection.
func (d *PatchDocument) AddRelationship(value any) *PatchDocument {
	d.ops = append(d.ops, Operation{Op: OpAdd, Path: RelationsAppendPath, Value: value})
	return d
}

// AddAttachmentRel links an uploaded attachment by URL.
func (d *PatchDocument) AddAttachmentRel(url string) *PatchDocument {
	return d.AddRelationship(map[string]any{
		"rel": RelAttachedFile,
		"url": url,
	})
}

// Get returns the operations in order. The slice is the document's own
// storage, not a copy.
func (d *PatchDocument) Get() []Operation {
	return d.ops
}

// Len returns the number of operations.
func (d *PatchDocument) Len() int {
	return len(d.ops)
}

// MarshalJSON encodes the document as its operation array.
func (d *PatchDocument) MarshalJSON() ([]byte, error) {
	if d.ops == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d.ops)
}

// FieldPath returns the patch path of a work item field reference name,
// e.g. FieldPath("System.Title") is "/fields/System.Title".
func FieldPath(referenceName string) string {
	return "/fields/" + referenceName
}
