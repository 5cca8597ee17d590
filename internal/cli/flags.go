package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tphakala/go-tfs"
)

// fieldValue is one -field path=value argument.
type fieldValue struct {
	path  string
	value string
}

// fieldsFlag collects repeated -field flags. A name without a leading slash
// is taken as a field reference name, so "System.Title=x" and
// "/fields/System.Title=x" are equivalent.
type fieldsFlag []fieldValue

func (f *fieldsFlag) String() string {
	parts := make([]string, len(*f))
	for i, fv := range *f {
		parts[i] = fv.path + "=" + fv.value
	}
	return strings.Join(parts, ", ")
}

func (f *fieldsFlag) Set(s string) error {
	path, value, ok := strings.Cut(s, "=")
	if !ok || path == "" {
		return fmt.Errorf("expected path=value, got %q", s)
	}
	if !strings.HasPrefix(path, "/") {
		path = tfs.FieldPath(path)
	}
	*f = append(*f, fieldValue{path: path, value: value})
	return nil
}

// stringsFlag collects a repeated string flag.
type stringsFlag []string

func (f *stringsFlag) String() string {
	return strings.Join(*f, ", ")
}

func (f *stringsFlag) Set(s string) error {
	*f = append(*f, s)
	return nil
}

// buildDocument turns -field and -attach flags into a patch document.
func buildDocument(fields fieldsFlag, attachments stringsFlag) *tfs.PatchDocument {
	doc := tfs.NewPatchDocument()
	for _, fv := range fields {
		doc.AddField(fv.path, fv.value)
	}
	for _, url := range attachments {
		doc.AddAttachmentRel(url)
	}
	return doc
}

// parseIDs parses a comma-separated id list.
func parseIDs(s string) ([]int, error) {
	var ids []int
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// splitList splits a comma-separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
