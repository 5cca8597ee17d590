package tfs

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const resourceAttachments = "wit/attachments"

// AttachmentService uploads work item attachments.
type AttachmentService interface {
	// Upload stores content under filename and returns the attachment
	// reference, whose URL can be linked with PatchDocument.AddAttachmentRel.
	// content is sent JSON-encoded. The filename parameter is not part of the
	// reset set and stays on the client until unset.
	Upload(ctx context.Context, filename string, content any, opts ...RequestOption) (*Result, error)
}

type attachmentService struct {
	client *Client
}

func newAttachmentService(client *Client) *attachmentService {
	return &attachmentService{client: client}
}

// Upload stores an attachment.
func (s *attachmentService) Upload(ctx context.Context, filename string, content any, opts ...RequestOption) (*Result, error) {
	if filename == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidArgument)
	}

	ctx, span := s.client.startSpan(ctx, "Attachments.Upload", trace.WithAttributes(
		attribute.String("tfs.filename", filename),
	))
	defer span.End()

	s.client.SetResource(resourceAttachments, "")
	s.client.SetParameter(ParamFilename, filename)

	res, err := s.client.call(ctx, content, http.MethodPost, ContentTypeJSON, opts)
	return s.client.finish(span, "upload", res, err)
}
