package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/tphakala/go-tfs"
)

// AttachCommand uploads a file as an attachment.
type AttachCommand struct {
	Meta

	flagFile string
	flagName string
}

func (c *AttachCommand) Synopsis() string {
	return "Upload an attachment"
}

func (c *AttachCommand) Help() string {
	return `Usage: tfsctl attach -file=<path> [-name=<filename>]

  Uploads the file content and prints the attachment reference. Link it
  to a work item with "tfsctl update -attach=<url>".

Options:

  -file=<path>      (Required) File to upload.
  -name=<filename>  Attachment file name. Default: base name of -file.` + commonHelp
}

func (c *AttachCommand) Run(args []string) int {
	f := c.FlagSet("attach")
	f.StringVar(&c.flagFile, "file", "", "file to upload")
	f.StringVar(&c.flagName, "name", "", "attachment file name")
	if !c.parseFlags(f, args) {
		return 1
	}

	if c.flagFile == "" {
		c.UI.Error("file flag is required")
		return 1
	}

	content, err := os.ReadFile(c.flagFile)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error reading file: %v", err))
		return 1
	}

	// The upload body is a JSON string; invalid UTF-8 would be replaced
	// with U+FFFD on the wire.
	if !utf8.Valid(content) {
		c.UI.Error(fmt.Sprintf("%s is not UTF-8 text; binary attachments are not supported", c.flagFile))
		return 1
	}

	name := c.flagName
	if name == "" {
		name = filepath.Base(c.flagFile)
	}

	return c.execute(func(ctx context.Context, s *session) (*tfs.Result, error) {
		return s.client.Attachments.Upload(ctx, name, string(content))
	})
}
