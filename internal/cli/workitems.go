package cli

import (
	"context"
	"errors"

	"github.com/tphakala/go-tfs"
)

// QueryCommand runs a WIQL query.
type QueryCommand struct {
	Meta

	flagWIQL    string
	flagProject string
	flagIDs     bool
}

func (c *QueryCommand) Synopsis() string {
	return "Run a WIQL query"
}

func (c *QueryCommand) Help() string {
	return `Usage: tfsctl query -wiql=<query> [-project=<name>] [-ids]

  Runs a work item query and prints the result. With -ids only the
  matched work item ids are printed.

Options:

  -wiql=<query>     (Required) The WIQL query text.
  -project=<name>   Project scope. Default: server.project from config.
  -ids              Print only the matched ids.` + commonHelp
}

func (c *QueryCommand) Run(args []string) int {
	f := c.FlagSet("query")
	f.StringVar(&c.flagWIQL, "wiql", "", "WIQL query")
	f.StringVar(&c.flagProject, "project", "", "project scope")
	f.BoolVar(&c.flagIDs, "ids", false, "print only ids")
	if !c.parseFlags(f, args) {
		return 1
	}

	if c.flagWIQL == "" {
		c.UI.Error("wiql flag is required")
		return 1
	}

	return c.execute(func(ctx context.Context, s *session) (*tfs.Result, error) {
		project := c.flagProject
		if project == "" {
			project = s.cfg.Server.Project
		}

		res, err := s.client.WorkItems.Query(ctx, c.flagWIQL, project)
		if err != nil || !c.flagIDs || !res.OK() {
			return res, err
		}

		var qr tfs.QueryResult
		if err := res.Decode(&qr); err != nil {
			return nil, err
		}
		return &tfs.Result{Kind: tfs.KindValue, StatusCode: res.StatusCode, Value: qr.IDs()}, nil
	})
}

// GetCommand retrieves a single work item.
type GetCommand struct {
	Meta

	flagID     int
	flagExpand string
}

func (c *GetCommand) Synopsis() string {
	return "Get a work item"
}

func (c *GetCommand) Help() string {
	return `Usage: tfsctl get -id=<id> [-expand=<none|relations|fields|links|all>]

  Retrieves a work item. Without -id the work item collection is listed.

Options:

  -id=<id>          Work item id.
  -expand=<value>   Value of the $expand parameter.` + commonHelp
}

func (c *GetCommand) Run(args []string) int {
	f := c.FlagSet("get")
	f.IntVar(&c.flagID, "id", 0, "work item id")
	f.StringVar(&c.flagExpand, "expand", "", "$expand value")
	if !c.parseFlags(f, args) {
		return 1
	}

	if c.flagID < 0 {
		c.UI.Error("id must not be negative")
		return 1
	}

	return c.execute(func(ctx context.Context, s *session) (*tfs.Result, error) {
		return s.client.WorkItems.Get(ctx, c.flagID, c.flagExpand)
	})
}

// GetBatchCommand retrieves many work items.
type GetBatchCommand struct {
	Meta

	flagIDs    string
	flagFields string
}

func (c *GetBatchCommand) Synopsis() string {
	return "Get many work items by id"
}

func (c *GetBatchCommand) Help() string {
	return `Usage: tfsctl get-batch -ids=<id,id,...> [-fields=<name,name,...>]

  Retrieves work items in chunks of server.pageSize ids and prints the
  merged result.

Options:

  -ids=<list>       (Required) Comma-separated work item ids.
  -fields=<list>    Comma-separated field reference names to return.` + commonHelp
}

func (c *GetBatchCommand) Run(args []string) int {
	f := c.FlagSet("get-batch")
	f.StringVar(&c.flagIDs, "ids", "", "work item ids")
	f.StringVar(&c.flagFields, "fields", "", "field reference names")
	if !c.parseFlags(f, args) {
		return 1
	}

	ids, err := parseIDs(c.flagIDs)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	if len(ids) == 0 {
		c.UI.Error("ids flag is required")
		return 1
	}

	return c.execute(func(ctx context.Context, s *session) (*tfs.Result, error) {
		return s.client.WorkItems.GetBatch(ctx, ids, splitList(c.flagFields))
	})
}

// CreateCommand creates a work item.
type CreateCommand struct {
	Meta

	flagType    string
	flagProject string
	flagFields  fieldsFlag
	flagAttach  stringsFlag
}

func (c *CreateCommand) Synopsis() string {
	return "Create a work item"
}

func (c *CreateCommand) Help() string {
	return `Usage: tfsctl create -type=<type> [-project=<name>] -field=<path=value>...

  Creates a work item from -field and -attach flags.

Options:

  -type=<type>          (Required) Work item type, e.g. Task or Bug.
  -project=<name>       Project. Default: server.project from config.
  -field=<path=value>   Field to set. Repeatable. A bare reference name
                        such as System.Title is expanded to /fields/System.Title.
  -attach=<url>         Attachment URL to link. Repeatable.` + commonHelp
}

func (c *CreateCommand) Run(args []string) int {
	f := c.FlagSet("create")
	f.StringVar(&c.flagType, "type", "", "work item type")
	f.StringVar(&c.flagProject, "project", "", "project")
	f.Var(&c.flagFields, "field", "path=value")
	f.Var(&c.flagAttach, "attach", "attachment url")
	if !c.parseFlags(f, args) {
		return 1
	}

	if c.flagType == "" {
		c.UI.Error("type flag is required")
		return 1
	}

	return c.execute(func(ctx context.Context, s *session) (*tfs.Result, error) {
		project := c.flagProject
		if project == "" {
			project = s.cfg.Server.Project
		}
		if project == "" {
			return nil, errors.New("project is required: set -project or server.project")
		}

		doc := buildDocument(c.flagFields, c.flagAttach)
		return s.client.WorkItems.Create(ctx, doc, c.flagType, project)
	})
}

// UpdateCommand updates a work item.
type UpdateCommand struct {
	Meta

	flagID     int
	flagFields fieldsFlag
	flagAttach stringsFlag
}

func (c *UpdateCommand) Synopsis() string {
	return "Update a work item"
}

func (c *UpdateCommand) Help() string {
	return `Usage: tfsctl update -id=<id> [-field=<path=value>...] [-attach=<url>...]

  Applies -field and -attach flags to an existing work item.

Options:

  -id=<id>              (Required) Work item id.
  -field=<path=value>   Field to set. Repeatable.
  -attach=<url>         Attachment URL to link. Repeatable.` + commonHelp
}

func (c *UpdateCommand) Run(args []string) int {
	f := c.FlagSet("update")
	f.IntVar(&c.flagID, "id", 0, "work item id")
	f.Var(&c.flagFields, "field", "path=value")
	f.Var(&c.flagAttach, "attach", "attachment url")
	if !c.parseFlags(f, args) {
		return 1
	}

	if c.flagID <= 0 {
		c.UI.Error("id flag is required")
		return 1
	}
	if len(c.flagFields) == 0 && len(c.flagAttach) == 0 {
		c.UI.Error("nothing to update: pass -field or -attach")
		return 1
	}

	return c.execute(func(ctx context.Context, s *session) (*tfs.Result, error) {
		doc := buildDocument(c.flagFields, c.flagAttach)
		return s.client.WorkItems.Update(ctx, c.flagID, doc)
	})
}
