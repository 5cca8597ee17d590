package cli

import "fmt"

// VersionCommand prints the tfsctl version.
type VersionCommand struct {
	Meta
}

func (c *VersionCommand) Synopsis() string {
	return "Print the version"
}

func (c *VersionCommand) Help() string {
	return "Usage: tfsctl version"
}

func (c *VersionCommand) Run(_ []string) int {
	c.UI.Output(fmt.Sprintf("%s %s", cliName, Version))
	return 0
}
