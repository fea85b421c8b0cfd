// semantic-hooks: semantic tension tracking for AI coding agents.
//
// The binary is both the hook handler the host agent runs for every
// lifecycle event and the CLI that installs and inspects it.
//
// Usage:
//
//	semantic-hooks install          # Register the hooks with the host agent
//	semantic-hooks status           # Show hooks, config and memory size
//	semantic-hooks tree             # Show the recent semantic trajectory
//	semantic-hooks serve            # Start the MCP server (stdio transport)
//	semantic-hooks hook <event>     # Handle one event (called by the host)
package main

import (
	"os"

	"github.com/HendryAvila/semantic-hooks/internal/cli"
	"github.com/HendryAvila/semantic-hooks/internal/server"
)

func main() {
	os.Exit(cli.Execute(server.Version))
}
