package client

import (
	"context"

	"github.com/yourusername/sumo-dashboard/internal/snapshot"
)

// Default endpoint paths of the dashboard server
const (
	StatusPath  = "/sumo"
	CommandPath = "/api"
)

// Command names understood by the control endpoint
const (
	CmdStart = "start"
	CmdStop  = "stop"
)

// Command represents the control endpoint request body
type Command struct {
	Cmd string `json:"cmd"`
}

// CommandResponse represents the control endpoint response. The
// dashboard only logs it, so it stays an untyped object.
type CommandResponse map[string]any

// FetchSnapshot performs one synchronous status poll
func (c *Client) FetchSnapshot(ctx context.Context) (snapshot.Snapshot, error) {
	return Get[snapshot.Snapshot](ctx, c, StatusPath)
}

// SendCommand performs one synchronous command post
func (c *Client) SendCommand(ctx context.Context, cmd string) (CommandResponse, error) {
	return Post[CommandResponse](ctx, c, CommandPath, Command{Cmd: cmd})
}
