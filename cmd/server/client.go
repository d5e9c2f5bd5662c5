package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshdurbin/linkpulse/internal/domain"
	"github.com/joshdurbin/linkpulse/internal/transport/client"
)

const clientTimeout = 10 * time.Second

func newCommands(cmd *cobra.Command) (*client.Commands, context.Context, context.CancelFunc) {
	serverURL, _ := cmd.Flags().GetString("server-url")
	commands := client.NewCommands(client.NewClient(serverURL), cmd.OutOrStdout())

	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	return commands, ctx, cancel
}

func runShorten(cmd *cobra.Command, args []string) error {
	commands, ctx, cancel := newCommands(cmd)
	defer cancel()

	slug, _ := cmd.Flags().GetString("slug")
	owner, _ := cmd.Flags().GetString("owner")
	expiresIn, _ := cmd.Flags().GetDuration("expires-in")

	return commands.Shorten(ctx, domain.CreateURLRequest{
		URL:       args[0],
		Slug:      slug,
		Owner:     owner,
		ExpiresIn: int64(expiresIn / time.Second),
	})
}

func runInfo(cmd *cobra.Command, args []string) error {
	commands, ctx, cancel := newCommands(cmd)
	defer cancel()

	return commands.Info(ctx, args[0])
}

func runList(cmd *cobra.Command, args []string) error {
	commands, ctx, cancel := newCommands(cmd)
	defer cancel()

	owner, _ := cmd.Flags().GetString("owner")
	return commands.List(ctx, owner)
}

func runDeactivate(cmd *cobra.Command, args []string) error {
	commands, ctx, cancel := newCommands(cmd)
	defer cancel()

	return commands.Deactivate(ctx, args[0])
}

func runAnalytics(cmd *cobra.Command, args []string) error {
	commands, ctx, cancel := newCommands(cmd)
	defer cancel()

	return commands.Analytics(ctx, args[0])
}
