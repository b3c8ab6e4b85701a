// Command commandctl talks to the command API from a terminal.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrylevesque/commandapi/internal/client"
	"github.com/harrylevesque/commandapi/internal/models"
)

var (
	serverURL string
	token     string
	apiKey    string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "commandctl",
	Short:         "Manage saved commands on a command API server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	server := os.Getenv("COMMANDAPI_SERVER")
	if server == "" {
		server = client.DefaultServer
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", server, "server base URL (env COMMANDAPI_SERVER)")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("COMMANDAPI_TOKEN"), "bearer token for protected endpoints (env COMMANDAPI_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("COMMANDAPI_API_KEY"), "api key for protected endpoints (env COMMANDAPI_API_KEY)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
	rootCmd.MarkFlagsMutuallyExclusive("token", "api-key")

	rootCmd.AddCommand(listCmd, getCmd, createCmd, updateCmd, deleteCmd, searchCmd, healthCmd)

	for _, c := range []*cobra.Command{createCmd, updateCmd} {
		c.Flags().String("how-to", "", "what the command does")
		c.Flags().String("platform", "", "platform the command runs on")
		c.Flags().String("command-line", "", "the literal command")
	}
	for _, name := range []string{"how-to", "platform", "command-line"} {
		_ = createCmd.MarkFlagRequired(name)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
		os.Exit(1)
	}
}

func newClient() (*client.Client, error) {
	return client.New(serverURL, client.WithBearerToken(token), client.WithAPIKey(apiKey))
}

// run gives each subcommand a client and a context bounded by --timeout.
func run(fn func(ctx context.Context, c *client.Client, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		return fn(ctx, c, args)
	}
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every command",
	Args:  cobra.NoArgs,
	RunE: run(func(ctx context.Context, c *client.Client, _ []string) error {
		cmds, err := c.List(ctx)
		if err != nil {
			return err
		}
		status("%d command(s)", len(cmds))
		return printJSON(cmds)
	}),
}

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Fuzzy search commands",
	Args:  cobra.MinimumNArgs(1),
	RunE: run(func(ctx context.Context, c *client.Client, args []string) error {
		cmds, err := c.Search(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		status("%d match(es)", len(cmds))
		return printJSON(cmds)
	}),
}

var getCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show one command",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, c *client.Client, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		cmd, err := c.Get(ctx, id)
		if err != nil {
			return missing(id, err)
		}
		return printJSON(cmd)
	}),
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Save a new command",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := commandFromFlags(cmd, models.Command{})
		return run(func(ctx context.Context, c *client.Client, _ []string) error {
			created, err := c.Create(ctx, payload)
			if err != nil {
				return err
			}
			status("created command %d", created.ID)
			return printJSON(created)
		})(cmd, args)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Replace a command; unset flags keep their current value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func(ctx context.Context, c *client.Client, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			current, err := c.Get(ctx, id)
			if err != nil {
				return missing(id, err)
			}
			next := commandFromFlags(cmd, current)
			next.ID = id
			if err := c.Update(ctx, next); err != nil {
				return err
			}
			status("updated command %d", id)
			return nil
		})(cmd, args)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a command",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, c *client.Client, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		removed, err := c.Delete(ctx, id)
		if err != nil {
			return missing(id, err)
		}
		status("deleted command %d", id)
		return printJSON(removed)
	}),
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the server and its store are up",
	Args:  cobra.NoArgs,
	RunE: run(func(ctx context.Context, c *client.Client, _ []string) error {
		if err := c.Health(ctx); err != nil {
			return err
		}
		status("%s is healthy", serverURL)
		return nil
	}),
}

// commandFromFlags overlays the flags the user set onto base.
func commandFromFlags(cmd *cobra.Command, base models.Command) models.Command {
	if cmd.Flags().Changed("how-to") {
		base.HowTo, _ = cmd.Flags().GetString("how-to")
	}
	if cmd.Flags().Changed("platform") {
		base.Platform, _ = cmd.Flags().GetString("platform")
	}
	if cmd.Flags().Changed("command-line") {
		base.CommandLine, _ = cmd.Flags().GetString("command-line")
	}
	return base
}

// missing replaces a 404 with a shorter message naming the id.
func missing(id int64, err error) error {
	if client.IsNotFound(err) {
		return fmt.Errorf("no command with id %d", id)
	}
	return err
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("id %q is not an integer", s)
	}
	return id, nil
}

func status(format string, args ...any) {
	fmt.Fprintln(os.Stderr, color.GreenString(format, args...))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
