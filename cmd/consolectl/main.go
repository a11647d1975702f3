// Command consolectl drives the console API from a terminal. The session
// cookie is kept in a file so consecutive invocations share one session.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/coagronet/console/internal/application/console"
	"github.com/coagronet/console/internal/domain/notify"
	"github.com/coagronet/console/internal/interfaces/http/handler"
	"github.com/spf13/cobra"
)

var (
	server      string
	sessionFile string
	lang        string
	timeout     time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "consolectl",
	Short:         "Command line client for the coagronet console",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var loginCmd = &cobra.Command{
	Use:   "login <correo>",
	Short: "Sign in; the password is read from CONSOLECTL_PASSWORD",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := os.Getenv("CONSOLECTL_PASSWORD")
		if password == "" {
			return fmt.Errorf("CONSOLECTL_PASSWORD is not set")
		}
		var out console.LoginResult
		return run(cmd, func(ctx context.Context, c *client) (*handler.APIResponse[json.RawMessage], error) {
			return c.call(ctx, "POST", "/auth/login", nil, map[string]string{"correo": args[0], "password": password}, &out)
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, c *client) (*handler.APIResponse[json.RawMessage], error) {
			env, err := c.call(ctx, "POST", "/auth/logout", nil, nil, nil)
			if err != nil {
				return env, err
			}
			return env, c.forget()
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, c *client) (*handler.APIResponse[json.RawMessage], error) {
			return c.call(ctx, "GET", "/session", nil, nil, nil)
		})
	},
}

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Company and role selection",
}

var contextListCmd = &cobra.Command{
	Use:   "list [empresaId]",
	Short: "List companies, or the roles of one company",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := url.Values{}
		if len(args) == 1 {
			if _, err := parseID(args[0]); err != nil {
				return err
			}
			query.Set("empresaId", args[0])
		}
		return run(cmd, func(ctx context.Context, c *client) (*handler.APIResponse[json.RawMessage], error) {
			return c.call(ctx, "GET", "/context/options", query, nil, nil)
		})
	},
}

var contextSwitchCmd = &cobra.Command{
	Use:   "switch <empresaId> <rolId>",
	Short: "Scope the session to a company and role",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		empresaID, err := parseID(args[0])
		if err != nil {
			return err
		}
		rolID, err := parseID(args[1])
		if err != nil {
			return err
		}
		return run(cmd, func(ctx context.Context, c *client) (*handler.APIResponse[json.RawMessage], error) {
			return c.call(ctx, "POST", "/context/switch", nil, map[string]int64{"empresaId": empresaID, "rolId": rolID}, nil)
		})
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [path]",
	Short: "Show which screen the console renders for a path",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := url.Values{}
		if len(args) == 1 {
			query.Set("path", args[0])
		}
		return run(cmd, func(ctx context.Context, c *client) (*handler.APIResponse[json.RawMessage], error) {
			return c.call(ctx, "GET", "/navigation/resolve", query, nil, nil)
		})
	},
}

var (
	listPage   int
	listSize   int
	listParent int64
)

var listCmd = &cobra.Command{
	Use:   "list <resource>",
	Short: "List the records of a resource",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := url.Values{}
		if listPage > 0 {
			query.Set("page", strconv.Itoa(listPage))
		}
		if listSize > 0 {
			query.Set("size", strconv.Itoa(listSize))
		}
		if listParent > 0 {
			query.Set("parentId", strconv.FormatInt(listParent, 10))
		}
		return run(cmd, func(ctx context.Context, c *client) (*handler.APIResponse[json.RawMessage], error) {
			return c.call(ctx, "GET", "/resources/"+url.PathEscape(args[0]), query, nil, nil)
		})
	},
}

var cascadeCmd = &cobra.Command{
	Use:   "cascade <chain> [level id | clear]",
	Short: "Show, select or clear a dependent selection chain; id 0 deselects a level",
	Args:  cobra.RangeArgs(1, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		chain := "/cascades/" + url.PathEscape(args[0])
		return run(cmd, func(ctx context.Context, c *client) (*handler.APIResponse[json.RawMessage], error) {
			switch {
			case len(args) == 1:
				return c.call(ctx, "GET", chain, nil, nil, nil)
			case len(args) == 2 && args[1] == "clear":
				return c.call(ctx, "POST", chain+"/clear", nil, nil, nil)
			case len(args) == 3:
				id, err := parseOptionID(args[2])
				if err != nil {
					return nil, err
				}
				return c.call(ctx, "POST", chain+"/select", nil, map[string]any{"level": args[1], "id": id}, nil)
			}
			return nil, fmt.Errorf("expected <chain>, <chain> clear or <chain> <level> <id>")
		})
	},
}

var (
	reportFilter  string
	reportOut     string
	reportArchive bool
)

var reportCmd = &cobra.Command{
	Use:   "report <name>",
	Short: "Render a report to a file, or archive it with --archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var filter json.RawMessage
		if reportFilter != "" {
			filter = json.RawMessage(reportFilter)
			if !json.Valid(filter) {
				return fmt.Errorf("--filter is not valid JSON")
			}
		} else {
			filter = json.RawMessage(`{}`)
		}
		path := "/reports/" + args[0]

		if reportArchive {
			return run(cmd, func(ctx context.Context, c *client) (*handler.APIResponse[json.RawMessage], error) {
				return c.call(ctx, "POST", path, url.Values{"archive": {"true"}}, filter, nil)
			})
		}

		out := reportOut
		if out == "" {
			out = filepath.Base(args[0]) + ".pdf"
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()

		c, err := newClient(server, sessionFile, lang)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		contentType, err := c.download(ctx, path, filter, f)
		if err != nil {
			_ = os.Remove(out)
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", out, contentType)
		return nil
	},
}

// run executes one API call and prints its notifications and data.
func run(cmd *cobra.Command, fn func(context.Context, *client) (*handler.APIResponse[json.RawMessage], error)) error {
	c, err := newClient(server, sessionFile, lang)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	env, err := fn(ctx, c)
	if env != nil {
		printNotifications(cmd.ErrOrStderr(), env.Notifications)
	}
	if err != nil {
		return err
	}
	return printData(cmd.OutOrStdout(), env)
}

func printNotifications(w io.Writer, notes []notify.Notification) {
	for _, n := range notes {
		fmt.Fprintf(w, "[%s] %s\n", n.Severity, n.Message)
	}
}

func printData(w io.Writer, env *handler.APIResponse[json.RawMessage]) error {
	if len(env.Data) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(env.Data, &v); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	if env.Meta != nil {
		fmt.Fprintf(w, "page %d/%d, %d records\n", env.Meta.Page, env.Meta.TotalPages, env.Meta.Total)
	}
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// parseOptionID accepts 0, which deselects a cascade level.
func parseOptionID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "consolectl", "session")
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&server, "server", envOr("CONSOLECTL_SERVER", "http://localhost:8080/console/v1"), "console API base url")
	flags.StringVar(&sessionFile, "session-file", defaultSessionFile(), "file holding the session cookie")
	flags.StringVar(&lang, "lang", "es", "Accept-Language sent to the console")
	flags.DurationVar(&timeout, "timeout", 60*time.Second, "request timeout")

	listCmd.Flags().IntVar(&listPage, "page", 0, "page number")
	listCmd.Flags().IntVar(&listSize, "size", 0, "page size")
	listCmd.Flags().Int64Var(&listParent, "parent", 0, "parent record id")

	reportCmd.Flags().StringVar(&reportFilter, "filter", "", "report filter as a JSON object")
	reportCmd.Flags().StringVarP(&reportOut, "output", "o", "", "output file (default: <name>.pdf)")
	reportCmd.Flags().BoolVar(&reportArchive, "archive", false, "archive the report and print its download link")

	contextCmd.AddCommand(contextListCmd, contextSwitchCmd)
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, contextCmd, resolveCmd, listCmd, cascadeCmd, reportCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
