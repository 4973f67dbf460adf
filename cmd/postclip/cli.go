package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/hpungsan/postclip/internal/db"
	"github.com/hpungsan/postclip/internal/errors"
	"github.com/hpungsan/postclip/internal/mcp"
	"github.com/hpungsan/postclip/internal/ops"
	"github.com/hpungsan/postclip/internal/store"
)

// stdout is where command output goes. Tests swap it for a buffer.
var stdout io.Writer = os.Stdout

// newCLIApp creates the CLI application with all commands.
func newCLIApp(rt *runtime) *cli.App {
	app := &cli.App{
		Name:    "postclip",
		Usage:   "Capture Reddit posts with AI summaries for support review",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Usage: "Log at debug level on stderr"},
		},
		Commands: []*cli.Command{
			captureCmd(rt),
			listCmd(rt),
			copyCmd(rt),
			exportCmd(rt),
			clearCmd(rt),
			importCmd(rt),
			keyCmd(rt),
			sessionCmd(rt),
			mcpCmd(rt),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// captureCmd creates the capture command.
func captureCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "capture",
		Usage:     "Capture a Reddit post and summarize it",
		ArgsUsage: "<url>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "html", Usage: "Read the page from a saved .html file instead of fetching it"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Capture(c.Context, rt.env, ops.CaptureInput{
				URL:      c.Args().First(),
				HTMLPath: c.String("html"),
			})
			if err != nil {
				return outputStatus(err)
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List saved links",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "json", Usage: "Output format: json|yaml|table"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Max entries (default: all)"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Entries to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(c.Context, rt.env, ops.ListInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			switch c.String("format") {
			case "json":
				return outputJSON(output)
			case "yaml":
				return outputYAML(output)
			case "table":
				return outputTable(output.CountLabel, ops.ReviewRows(rt.env, output.Items))
			default:
				return outputError(errors.NewInvalidRequest("format must be one of: json, yaml, table"))
			}
		},
	}
}

// copyCmd creates the copy command.
func copyCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "copy",
		Usage: "Print the saved list as CSV (pipe it to your clipboard tool)",
		Action: func(c *cli.Context) error {
			output, err := ops.CopyCSV(c.Context, rt.env)
			if err != nil {
				return outputError(err)
			}
			_, err = fmt.Fprintln(stdout, output.CSV)
			return err
		},
	}
}

// exportCmd creates the export command.
func exportCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write the saved list to a CSV file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Destination .csv path (default: timestamped file in the exports directory)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ExportCSV(c.Context, rt.env, ops.ExportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// clearCmd creates the clear command.
func clearCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Remove every saved link",
		Action: func(c *cli.Context) error {
			output, err := ops.Clear(c.Context, rt.env)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Load links from a .json or .csv file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "append", Usage: "Import mode: append|replace"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("file path is required"))
			}
			output, err := ops.Import(c.Context, rt.env, ops.ImportInput{
				Path: c.Args().First(),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// keyCmd creates the key command group.
func keyCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "key",
		Usage: "Manage the OpenAI API key",
		Subcommands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Save the API key (argument or stdin)",
				ArgsUsage: "[key]",
				Action: func(c *cli.Context) error {
					key := c.Args().First()
					if key == "" && stdinHasData() {
						text, err := readStdin()
						if err != nil {
							return outputError(errors.NewInternal(err))
						}
						key = text
					}
					if err := rt.creds.SetKey(c.Context, key); err != nil {
						return outputError(err)
					}
					status, err := rt.creds.Status(c.Context)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(status)
				},
			},
			{
				Name:  "show",
				Usage: "Show whether a key is saved",
				Action: func(c *cli.Context) error {
					status, err := rt.creds.Status(c.Context)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(status)
				},
			},
			{
				Name:  "clear",
				Usage: "Remove the saved key",
				Action: func(c *cli.Context) error {
					if err := rt.creds.ClearKey(c.Context); err != nil {
						return outputError(err)
					}
					status, err := rt.creds.Status(c.Context)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(status)
				},
			},
		},
	}
}

// sessionInfo describes the storage session for session show/end.
type sessionInfo struct {
	Backend    string `json:"backend"`
	ID         string `json:"id,omitempty"`
	StartedAt  string `json:"started_at,omitempty"`
	EndedAt    string `json:"ended_at,omitempty"`
	TTLMinutes int    `json:"ttl_minutes,omitempty"`
	Count      int    `json:"count"`
}

// sessionCmd creates the session command group.
func sessionCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Inspect or end the storage session",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the current session",
				Action: func(c *cli.Context) error {
					entries, err := rt.env.Store.GetAll(c.Context)
					if err != nil {
						return outputError(err)
					}
					info := rt.sessionInfo()
					info.Count = len(entries)
					return outputJSON(info)
				},
			},
			{
				Name:  "end",
				Usage: "End the session; its saved links are discarded",
				Action: func(c *cli.Context) error {
					info := rt.sessionInfo()
					if rt.db != nil {
						ended, err := db.EndSession(c.Context, rt.db, rt.session.ID)
						if err != nil {
							return outputError(err)
						}
						if ended.EndedAt != nil {
							info.EndedAt = formatUnix(*ended.EndedAt)
						}
						return outputJSON(info)
					}
					if err := rt.sessionKV.Delete(c.Context, store.LinksKey); err != nil {
						return outputError(errors.NewPersistenceFault("clear", err))
					}
					return outputJSON(info)
				},
			},
		},
	}
}

func (rt *runtime) sessionInfo() *sessionInfo {
	info := &sessionInfo{Backend: rt.backend}
	if rt.session != nil {
		info.ID = rt.session.ID
		info.StartedAt = formatUnix(rt.session.StartedAt)
	}
	if rt.rdb != nil {
		info.TTLMinutes = rt.env.Config.SessionTTLMinutes
	}
	return info
}

// mcpCmd creates the mcp command.
func mcpCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "metrics-addr", Usage: "Serve Prometheus metrics on this address (e.g. :9464)"},
		},
		Action: func(c *cli.Context) error {
			if addr := c.String("metrics-addr"); addr != "" {
				serveMetrics(addr, rt.env.Logger)
			}
			return mcp.Run(rt.env, rt.creds, Version)
		},
	}
}

// serveMetrics exposes /metrics in the background. Failures are logged.
func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputYAML marshals result to stdout as YAML.
func outputYAML(v any) error {
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// outputTable renders review rows as aligned columns.
func outputTable(countLabel string, rows []ops.ReviewRow) error {
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TITLE\tCATEGORY\tSENTIMENT\tPOSTED\tCAPTURED\tURL")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			oneLine(r.Title), oneLine(r.Category), r.Sentiment, r.Posted, r.Captured, r.URL)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(stdout, countLabel)
	return err
}

// outputError formats error for CLI.
func outputError(err error) error {
	if clipErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", clipErr.Code, clipErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// outputStatus formats a capture error as the status line a user sees.
func outputStatus(err error) error {
	_, msg := ops.StatusFor(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", errors.CodeOf(err), msg), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func formatUnix(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
