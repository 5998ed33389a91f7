package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/samvad-hq/samvad-graph/internal/app"
	"github.com/samvad-hq/samvad-graph/internal/config"
	"github.com/samvad-hq/samvad-graph/internal/logger"
	"github.com/samvad-hq/samvad-graph/pkg/graph"
	"github.com/spf13/cobra"
)

type cli struct {
	out      io.Writer
	cfgFile  string
	logLevel string
	app      *app.App
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:   "graphctl",
		Short: "Call the Facebook Graph API from the command line",
		Long: `graphctl fetches objects and connections, publishes, posts and deletes
through the Graph API, runs declarative job files and keeps a local ledger of
the objects it published.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.initialize,
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (YAML/JSON/TOML); environment variables override it")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override log_level (debug, info, warn, error)")

	root.AddCommand(
		c.getCmd(),
		c.connectionsCmd(),
		c.imageCmd(),
		c.publishCmd(),
		c.postCmd(),
		c.deleteCmd(),
		c.runCmd(),
		c.ledgerCmd(),
	)
	c.closeAfter(root)
	return root
}

// closeAfter wraps every RunE below cmd so the app is closed whether or not the command fails.
// PersistentPostRunE is skipped by cobra when RunE returns an error.
func (c *cli) closeAfter(cmd *cobra.Command) {
	for _, sub := range cmd.Commands() {
		c.closeAfter(sub)
	}
	if cmd.RunE == nil {
		return
	}
	run := cmd.RunE
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		err := run(cmd, args)
		if closeErr := c.shutdown(); closeErr != nil {
			return errors.Join(err, closeErr)
		}
		return err
	}
}

// initialize loads configuration, the logger and the application.
func (c *cli) initialize(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFile(c.cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = c.logLevel
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log.DebugObj("graphctl starting", "config", cfg.Redacted())

	c.app, err = app.New(cmd.Context(), cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize graphctl", "error", err.Error())
		return err
	}
	return nil
}

func (c *cli) shutdown() error {
	defer logger.Close()
	if c.app == nil {
		return nil
	}
	a := c.app
	c.app = nil
	if err := a.Close(); err != nil {
		return fmt.Errorf("close app: %w", err)
	}
	return nil
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) getCmd() *cobra.Command {
	var (
		fields []string
		params map[string]string
	)
	cmd := &cobra.Command{
		Use:   "get <object-id>",
		Short: "Fetch a single object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := c.app.FetchObject(cmd.Context(), args[0], fields, params)
			if err != nil {
				return err
			}
			return c.print(op.Result)
		},
	}
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "fields to request (comma separated)")
	cmd.Flags().StringToStringVar(&params, "param", nil, "extra query parameters (key=value)")
	return cmd
}

func (c *cli) connectionsCmd() *cobra.Command {
	var (
		fields []string
		params map[string]string
	)
	cmd := &cobra.Command{
		Use:   "connections <object-id> [connection]",
		Short: "List a connection of an object",
		Long:  "List a connection of an object. Without a connection the object's own data envelope is read.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := c.app.FetchConnections(cmd.Context(), args[0], optionalArg(args, 1), fields, params)
			if err != nil {
				return err
			}
			return c.print(op.Result)
		},
	}
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "fields to request (comma separated)")
	cmd.Flags().StringToStringVar(&params, "param", nil, "extra query parameters (key=value)")
	return cmd
}

func (c *cli) imageCmd() *cobra.Command {
	var imageType string
	cmd := &cobra.Command{
		Use:   "image <object-id> <connection>",
		Short: "Fetch an image connection (not supported)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, err := graph.ParseImageType(imageType)
			if err != nil {
				return err
			}
			_, err = c.app.FetchImage(cmd.Context(), args[0], args[1], typ)
			return err
		},
	}
	cmd.Flags().StringVar(&imageType, "type", string(graph.ImageNormal), "image size: square, small, normal, large")
	return cmd
}

func (c *cli) publishCmd() *cobra.Command {
	var data map[string]string
	cmd := &cobra.Command{
		Use:   "publish <object-id> <connection>",
		Short: "Create an object on a connection and print its id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := make(map[string]any, len(data))
			for k, v := range data {
				payload[k] = v
			}
			op, err := c.app.Publish(cmd.Context(), args[0], args[1], payload)
			if err != nil {
				return err
			}
			return c.print(map[string]string{"id": op.ResultID})
		},
	}
	cmd.Flags().StringToStringVar(&data, "data", nil, "body fields (key=value)")
	return cmd
}

func (c *cli) postCmd() *cobra.Command {
	var data map[string]string
	cmd := &cobra.Command{
		Use:   "post <object-id> <connection>",
		Short: "Post to a connection, discarding the response",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := c.app.Post(cmd.Context(), args[0], args[1], data)
			if err != nil {
				return err
			}
			return c.print(op)
		},
	}
	cmd.Flags().StringToStringVar(&data, "data", nil, "body fields (key=value)")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <object-id> [connection]",
		Short: "Delete an object or one of its connections",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := c.app.Delete(cmd.Context(), args[0], optionalArg(args, 1))
			if err != nil {
				return err
			}
			return c.print(op)
		},
	}
}

func (c *cli) runCmd() *cobra.Command {
	var jobsFile, jobID string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the jobs declared in a jobs file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if jobID != "" {
				op, err := c.app.RunJob(cmd.Context(), jobsFile, jobID)
				if err != nil {
					return err
				}
				return c.print(op)
			}
			ops, err := c.app.RunJobs(cmd.Context(), jobsFile)
			if printErr := c.print(ops); printErr != nil {
				return printErr
			}
			return err
		},
	}
	cmd.Flags().StringVar(&jobsFile, "jobs", "", "jobs file (defaults to jobs_file from config)")
	cmd.Flags().StringVar(&jobID, "job", "", "run only the job with this id, even if disabled")
	return cmd
}

func (c *cli) ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "List objects published through graphctl",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			ops, err := c.app.Published()
			if err != nil {
				return err
			}
			return c.print(ops)
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get <object-id>",
		Short: "Show the ledger entry for a published object",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			op, found, err := c.app.LookupPublished(args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%s is not in the ledger", args[0])
			}
			return c.print(op)
		},
	})
	return cmd
}

func optionalArg(args []string, i int) string {
	if len(args) > i {
		return strings.TrimSpace(args[i])
	}
	return ""
}
