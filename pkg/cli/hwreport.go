package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/computerscienceiscool/nodekit/pkg/app"
	"github.com/computerscienceiscool/nodekit/pkg/audit"
	"github.com/computerscienceiscool/nodekit/pkg/config"
)

// NewHWReportCommand builds the hwreport root command. opts are passed to
// app.Bootstrap for every subcommand.
func NewHWReportCommand(opts ...app.Option) *cobra.Command {
	v := newViper()
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "hwreport",
		Short: "Report local GPUs to the ERU cluster manager",
		Long: `hwreport lists local hardware with lshw and registers the host's GPUs
as extra resources of its ERU node through eru-cli node set.
Without a subcommand it runs register.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return readConfig(v, configFile)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file (default: nodekit.config.yaml in ., $HOME or /etc/nodekit)")
	flags.String("hostname", "", "Node name to register (default: OS hostname)")
	flags.Bool("dry-run", false, "Print the eru-cli command without running it")
	flags.Bool("detect-capacity", false, "Register detected CPU count and memory instead of the configured values")
	flags.String("eru-container", "", "Run eru-cli through docker exec in this container")
	flags.String("audit-db", "", "SQLite file recording every invocation (empty disables)")
	flags.String("nats-url", "", "Publish the registered inventory to this NATS server")
	addLoggingFlags(flags)
	bindFlags(v, flags, map[string]string{
		"hostname":        "eru.hostname",
		"dry-run":         "eru.dry_run",
		"detect-capacity": "eru.detect_capacity",
		"eru-container":   "eru.container",
		"audit-db":        "audit.db_path",
		"nats-url":        "nats.url",
	})
	bindFlags(v, flags, loggingKeys)

	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Register local GPUs as node extra resources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd, v, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			_, err = a.RegisterGPUs(cmd.Context())
			return err
		},
	}
	rootCmd.RunE = registerCmd.RunE

	gpusCmd := &cobra.Command{
		Use:   "gpus",
		Short: "Print GPU records as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd, v, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.GPUs(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, records)
		},
	}

	var allCPUs bool
	cpusCmd := &cobra.Command{
		Use:   "cpus",
		Short: "Print processor addresses as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd, v, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.CPUs(cmd.Context(), allCPUs)
			if err != nil {
				return err
			}
			return printJSON(cmd, records)
		},
	}
	cpusCmd.Flags().BoolVar(&allCPUs, "all", false, "Report every processor, not just the first")

	var limit int
	var tool string
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Print recent invocations from the audit store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd, v, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.History(cmd.Context(), tool, limit)
			if err != nil {
				return err
			}
			printHistory(cmd, entries)
			return nil
		},
	}
	historyCmd.Flags().IntVar(&limit, "limit", 20, "Number of entries to show")
	historyCmd.Flags().StringVar(&tool, "tool", "", "Only show entries for hwreport or guestexec")

	var force bool
	initConfigCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write a config file holding every default value",
		Args:  cobra.MaximumNArgs(1),
		// Skip reading an existing config
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ConfigName + ".yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.SaveConfig(config.DefaultFileConfig(), path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initConfigCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	rootCmd.AddCommand(registerCmd, gpusCmd, cpusCmd, historyCmd, initConfigCmd)
	return rootCmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printHistory(cmd *cobra.Command, entries []audit.Entry) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTOOL\tTARGET\tEXIT\tARGUMENT")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Tool, e.Target, e.ExitCode, e.Argument)
	}
	w.Flush()
}

// bootstrap builds the config and the App for one subcommand run
func bootstrap(cmd *cobra.Command, v *viper.Viper, opts []app.Option) (*app.App, error) {
	cfg, err := buildConfig(v)
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}

	all := append([]app.Option{app.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())}, opts...)
	a, err := app.Bootstrap(cmd.Context(), cfg, all...)
	if err != nil {
		return nil, fmt.Errorf("bootstrap failed: %w", err)
	}
	return a, nil
}
