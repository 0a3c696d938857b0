package cli

import (
	"github.com/spf13/cobra"

	"github.com/computerscienceiscool/nodekit/pkg/app"
)

// NewGuestExecCommand builds the guestexec root command. Flag parsing stops
// at the first positional token so guest arguments such as -la pass through.
func NewGuestExecCommand(opts ...app.Option) *cobra.Command {
	v := newViper()
	var configFile string
	var domain string

	cmd := &cobra.Command{
		Use:   "guestexec [flags] --domain <name> <command> [args...]",
		Short: "Run a command inside a libvirt guest through the QEMU guest agent",
		Long: `guestexec starts a command in a guest with guest-exec, polls
guest-exec-status until it exits and prints its output. The guest's exit
code becomes guestexec's exit code; 124 means the command never finished.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := readConfig(v, configFile); err != nil {
				return err
			}

			a, err := bootstrap(cmd, v, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			_, err = a.RunGuestCommand(cmd.Context(), domain, args)
			return err
		},
	}

	flags := cmd.Flags()
	flags.SetInterspersed(false)
	flags.StringVar(&configFile, "config", "", "Config file (default: nodekit.config.yaml in ., $HOME or /etc/nodekit)")
	flags.StringVar(&domain, "domain", "", "libvirt domain to run the command in")
	flags.StringP("connect", "c", "", "libvirt connection URI passed to virsh -c")
	flags.Int("agent-timeout", 0, "Seconds virsh waits for each agent reply (0 keeps the virsh default)")
	flags.String("poll-interval", "", "Delay between status polls (default 2s)")
	flags.Int("max-attempts", 0, "Status polls before giving up (default 180)")
	flags.String("container", "", "Run virsh through docker exec in this container")
	flags.String("audit-db", "", "SQLite file recording every invocation (empty disables)")
	addLoggingFlags(flags)
	bindFlags(v, flags, map[string]string{
		"connect":       "guest.connect_uri",
		"agent-timeout": "guest.agent_timeout",
		"poll-interval": "guest.poll_interval",
		"max-attempts":  "guest.max_attempts",
		"container":     "guest.container",
		"audit-db":      "audit.db_path",
	})
	bindFlags(v, flags, loggingKeys)

	return cmd
}
