// Package configcmder provides the config command for managing persistent
// chatrelay configuration stored in the .chatrelay/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent chatrelay configuration.

Configuration is stored as config.toml in the .chatrelay/ directory and
provides default values for command flags. CLI flags always take precedence
over config file values. Credentials are never stored in the config file;
they come from the environment.

Keys use dotted notation matching the TOML section structure:
  relay.provider, relay.listen,
  provider.model, provider.api_version, provider.base_url, provider.account_id,
  client.relay_target, client.max_message_chars, client.max_history_turns,
  client.request_timeout_ms, client.stream,
  events.enabled, events.brokers, events.topic,
  auth.listen, auth.allowed_origin

Use subcommands to get, set, or list configuration values:
  chatrelay config set <key> <value>    Set a configuration value
  chatrelay config get <key>            Get a configuration value
  chatrelay config list                 List all configuration values

Examples:
  chatrelay config set relay.provider anthropic
  chatrelay config set client.max_history_turns 10
  chatrelay config get relay.provider
  chatrelay config list`

const configShortDesc string = "Manage persistent chatrelay configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
