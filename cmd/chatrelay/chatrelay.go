// Package chatrelaycmder
package chatrelaycmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/alfredmayaki/chatrelay/cmd/chatrelay/chat"
	configcmder "github.com/alfredmayaki/chatrelay/cmd/chatrelay/config"
	servecmder "github.com/alfredmayaki/chatrelay/cmd/chatrelay/serve"
	versioncmder "github.com/alfredmayaki/chatrelay/cmd/chatrelay/version"
)

const chatrelayLongDesc string = `Chatrelay is an edge relay for browser chat widgets.

Run services using:
  chatrelay serve      Run the chat relay (and optionally the auth relay)
  chatrelay chat       Chat with the relay from your terminal

Manage configuration with:
  chatrelay config     Get, set, or list persistent configuration`

const chatrelayShortDesc string = "Chatrelay - LLM chat relay"

func NewChatrelayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chatrelay",
		Short: chatrelayShortDesc,
		Long:  chatrelayLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory holding config.toml (default: ./.chatrelay or ~/.chatrelay)")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
