// Package chatcmder provides the chat command for interactive terminal chat
// against a running chat relay.
package chatcmder

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/alfredmayaki/chatrelay/pkg/chat"
	"github.com/alfredmayaki/chatrelay/pkg/cliui"
	"github.com/alfredmayaki/chatrelay/pkg/config"
	"github.com/alfredmayaki/chatrelay/pkg/dotdir"
	"github.com/alfredmayaki/chatrelay/pkg/logger"
	"github.com/alfredmayaki/chatrelay/session"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

type chatCommander struct {
	relayTarget      string
	maxMessageChars  int
	maxHistoryTurns  int
	requestTimeoutMs int
	reset            bool
	configDir        string
	debug            bool

	logger *slog.Logger
}

var chatFlags = config.FlagSet{
	config.FlagRelayTarget:      {Name: "relay-target", Shorthand: "t", ViperKey: "client.relay_target", Description: "Chat relay server URL"},
	config.FlagMaxMessageChars:  {Name: "max-message-chars", ViperKey: "client.max_message_chars", Description: "Maximum message length"},
	config.FlagMaxHistoryTurns:  {Name: "max-history-turns", ViperKey: "client.max_history_turns", Description: "Retained conversation turns"},
	config.FlagRequestTimeoutMs: {Name: "request-timeout-ms", ViperKey: "client.request_timeout_ms", Description: "Per-request timeout in milliseconds"},
}

var chatFlagKeys = []string{
	config.FlagRelayTarget,
	config.FlagMaxMessageChars,
	config.FlagMaxHistoryTurns,
	config.FlagRequestTimeoutMs,
}

const chatLongDesc string = `Start an interactive chat session against a running chat relay.

The conversation transcript is saved in the .chatrelay/ directory after each
completed exchange, so a later "chatrelay chat" resumes where you left off.
Use --reset to discard the saved transcript and start fresh.

Examples:
  chatrelay chat
  chatrelay chat --relay-target http://localhost:8787
  chatrelay chat --reset`

const chatShortDesc string = "Interactive chat through the relay"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, chatFlags, chatFlagKeys)

			cmder.relayTarget = v.GetString("client.relay_target")
			cmder.maxMessageChars = v.GetInt("client.max_message_chars")
			cmder.maxHistoryTurns = v.GetInt("client.max_history_turns")
			cmder.requestTimeoutMs = v.GetInt("client.request_timeout_ms")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	var relayTarget string
	var maxMessageChars, maxHistoryTurns, requestTimeoutMs int
	config.AddStringFlag(cmd, chatFlags, config.FlagRelayTarget, &relayTarget)
	config.AddIntFlag(cmd, chatFlags, config.FlagMaxMessageChars, &maxMessageChars)
	config.AddIntFlag(cmd, chatFlags, config.FlagMaxHistoryTurns, &maxHistoryTurns)
	config.AddIntFlag(cmd, chatFlags, config.FlagRequestTimeoutMs, &requestTimeoutMs)

	cmd.Flags().BoolVar(&cmder.reset, "reset", false, "Discard the saved transcript and start fresh")

	return cmd
}

func (c *chatCommander) run() error {
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true))

	dotdirManager := dotdir.NewManager()

	if c.reset {
		if err := dotdirManager.ClearTranscript(c.configDir); err != nil {
			return fmt.Errorf("clearing transcript: %w", err)
		}
	}

	transcript, err := dotdirManager.LoadTranscript(c.configDir)
	if err != nil {
		return fmt.Errorf("loading transcript: %w", err)
	}

	var initial []chat.Turn
	fmt.Println()
	if transcript != nil && len(transcript.Turns) > 0 {
		fmt.Printf("  %s Resuming conversation %s\n",
			cliui.SuccessMark,
			cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(transcript.Turns))),
		)
		for _, turn := range transcript.Turns {
			initial = append(initial, chat.Turn{
				Role: chat.Role(turn.Role),
				Text: turn.Text,
			})
		}
	} else {
		fmt.Printf("  %s New conversation\n", cliui.DimStyle.Render("●"))
	}

	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("Relay:"),
		cliui.NameStyle.Render(c.relayTarget),
	)
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	controller, err := session.New(session.Config{
		Endpoint:        strings.TrimRight(c.relayTarget, "/") + "/chat",
		MaxMessageChars: c.maxMessageChars,
		MaxHistoryTurns: c.maxHistoryTurns,
		RequestTimeout:  time.Duration(c.requestTimeoutMs) * time.Millisecond,
		InitialHistory:  initial,
		Renderer:        &terminalRenderer{w: os.Stdout},
		Logger:          c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating session controller: %w", err)
	}

	// Persist the transcript after every settle so an interrupted session
	// still resumes from the last completed exchange.
	controller.OnSettled(func() {
		if err := c.saveTranscript(dotdirManager, controller); err != nil {
			c.logger.Warn("could not save transcript", "error", err)
		}
	})

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		controller.Submit(input)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

func (c *chatCommander) saveTranscript(m *dotdir.Manager, controller *session.Controller) error {
	turns := controller.History()

	t := &dotdir.Transcript{MaxTurns: c.maxHistoryTurns}
	for _, turn := range turns {
		t.Turns = append(t.Turns, dotdir.TranscriptTurn{
			Role: string(turn.Role),
			Text: turn.Text,
		})
	}

	return m.SaveTranscript(t, c.configDir)
}

// terminalRenderer adapts the session controller's rendering contract to a
// line-oriented terminal. Each bot turn owns one line that is rewritten in
// place as the request settles.
type terminalRenderer struct {
	w io.Writer
}

// NewUserBubble is a no-op: the terminal already echoed the user's input.
func (r *terminalRenderer) NewUserBubble(string) {}

func (r *terminalRenderer) NewBotBubble(text string) session.BotBubble {
	fmt.Fprintf(r.w, "%s%s", assistantPrompt, cliui.DimStyle.Render(text))
	return &terminalBubble{w: r.w}
}

func (r *terminalRenderer) InputEnabled(bool) {}
func (r *terminalRenderer) Focus()            {}
func (r *terminalRenderer) ScrollToLatest()   {}

type terminalBubble struct {
	w io.Writer
}

// SetText rewrites the bot line in place, clearing the placeholder.
func (b *terminalBubble) SetText(text string) {
	fmt.Fprintf(b.w, "\r\x1b[2K%s%s\n\n", assistantPrompt, text)
}
