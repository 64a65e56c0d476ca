package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatSessionID string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the added data",
	Long: `Chat reads questions from stdin and answers them with the closest chunks and
the history of the session as context. Type 'exit' or press Ctrl+C to quit.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	addQueryFlags(chatCmd)
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "session id, a new one when empty")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, cleanup, err := buildLocalApp(ctx, nodeCLI)
	if err != nil {
		return err
	}
	defer cleanup()

	sessionID := chatSessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	cfg, opts := queryOptions(cmd, c.app.LLMConfig())

	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s app %s, session %s\n", boldGreen("embedchain"), boldCyan(c.app.ID()), sessionID)
	fmt.Fprintln(out, "Type your message and press Enter. Type 'exit' or press Ctrl+C to quit.")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, boldGreen("You: "))
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.ToLower(input) == "exit" {
			break
		}

		fmt.Fprint(out, boldCyan("Assistant: "))
		answer, err := c.app.Chat(ctx, sessionID, input, cfg, opts...)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			continue
		}
		printAnswer(cmd, answer)
		fmt.Fprintln(out)
	}
	return scanner.Err()
}
