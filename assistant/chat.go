package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/assistant/internal/adapter/speech"
	"github.com/xiaot623/gogo/assistant/internal/onboarding"
	"github.com/xiaot623/gogo/assistant/internal/service"
)

var (
	chatSessionID string
	chatUserID    string
)

func init() {
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "resume a persisted session")
	chatCmd.Flags().StringVar(&chatUserID, "user", service.DefaultUserID, "user ID recorded with the session")
}

// chatCmd runs one conversation on the terminal
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant on the terminal",
	Long: `Talk to the assistant on the terminal. Each line typed is one utterance
and every reply is printed. When no preferences are stored yet, the
preference questionnaire runs first.

Examples:
  # Start a conversation
  assistant chat

  # Resume a session
  assistant chat --session sess_1234`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	// One buffer for the questionnaire and the conversation.
	in := bufio.NewReader(cmd.InOrStdin())
	speaker := speech.NewSpeaker(out)

	hasPrefs := !a.prefs.IsEmpty()
	if err := speaker.Say(ctx, onboarding.Greeting(hasPrefs)); err != nil {
		return err
	}
	if !hasPrefs {
		prefs, err := onboarding.NewQuestionnaire(in, out).Run()
		if err != nil {
			return err
		}
		if err := a.prefs.Save(ctx, prefs); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nPreferences saved to %s\n\n", a.prefs.Path())
	}

	conv, err := a.svc.Start(ctx, service.StartRequest{
		SessionID: chatSessionID,
		UserID:    chatUserID,
		Capturer:  speech.NewConsole(in, out),
		Speaker:   speaker,
	})
	if err != nil {
		return err
	}
	defer func() { _ = conv.Close(context.Background()) }()

	err = conv.Run(ctx)
	if errors.Is(err, speech.ErrInputClosed) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
