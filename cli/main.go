// Package main provides a console client for the assistant's websocket
// voice gateway.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	addr      string
	apiKey    string
	userID    string
	sessionID string
	latitude  float64
	longitude float64
	verbose   bool
)

// inputGrace is how long the client waits for the goodbye once stdin ends.
const inputGrace = 2 * time.Second

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "assistant-cli",
	Short: "Talk to the assistant over its websocket voice gateway",
	Long: `Type one utterance per line. The assistant's replies are printed and a
prompt appears whenever it listens. Type /quit to leave.

Examples:
  # Connect to a local server
  assistant-cli

  # Report the vehicle position and resume a session
  assistant-cli --lat 52.07 --lon -0.63 --session sess_1234`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&addr, "addr", "ws://localhost:8080/v1/voice", "voice gateway address")
	rootCmd.Flags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	rootCmd.Flags().StringVar(&userID, "user", "", "user ID")
	rootCmd.Flags().StringVar(&sessionID, "session", "", "resume a session")
	rootCmd.Flags().Float64Var(&latitude, "lat", 0, "vehicle latitude")
	rootCmd.Flags().Float64Var(&longitude, "lon", 0, "vehicle longitude")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the dialogue state of each reply")
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Connecting to %s...\n", addr)

	client, err := NewClient(ctx, addr, out)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer client.Close()
	client.verbose = verbose

	hello := HelloMessage{UserID: userID, APIKey: apiKey}
	hello.SessionID = sessionID
	if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
		hello.Latitude = &latitude
		hello.Longitude = &longitude
	}
	if err := client.SendHello(hello); err != nil {
		return err
	}
	fmt.Fprintf(out, "Session established: %s\n\n", client.SessionID())

	return converse(ctx, client, cmd.InOrStdin())
}

// converse forwards typed lines until the assistant says goodbye, the input
// ends or the user quits.
func converse(ctx context.Context, client *Client, in io.Reader) error {
	done := make(chan error, 1)
	go func() { done <- client.ReadMessages() }()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-done:
			if errors.Is(err, ErrBye) {
				return nil
			}
			return err
		case line, ok := <-lines:
			if !ok {
				// Give the assistant a moment to finish after input ends.
				select {
				case <-time.After(inputGrace):
					return nil
				case err := <-done:
					if errors.Is(err, ErrBye) {
						return nil
					}
					return err
				case <-ctx.Done():
					return nil
				}
			}
			if line == "" {
				continue
			}
			if line == "/quit" {
				return nil
			}
			if err := client.SendUtterance(line); err != nil {
				return fmt.Errorf("send: %w", err)
			}
		}
	}
}
