package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"vidqueue/internal/ipc"
)

// newTestNotifyCommand asks the daemon to publish a test message to its
// ntfy topic. An unconfigured topic is reported, not treated as a failure.
func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Publish a test notification through the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					return fmt.Errorf("test notification: %w", err)
				}
				if resp == nil {
					return errors.New("daemon returned no notification result")
				}
				out := cmd.OutOrStdout()
				if resp.Sent {
					fmt.Fprintln(out, "Test notification sent")
					return nil
				}
				if resp.Message == "" {
					return errors.New("notification not sent")
				}
				fmt.Fprintln(out, resp.Message)
				return nil
			})
		},
	}
}
