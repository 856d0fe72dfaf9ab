package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/temperature-logger/internal/client"
)

type remoteOptions struct {
	URL     string        `validate:"required,url"`
	Timeout time.Duration `validate:"gt=0"`
}

func (o *remoteOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.URL, "url", "http://localhost:3000", "base URL of the server")
	cmd.Flags().DurationVar(&o.Timeout, "timeout", 10*time.Second, "request timeout")
}

// run validates the options and calls fn with a client bounded by the timeout.
func (o *remoteOptions) run(cmd *cobra.Command, fn func(ctx context.Context, c *client.Client) error) error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), o.Timeout)
	defer cancel()
	return fn(ctx, client.New(o.URL, o.Timeout))
}

func newReadingsCommand() *cobra.Command {
	opts := remoteOptions{}
	cmd := &cobra.Command{
		Use:   "readings",
		Short: "Print the readings held by a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, c *client.Client) error {
				return printReadings(ctx, c, cmd.OutOrStdout())
			})
		},
	}
	opts.bind(cmd)
	return cmd
}

func newResetCommand() *cobra.Command {
	opts := remoteOptions{}
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard every reading on a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, c *client.Client) error {
				msg, err := c.Reset(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return nil
			})
		},
	}
	opts.bind(cmd)
	return cmd
}

func printReadings(ctx context.Context, c *client.Client, out io.Writer) error {
	doc, err := c.Readings(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
