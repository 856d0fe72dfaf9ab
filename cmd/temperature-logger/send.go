package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/i474232898/temperature-logger/internal/client"
)

var validate = validator.New()

type sendOptions struct {
	URL         string        `validate:"required,url"`
	Assignments []string      `validate:"min=1,dive,required"`
	Timeout     time.Duration `validate:"gt=0"`
}

func newSendCommand() *cobra.Command {
	opts := sendOptions{}
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Post one reading to a running server",
		Example: "  temperature-logger send --set tempC1=21.5 --set tempF1=70.7\n" +
			"  temperature-logger send --url http://sensor-hub:3000 --set tempDS3=19.25",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validate.Struct(opts); err != nil {
				return fmt.Errorf("invalid arguments: %w", err)
			}
			fields, err := parseAssignments(opts.Assignments)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			resp, err := client.New(opts.URL, opts.Timeout).PostReading(ctx, fields)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
	cmd.Flags().StringVar(&opts.URL, "url", "http://localhost:3000", "base URL of the server")
	cmd.Flags().StringArrayVar(&opts.Assignments, "set", nil, "sensor value as key=value (repeatable)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "request timeout")
	return cmd
}

// parseAssignments turns key=value pairs into reading fields. Values that
// parse as numbers or booleans are sent as such, everything else as strings.
func parseAssignments(pairs []string) (map[string]any, error) {
	fields := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q: want key=value", pair)
		}
		value = strings.TrimSpace(value)

		if f, err := strconv.ParseFloat(value, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			fields[key] = f
		} else if b, err := strconv.ParseBool(value); err == nil {
			fields[key] = b
		} else {
			fields[key] = value
		}
	}
	return fields, nil
}
