package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/temperature-logger/internal/client"
	"github.com/i474232898/temperature-logger/internal/config"
	"github.com/i474232898/temperature-logger/internal/store"
	"github.com/i474232898/temperature-logger/internal/telemetry"
)

func newExportCommand() *cobra.Command {
	var (
		dataFile string
		outPath  string
		url      string
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored readings as CSV, from the data file or a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url != "" && dataFile != "" {
				return errors.New("--url and --file are mutually exclusive")
			}
			if url == "" && dataFile == "" {
				cfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				dataFile = cfg.DataFile
			}

			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			if url != "" {
				ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
				defer cancel()
				return exportRemote(ctx, client.New(url, timeout), out)
			}
			return exportFile(dataFile, out)
		},
	}
	cmd.Flags().StringVar(&dataFile, "file", "", "data file to read (defaults to DATA_FILE)")
	cmd.Flags().StringVar(&outPath, "out", "", "write the CSV to this path instead of stdout")
	cmd.Flags().StringVar(&url, "url", "", "download the export from the server at this base URL instead")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout for --url")
	return cmd
}

// exportRemote downloads the CSV export through the HTTP API.
func exportRemote(ctx context.Context, c *client.Client, out io.Writer) error {
	csv, err := c.ExportCSV(ctx)
	if err != nil {
		return err
	}
	_, err = out.Write(csv)
	return err
}

// exportFile renders the document at path as CSV. A missing file has no data.
func exportFile(path string, out io.Writer) error {
	doc, err := store.ReadDocument(path)
	if errors.Is(err, os.ErrNotExist) {
		return telemetry.ErrNoData
	}
	if err != nil {
		return err
	}

	csv, err := telemetry.ExportCSV(doc.Data)
	if err != nil {
		return err
	}
	_, err = out.Write(csv)
	return err
}
