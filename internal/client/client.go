package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/i474232898/temperature-logger/internal/telemetry"
)

// PostResponse is the body returned when a reading is accepted.
type PostResponse struct {
	Message string            `json:"message"`
	Reading telemetry.Reading `json:"reading"`
}

type messageBody struct {
	Message string `json:"message"`
}

// Client talks to a running temperature logger over its HTTP API.
type Client struct {
	http *resty.Client
}

// New creates a Client for the server at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

// PostReading submits fields as a new reading.
func (c *Client) PostReading(ctx context.Context, fields map[string]any) (*PostResponse, error) {
	var out PostResponse
	var apiErr messageBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(fields).
		SetResult(&out).
		SetError(&apiErr).
		Post("/api/temperature")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusCreated {
		return nil, statusError(resp, apiErr.Message)
	}
	return &out, nil
}

// Readings fetches the full document.
func (c *Client) Readings(ctx context.Context) (*telemetry.Document, error) {
	var doc telemetry.Document
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&doc).
		Get("/api/temperature")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, statusError(resp, "")
	}
	return &doc, nil
}

// Reset clears every reading on the server and returns its confirmation message.
func (c *Client) Reset(ctx context.Context) (string, error) {
	var out messageBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Post("/api/reset")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", statusError(resp, "")
	}
	return out.Message, nil
}

// ExportCSV downloads the CSV export. It returns telemetry.ErrNoData when the
// server has nothing to export.
func (c *Client) ExportCSV(ctx context.Context) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "text/csv").
		Get("/api/export")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, telemetry.ErrNoData
	}
	if resp.IsError() {
		return nil, statusError(resp, "")
	}
	return resp.Body(), nil
}

func statusError(resp *resty.Response, message string) error {
	if message == "" {
		message = string(resp.Body())
	}
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode(), message)
}
