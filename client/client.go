// Package client talks to the HTTP API of a running server.
package client

import (
	"ObstacleVisServer/codec"
	iface "ObstacleVisServer/interface"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const TimeOutSeconds = 5

var ErrServer = errors.New("server returned an error")

type Category struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Label string `json:"label"`
}

type apiError struct {
	Error string `json:"error"`
}

type Client struct {
	http *resty.Client
}

func New(baseURL string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(TimeOutSeconds * time.Second),
	}
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}
	if resp.IsError() {
		msg := resp.Status()
		if e, ok := resp.Error().(*apiError); ok && e.Error != "" {
			msg = e.Error
		}
		return fmt.Errorf("%w: %s %s: %s", ErrServer, resp.Request.Method, resp.Request.URL, msg)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	var out struct {
		Message string `json:"message"`
	}
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).SetError(&apiError{}).Get("/api/ping")
	if err := check(resp, err); err != nil {
		return err
	}
	if out.Message != "pong" {
		return fmt.Errorf("%w: unexpected ping reply %q", ErrServer, out.Message)
	}
	return nil
}

func (c *Client) Classify(ctx context.Context, label string) (Category, error) {
	var out struct {
		Data Category `json:"data"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"label": label}).
		SetResult(&out).
		SetError(&apiError{}).
		Post("/api/classify")
	if err := check(resp, err); err != nil {
		return Category{}, err
	}
	return out.Data, nil
}

func (c *Client) ParseObjects(ctx context.Context, format codec.Format, content []byte) ([]*iface.VisualObject, codec.Stats, error) {
	var out struct {
		Data  []*iface.VisualObject `json:"data"`
		Stats codec.Stats           `json:"stats"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("format", format.String()).
		SetHeader("Content-Type", "text/plain").
		SetBody(content).
		SetResult(&out).
		SetError(&apiError{}).
		Post("/api/objects/parse")
	if err := check(resp, err); err != nil {
		return nil, codec.Stats{}, err
	}
	return out.Data, out.Stats, nil
}

// FormatObjects returns the detection file text for objs.
func (c *Client) FormatObjects(ctx context.Context, objs []*iface.VisualObject) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"objects": objs}).
		SetError(&apiError{}).
		Post("/api/objects/format")
	if err := check(resp, err); err != nil {
		return "", err
	}
	return resp.String(), nil
}

// Render uploads an image with optional annotation files and returns the
// annotated JPEG and its render id. Empty paths are not sent.
func (c *Client) Render(ctx context.Context, imagePath, detPath, gtPath string) ([]byte, string, error) {
	req := c.http.R().
		SetContext(ctx).
		SetFile("image", imagePath).
		SetError(&apiError{})
	if detPath != "" {
		req.SetFile("detections", detPath)
	}
	if gtPath != "" {
		req.SetFile("groundTruth", gtPath)
	}
	resp, err := req.Post("/api/render")
	if err := check(resp, err); err != nil {
		return nil, "", err
	}
	return resp.Body(), resp.Header().Get("X-Render-ID"), nil
}
