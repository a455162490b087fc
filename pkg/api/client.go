package api

import (
	"context"
	"strconv"

	"github.com/go-resty/resty/v2"
	json "github.com/json-iterator/go"
	"github.com/workforce/tracker/pkg/client"
)

// Client talks to the HR backend's attendance, task and auth routes
type Client struct {
	http *resty.Client
}

// New wraps an existing resty client
func New(http *resty.Client) *Client {
	return &Client{http: http}
}

// Default uses the shared, configured HTTP client
func Default() *Client {
	return New(client.GetClient())
}

func (c *Client) get(ctx context.Context, path string, target interface{}) error {
	resp, err := c.http.R().SetContext(ctx).Get(path)
	if err := CheckResponse(resp, err); err != nil {
		return err
	}
	return decode(resp.Body(), target)
}

func (c *Client) post(ctx context.Context, path string, body, target interface{}) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		req.SetHeader("Content-Type", "application/json").SetBody(data)
	}

	resp, err := req.Post(path)
	if err := CheckResponse(resp, err); err != nil {
		return err
	}
	return decode(resp.Body(), target)
}

func decode(body []byte, target interface{}) error {
	if target == nil || len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, target)
}

func taskPath(taskID int64, action string) string {
	return "/tasks/" + strconv.FormatInt(taskID, 10) + "/" + action
}
