package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-order-verify/core"
)

const defaultDispatchTimeout = 10 * time.Second

// Client posts verification prompts to the messaging bridge. Fire and
// forget: one attempt per order, no retries, no outcome feedback into the
// verification record.
type Client struct {
	Adapter core.TransportAdapter
	URL     string
	Timeout time.Duration
	Logger  core.Logger
}

func NewClient(adapter core.TransportAdapter, url string) *Client {
	return &Client{
		Adapter: adapter,
		URL:     strings.TrimSpace(url),
		Timeout: defaultDispatchTimeout,
	}
}

func (c *Client) Send(ctx context.Context, payload core.NotificationPayload) error {
	if c == nil || c.Adapter == nil {
		return notifierError("notifier: client requires a transport adapter", goerrors.CategoryInternal, nil)
	}
	url := strings.TrimSpace(c.URL)
	if url == "" {
		return notifierError("notifier: dispatch url is required", goerrors.CategoryBadInput, nil)
	}
	if strings.TrimSpace(payload.Phone) == "" {
		return notifierError("notifier: payload phone is required", goerrors.CategoryBadInput, map[string]any{
			"source_order_id": payload.OrderID,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return notifierWrapError(err, goerrors.CategoryInternal, "notifier: encode payload", map[string]any{
			"source_order_id": payload.OrderID,
		})
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	res, err := c.Adapter.Do(ctx, core.TransportRequest{
		Method:  http.MethodPost,
		URL:     url,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
		Timeout: timeout,
	})
	if err != nil {
		return notifierWrapError(err, goerrors.CategoryExternal, "notifier: dispatch request", map[string]any{
			"source_order_id": payload.OrderID,
		})
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return notifierError(
			fmt.Sprintf("notifier: dispatch rejected with status %d", res.StatusCode),
			goerrors.CategoryExternal,
			map[string]any{
				"source_order_id": payload.OrderID,
				"status_code":     res.StatusCode,
			},
		)
	}
	if c.Logger != nil {
		c.Logger.Info("notification dispatched",
			"source_order_id", payload.OrderID,
			"status_code", res.StatusCode,
		)
	}
	return nil
}

var _ core.NotificationSender = (*Client)(nil)
