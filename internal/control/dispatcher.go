package control

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go-leasegate/internal/apperr"

	"github.com/go-resty/resty/v2"
)

const DefaultDispatchTimeout = 10 * time.Second

// TokenSource mints the short-lived credential sent with each command.
type TokenSource interface {
	ServiceToken() (string, error)
}

// Dispatcher delivers commands to the control ingress over HTTP. Each call
// is a single attempt; retrying is the caller's decision.
type Dispatcher struct {
	client *resty.Client
	tokens TokenSource
}

func NewDispatcher(baseURL string, tokens TokenSource, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	return &Dispatcher{
		client: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("Accept", "application/json").
			SetTimeout(timeout),
		tokens: tokens,
	}
}

// Send posts cmd to /assets/{asset}/control/{sub}. Any transport error or
// non-2xx answer wraps apperr.ErrDispatch.
func (d *Dispatcher) Send(ctx context.Context, cmd Command) error {
	token, err := d.tokens.ServiceToken()
	if err != nil {
		return fmt.Errorf("failed to mint service token for %s: %w", cmd, apperr.ErrDispatch)
	}

	path := fmt.Sprintf("/assets/%s/control/%s", url.PathEscape(cmd.AssetNumber), url.PathEscape(cmd.SubAssetNumber))
	resp, err := d.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(cmd).
		Post(path)
	if err != nil {
		return fmt.Errorf("control request %s failed: %v: %w", cmd, err, apperr.ErrDispatch)
	}
	if resp.IsError() {
		return fmt.Errorf("control ingress answered %d for %s: %s: %w", resp.StatusCode(), cmd, resp.String(), apperr.ErrDispatch)
	}
	return nil
}
