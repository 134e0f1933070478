package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type Handler interface {
	Handle(ctx context.Context, req Request) Response
}

// Local delivers requests to a handler in the same process.
type Local struct {
	handler Handler
}

func NewLocal(handler Handler) *Local {
	return &Local{handler: handler}
}

func (l *Local) Send(ctx context.Context, req Request) Response {
	return l.handler.Handle(ctx, req)
}

// Remote posts requests to the message endpoint of another instance.
type Remote struct {
	client *resty.Client
}

func NewRemote(baseURL string, timeout time.Duration) *Remote {
	client := resty.New().SetBaseURL(strings.TrimRight(baseURL, "/"))
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &Remote{client: client}
}

func (r *Remote) Send(ctx context.Context, req Request) Response {
	var out Response
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/v1/messages")
	if err != nil {
		return Response{Success: false, Error: fmt.Sprintf("send message: %v", err)}
	}
	if resp.IsError() && !out.Success && out.Error == "" {
		return Response{Success: false, Error: fmt.Sprintf("message endpoint returned status %d", resp.StatusCode())}
	}
	return out
}

// ChannelFor picks a Remote channel when baseURL is set and a Local one over
// handler otherwise.
func ChannelFor(baseURL string, timeout time.Duration, handler Handler) Channel {
	if strings.TrimSpace(baseURL) != "" {
		return NewRemote(strings.TrimSpace(baseURL), timeout)
	}
	return NewLocal(handler)
}
