package users

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nephroinnovate/renal-console/internal/platform/gateway"
	"github.com/nephroinnovate/renal-console/pkg/pagination"
)

const basePath = "/api/v1/users"

// Client is the admin-facing users API. Listing uses the items/total
// envelope.
type Client struct {
	gw *gateway.Client
}

func NewClient(gw *gateway.Client) *Client {
	return &Client{gw: gw}
}

func (c *Client) List(ctx context.Context, role string, p pagination.Params) ([]*User, int, error) {
	q := p.Query()
	if role != "" {
		q.Set("role", role)
	}
	res, err := c.gw.Do(ctx, gateway.NewDescriptor(http.MethodGet, basePath).WithQuery(q))
	if err != nil {
		return nil, 0, err
	}
	list := res.List()
	out := make([]*User, 0, len(list.Items))
	for _, item := range list.Items {
		u, err := decodeItem(item)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, list.Total, nil
}

func (c *Client) Get(ctx context.Context, id string) (*User, error) {
	res, err := c.gw.Do(ctx, gateway.NewDescriptor(http.MethodGet, basePath+"/"+url.PathEscape(id)))
	if err != nil {
		return nil, err
	}
	var u User
	if err := res.Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Update(ctx context.Context, u *User) (*User, error) {
	d := gateway.NewDescriptor(http.MethodPut, basePath+"/"+url.PathEscape(u.ID)).WithBody(u)
	res, err := c.gw.Do(ctx, d)
	if err != nil {
		return nil, err
	}
	var updated User
	if err := res.Decode(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) Deactivate(ctx context.Context, id string) error {
	_, err := c.gw.Do(ctx, gateway.NewDescriptor(http.MethodDelete, basePath+"/"+url.PathEscape(id)))
	return err
}

func decodeItem(item interface{}) (*User, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("encode user item: %w", err)
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("decode user item: %w", err)
	}
	return &u, nil
}
