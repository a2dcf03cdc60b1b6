package institutions

import (
	"context"
	"net/http"
	"net/url"

	"github.com/nephroinnovate/renal-console/internal/platform/gateway"
	"github.com/nephroinnovate/renal-console/pkg/pagination"
)

const basePath = "/fhir/Organization"

type Client struct {
	gw *gateway.Client
}

func NewClient(gw *gateway.Client) *Client {
	return &Client{gw: gw}
}

func (c *Client) List(ctx context.Context, p pagination.Params) ([]*Institution, int, error) {
	res, err := c.gw.Do(ctx, gateway.NewDescriptor(http.MethodGet, basePath).WithQuery(p.Query()))
	if err != nil {
		return nil, 0, err
	}
	list := res.List()
	out := make([]*Institution, 0, len(list.Items))
	for _, item := range list.Items {
		if raw, ok := item.(map[string]interface{}); ok {
			out = append(out, FromResource(raw))
		}
	}
	return out, list.Total, nil
}

func (c *Client) Get(ctx context.Context, id string) (*Institution, error) {
	res, err := c.gw.Do(ctx, gateway.NewDescriptor(http.MethodGet, basePath+"/"+url.PathEscape(id)))
	if err != nil {
		return nil, err
	}
	return decodeInstitution(res)
}

func (c *Client) Create(ctx context.Context, i *Institution) (*Institution, error) {
	d := gateway.NewDescriptor(http.MethodPost, basePath).WithBody(i.ToResource())
	res, err := c.gw.Do(ctx, d)
	if err != nil {
		return nil, err
	}
	return decodeInstitution(res)
}

func (c *Client) Update(ctx context.Context, i *Institution) (*Institution, error) {
	d := gateway.NewDescriptor(http.MethodPut, basePath+"/"+url.PathEscape(i.ID)).WithBody(i.ToResource())
	res, err := c.gw.Do(ctx, d)
	if err != nil {
		return nil, err
	}
	return decodeInstitution(res)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.gw.Do(ctx, gateway.NewDescriptor(http.MethodDelete, basePath+"/"+url.PathEscape(id)))
	return err
}

func decodeInstitution(res *gateway.Result) (*Institution, error) {
	var raw map[string]interface{}
	if err := res.Decode(&raw); err != nil {
		return nil, err
	}
	return FromResource(raw), nil
}
