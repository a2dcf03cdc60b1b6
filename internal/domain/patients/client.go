package patients

import (
	"context"
	"net/http"
	"net/url"

	"github.com/nephroinnovate/renal-console/internal/platform/gateway"
	"github.com/nephroinnovate/renal-console/pkg/pagination"
)

const basePath = "/fhir/Patient"

// Client is the typed patients API built on the gateway.
type Client struct {
	gw *gateway.Client
}

func NewClient(gw *gateway.Client) *Client {
	return &Client{gw: gw}
}

// List fetches one page of patients. The optional search term matches
// against patient names upstream.
func (c *Client) List(ctx context.Context, search string, p pagination.Params) ([]*Patient, int, error) {
	q := p.Query()
	if search != "" {
		q.Set("name", search)
	}
	res, err := c.gw.Do(ctx, gateway.NewDescriptor(http.MethodGet, basePath).WithQuery(q))
	if err != nil {
		return nil, 0, err
	}
	list := res.List()
	out := make([]*Patient, 0, len(list.Items))
	for _, item := range list.Items {
		if raw, ok := item.(map[string]interface{}); ok {
			out = append(out, FromResource(raw))
		}
	}
	return out, list.Total, nil
}

func (c *Client) Get(ctx context.Context, id string) (*Patient, error) {
	res, err := c.gw.Do(ctx, gateway.NewDescriptor(http.MethodGet, basePath+"/"+url.PathEscape(id)))
	if err != nil {
		return nil, err
	}
	return decodePatient(res)
}

func (c *Client) Create(ctx context.Context, p *Patient) (*Patient, error) {
	d := gateway.NewDescriptor(http.MethodPost, basePath).WithBody(p.ToResource())
	res, err := c.gw.Do(ctx, d)
	if err != nil {
		return nil, err
	}
	return decodePatient(res)
}

func (c *Client) Update(ctx context.Context, p *Patient) (*Patient, error) {
	d := gateway.NewDescriptor(http.MethodPut, basePath+"/"+url.PathEscape(p.ID)).WithBody(p.ToResource())
	res, err := c.gw.Do(ctx, d)
	if err != nil {
		return nil, err
	}
	return decodePatient(res)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.gw.Do(ctx, gateway.NewDescriptor(http.MethodDelete, basePath+"/"+url.PathEscape(id)))
	return err
}

func decodePatient(res *gateway.Result) (*Patient, error) {
	var raw map[string]interface{}
	if err := res.Decode(&raw); err != nil {
		return nil, err
	}
	return FromResource(raw), nil
}
