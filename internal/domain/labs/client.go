package labs

import (
	"context"
	"net/http"
	"net/url"

	"github.com/nephroinnovate/renal-console/internal/platform/gateway"
	"github.com/nephroinnovate/renal-console/pkg/pagination"
)

const basePath = "/fhir/Observation"

type Client struct {
	gw *gateway.Client
}

func NewClient(gw *gateway.Client) *Client {
	return &Client{gw: gw}
}

// List fetches one page of lab results for a patient, optionally filtered
// to a single LOINC code.
func (c *Client) List(ctx context.Context, patientID, code string, p pagination.Params) ([]*LabResult, int, error) {
	q := p.Query()
	if patientID != "" {
		q.Set("patient", patientID)
	}
	if code != "" {
		q.Set("code", code)
	}
	res, err := c.gw.Do(ctx, gateway.NewDescriptor(http.MethodGet, basePath).WithQuery(q))
	if err != nil {
		return nil, 0, err
	}
	list := res.List()
	out := make([]*LabResult, 0, len(list.Items))
	for _, item := range list.Items {
		if raw, ok := item.(map[string]interface{}); ok {
			out = append(out, FromResource(raw))
		}
	}
	return out, list.Total, nil
}

func (c *Client) Get(ctx context.Context, id string) (*LabResult, error) {
	res, err := c.gw.Do(ctx, gateway.NewDescriptor(http.MethodGet, basePath+"/"+url.PathEscape(id)))
	if err != nil {
		return nil, err
	}
	var raw map[string]interface{}
	if err := res.Decode(&raw); err != nil {
		return nil, err
	}
	return FromResource(raw), nil
}

func (c *Client) Create(ctx context.Context, r *LabResult) (*LabResult, error) {
	d := gateway.NewDescriptor(http.MethodPost, basePath).WithBody(r.ToResource())
	res, err := c.gw.Do(ctx, d)
	if err != nil {
		return nil, err
	}
	var raw map[string]interface{}
	if err := res.Decode(&raw); err != nil {
		return nil, err
	}
	return FromResource(raw), nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.gw.Do(ctx, gateway.NewDescriptor(http.MethodDelete, basePath+"/"+url.PathEscape(id)))
	return err
}
