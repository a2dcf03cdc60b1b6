package hdsessions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nephroinnovate/renal-console/internal/platform/gateway"
	"github.com/nephroinnovate/renal-console/pkg/pagination"
)

const basePath = "/api/v1/dialysis-sessions"

type Client struct {
	gw *gateway.Client
}

func NewClient(gw *gateway.Client) *Client {
	return &Client{gw: gw}
}

// List fetches one page of session logs, optionally scoped to a patient.
func (c *Client) List(ctx context.Context, patientID string, p pagination.Params) ([]*SessionLog, int, error) {
	q := p.Query()
	if patientID != "" {
		q.Set("patient", patientID)
	}
	res, err := c.gw.Do(ctx, gateway.NewDescriptor(http.MethodGet, basePath).WithQuery(q))
	if err != nil {
		return nil, 0, err
	}
	list := res.List()
	out := make([]*SessionLog, 0, len(list.Items))
	for _, item := range list.Items {
		log, err := decodeItem(item)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, log)
	}
	return out, list.Total, nil
}

func (c *Client) Get(ctx context.Context, id string) (*SessionLog, error) {
	res, err := c.gw.Do(ctx, gateway.NewDescriptor(http.MethodGet, basePath+"/"+url.PathEscape(id)))
	if err != nil {
		return nil, err
	}
	var log SessionLog
	if err := res.Decode(&log); err != nil {
		return nil, err
	}
	return &log, nil
}

func (c *Client) Create(ctx context.Context, log *SessionLog) (*SessionLog, error) {
	res, err := c.gw.Do(ctx, gateway.NewDescriptor(http.MethodPost, basePath).WithBody(log))
	if err != nil {
		return nil, err
	}
	var created SessionLog
	if err := res.Decode(&created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) Update(ctx context.Context, log *SessionLog) (*SessionLog, error) {
	d := gateway.NewDescriptor(http.MethodPut, basePath+"/"+url.PathEscape(log.ID)).WithBody(log)
	res, err := c.gw.Do(ctx, d)
	if err != nil {
		return nil, err
	}
	var updated SessionLog
	if err := res.Decode(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.gw.Do(ctx, gateway.NewDescriptor(http.MethodDelete, basePath+"/"+url.PathEscape(id)))
	return err
}

// decodeItem maps one normalized list item back onto the typed record.
func decodeItem(item interface{}) (*SessionLog, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("encode session item: %w", err)
	}
	var log SessionLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("decode session item: %w", err)
	}
	return &log, nil
}
