package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/coagronet/console/internal/domain/resource"
)

// List fetches one page of d, optionally scoped to parentID, and normalises
// either response shape.
func (c *Client) List(ctx context.Context, token string, d resource.Descriptor, page, size int, parentID int64) (resource.Page, error) {
	path, query := d.ListPath(page, size, parentID)
	endpoint := "resource.list." + d.Name
	resp, err := c.execute(ctx, call{endpoint: endpoint, method: http.MethodGet, path: path, token: token, query: query})
	if err != nil {
		return resource.Page{}, err
	}
	p, err := resource.NormalizePage(resp.Body())
	if err != nil {
		return resource.Page{}, fmt.Errorf("%s: %w", endpoint, err)
	}
	return p, nil
}

// Create posts rec and returns the stored record when the API echoes it.
func (c *Client) Create(ctx context.Context, token string, d resource.Descriptor, rec resource.Record) (resource.Record, error) {
	return c.write(ctx, call{
		endpoint: "resource.create." + d.Name,
		method:   http.MethodPost,
		path:     d.Path,
		token:    token,
		body:     rec,
	})
}

// Update replaces record id with rec.
func (c *Client) Update(ctx context.Context, token string, d resource.Descriptor, id int64, rec resource.Record) (resource.Record, error) {
	return c.write(ctx, call{
		endpoint: "resource.update." + d.Name,
		method:   http.MethodPut,
		path:     d.ItemPath(id),
		token:    token,
		body:     rec,
	})
}

// Delete removes record id.
func (c *Client) Delete(ctx context.Context, token string, d resource.Descriptor, id int64) error {
	_, err := c.execute(ctx, call{
		endpoint: "resource.delete." + d.Name,
		method:   http.MethodDelete,
		path:     d.ItemPath(id),
		token:    token,
	})
	return err
}

func (c *Client) write(ctx context.Context, in call) (resource.Record, error) {
	resp, err := c.execute(ctx, in)
	if err != nil {
		return nil, err
	}
	body := bytes.TrimSpace(resp.Body())
	if len(body) == 0 || body[0] != '{' {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var rec resource.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", in.endpoint, err)
	}
	return rec, nil
}

// Report is a streamed report document. The caller closes Body.
type Report struct {
	Body        io.ReadCloser
	ContentType string
	// Size is -1 when the API did not send a length.
	Size int64
}

// Report renders the named report with filter as JSON payload.
func (c *Client) Report(ctx context.Context, token, name string, filter json.RawMessage) (*Report, error) {
	if len(bytes.TrimSpace(filter)) == 0 {
		filter = json.RawMessage("{}")
	}
	resp, err := c.execute(ctx, call{
		endpoint: "report." + name,
		method:   http.MethodPost,
		path:     c.reportPrefix + "/" + strings.TrimLeft(name, "/"),
		token:    token,
		body:     []byte(filter),
		accept:   "application/pdf",
		stream:   true,
	})
	if err != nil {
		return nil, err
	}
	ct := resp.Header().Get("Content-Type")
	if ct == "" {
		ct = "application/pdf"
	}
	return &Report{Body: resp.RawBody(), ContentType: ct, Size: resp.RawResponse.ContentLength}, nil
}

func readLimited(r io.Reader, n int64) []byte {
	b, _ := io.ReadAll(io.LimitReader(r, n))
	return b
}
