package clients

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Completion records go over the wire as raw maps. The backend does not use
// consistent flag field names across environments, so decoding into a fixed
// struct would silently drop the flags; the ledger detects the keys per
// record instead.

// ListRecords fetches the completion records for one (product, phase) pair.
func (c *Client) ListRecords(ctx context.Context, productID, phaseID int) ([]map[string]any, error) {
	query := url.Values{}
	query.Set("productoId", strconv.Itoa(productID))
	query.Set("faseId", strconv.Itoa(phaseID))

	var records []map[string]any
	if err := c.getJSON(ctx, "/producto-fase-tareas", query, &records); err != nil {
		return nil, err
	}

	return records, nil
}

// CreateRecord persists a new completion record and returns the stored
// shape, id included.
func (c *Client) CreateRecord(ctx context.Context, record map[string]any) (map[string]any, error) {
	var created map[string]any
	if err := c.sendJSON(ctx, http.MethodPost, "/producto-fase-tareas", record, &created); err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateRecord overwrites an existing completion record by id.
func (c *Client) UpdateRecord(ctx context.Context, id int, record map[string]any) error {
	return c.sendJSON(ctx, http.MethodPut, "/producto-fase-tareas/"+strconv.Itoa(id), record, nil)
}
