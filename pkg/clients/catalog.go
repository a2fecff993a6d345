package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/nvelasco/fasegate/pkg/models"
)

// Phases lists every phase known to the catalog endpoint. The response is
// shape-checked before decoding because the backend has been known to ship
// schema drift between environments.
func (c *Client) Phases(ctx context.Context) ([]models.Phase, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/fases", nil, &raw); err != nil {
		return nil, err
	}

	if err := validatePayload(phaseListSchema, raw); err != nil {
		return nil, fmt.Errorf("phase catalog payload rejected: %w", err)
	}

	var phases []models.Phase
	if err := json.Unmarshal(raw, &phases); err != nil {
		return nil, fmt.Errorf("failed to decode phase catalog: %w", err)
	}

	return phases, nil
}

// Tasks lists the tasks of one phase in catalog order.
func (c *Client) Tasks(ctx context.Context, phaseID int) ([]models.Task, error) {
	query := url.Values{}
	query.Set("faseId", strconv.Itoa(phaseID))

	var tasks []models.Task
	if err := c.getJSON(ctx, "/tareas-fase", query, &tasks); err != nil {
		return nil, err
	}

	return tasks, nil
}

// Statuses lists the external product status catalog.
func (c *Client) Statuses(ctx context.Context) ([]models.ProductStatus, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/estados", nil, &raw); err != nil {
		return nil, err
	}

	if err := validatePayload(statusListSchema, raw); err != nil {
		return nil, fmt.Errorf("status catalog payload rejected: %w", err)
	}

	var statuses []models.ProductStatus
	if err := json.Unmarshal(raw, &statuses); err != nil {
		return nil, fmt.Errorf("failed to decode status catalog: %w", err)
	}

	return statuses, nil
}
