package clients

import (
	"context"
	"net/url"
	"strconv"

	"github.com/nvelasco/fasegate/pkg/models"
)

// roleDTO carries the backend's activoSn flag before normalization.
type roleDTO struct {
	ID     int    `json:"id"`
	Name   string `json:"nombre"`
	Active string `json:"activoSn"`
}

// Role fetches one role by id and normalizes its active flag.
func (c *Client) Role(ctx context.Context, id int) (*models.Role, error) {
	var dto roleDTO
	if err := c.getJSON(ctx, "/roles/"+strconv.Itoa(id), nil, &dto); err != nil {
		return nil, err
	}

	return &models.Role{
		ID:     dto.ID,
		Name:   dto.Name,
		Active: dto.Active == models.FlagYes,
	}, nil
}

// CheckPermission asks the permission capability whether the given
// screen/action pair is allowed for the current credentials.
func (c *Client) CheckPermission(ctx context.Context, screen, action string) (bool, error) {
	query := url.Values{}
	query.Set("pantalla", screen)
	query.Set("accion", action)

	var result struct {
		Allowed bool `json:"permitido"`
	}

	if err := c.getJSON(ctx, "/permisos/check", query, &result); err != nil {
		return false, err
	}

	return result.Allowed, nil
}
