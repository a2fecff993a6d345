package clients

import (
	"context"
	"net/http"
	"strconv"

	"github.com/nvelasco/fasegate/pkg/models"
)

// Product fetches one product by id.
func (c *Client) Product(ctx context.Context, id int) (*models.Product, error) {
	var product models.Product
	if err := c.getJSON(ctx, "/productos/"+strconv.Itoa(id), nil, &product); err != nil {
		return nil, err
	}

	return &product, nil
}

// UpdateProductStatus writes the product's estadoId. This is a partial
// update; the backend merges it into the stored product. Only the
// notification protocol's success path is allowed to call this.
func (c *Client) UpdateProductStatus(ctx context.Context, id, statusID int) error {
	body := map[string]any{"estadoId": statusID}

	return c.sendJSON(ctx, http.MethodPatch, "/productos/"+strconv.Itoa(id), body, nil)
}
