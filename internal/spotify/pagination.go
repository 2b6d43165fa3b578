package spotify

import (
	"context"
	"fmt"
)

// page is the API's cursor-paginated envelope. Next carries an absolute URL
// for the following page, or null on the last one.
type page[T any] struct {
	Items    []T     `json:"items"`
	Total    int     `json:"total"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
	Href     string  `json:"href"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// collectPages fetches every page starting at firstURL and accumulates the
// items. One-time query parameters (field selection, page size) belong on
// firstURL only; subsequent requests follow the server-supplied next URL
// verbatim so those parameters are not duplicated.
func collectPages[T any](ctx context.Context, c *Client, firstURL string) ([]T, error) {
	var items []T

	url := firstURL
	for url != "" {
		var p page[T]
		if err := c.do(ctx, "GET", url, nil, &p); err != nil {
			return nil, fmt.Errorf("failed to fetch page: %w", err)
		}

		items = append(items, p.Items...)

		if p.Next == nil {
			break
		}
		url = *p.Next
	}

	return items, nil
}
