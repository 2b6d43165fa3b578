package repositories

import (
	"fmt"

	"github.com/duskmoor/spotsweep/internal/models"
)

// likedValue is the storage tag for the built-in saved tracks collection,
// which has no playlist identifier of its own.
const likedValue = "_liked"

// EndpointValue serializes an endpoint into its storage column value.
func EndpointValue(e models.Endpoint) string {
	if e.IsSaved() {
		return likedValue
	}
	id, _ := e.PlaylistID()
	return id
}

// ParseEndpoint parses a storage column value back into an endpoint.
func ParseEndpoint(value string) (models.Endpoint, error) {
	if value == "" {
		return models.Endpoint{}, fmt.Errorf("empty endpoint value")
	}
	if value == likedValue {
		return models.SavedEndpoint(), nil
	}
	return models.PlaylistEndpoint(value), nil
}
