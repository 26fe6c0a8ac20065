// Package service defines the backend-agnostic types and interface for item operations.
package service

import "context"

// Store defines the interface for remote item store operations.
// All HTTP calls go through this interface.
// The cache and coordinator never import a transport directly.
type Store interface {
	// List returns every item in the collection, in store order.
	List(ctx context.Context, coll Collection) ([]Item, error)

	// Create stores a new item. The ID field of item is ignored.
	// Returns the stored item carrying the server-assigned ID.
	Create(ctx context.Context, coll Collection, item Item) (Item, error)

	// Replace overwrites the item with item.ID.
	// Returns the item as stored by the server.
	Replace(ctx context.Context, coll Collection, item Item) (Item, error)

	// Delete removes the item with the given ID.
	Delete(ctx context.Context, coll Collection, id string) error
}
