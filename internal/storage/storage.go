package storage

import "perpscope/internal/model"

// Storage defines a sink for decoded domain events.
type Storage interface {
	PutEventBatch(events []model.DomainEvent) error
}
