package entity

import "github.com/google/uuid"

// Entity is the identity contract shared by every persisted record.
type Entity interface {
	Key() uuid.UUID
}

// SoftDeletable entities are flagged as deleted instead of being removed.
// Rows stay in storage and are excluded only by queries filtering is_deleted.
type SoftDeletable interface {
	IsSoftDeleted() bool
	MarkDeleted()
}
