package models

import (
	"hash/fnv"

	"github.com/google/uuid"
)

// IdentityStrategy assigns primary keys to records built from scraped
// data, where the source exposes no usable ids of its own.
type IdentityStrategy interface {
	IDFor(name string) uint
}

// NameKeyedIdentity derives the id from the record name. Re-fetching
// the same subject or teacher yields the same id, so upserts converge
// on one row per name.
type NameKeyedIdentity struct{}

func (NameKeyedIdentity) IDFor(name string) uint {
	h := fnv.New32a()
	h.Write([]byte(name))
	id := h.Sum32()
	if id == 0 {
		id = 1
	}
	return uint(id)
}

// FreshIdentity assigns a random id on every call. Used for record
// kinds where each fetch produces new rows (schedule entries, tasks,
// messages, file refs).
type FreshIdentity struct{}

func (FreshIdentity) IDFor(string) uint {
	id := uuid.New().ID()
	if id == 0 {
		id = 1
	}
	return uint(id)
}
