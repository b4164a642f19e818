package id

import "github.com/google/uuid"

// UUIDGenerator issues random ids for cart sessions. Order ids are
// allocated sequentially by the engine and never come from here.
type UUIDGenerator struct{}

func NewUUIDGenerator() UUIDGenerator { return UUIDGenerator{} }

func (UUIDGenerator) NewID() string { return uuid.NewString() }
