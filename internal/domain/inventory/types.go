package inventory

import (
	"fmt"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusConfirmed Status = "confirmed"
	StatusReleased  Status = "released"
	StatusExpired   Status = "expired"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusConfirmed, StatusReleased, StatusExpired:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the reservation can no longer transition.
func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusReleased || s == StatusExpired
}

// ItemKey identifies one inventory record: a vendor product plus an optional
// variant. Two keys with different variants of the same product address
// different records.
type ItemKey struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
}

func (k ItemKey) String() string {
	if k.VariantID == nil {
		return k.ProductID.String()
	}
	return fmt.Sprintf("%s/%s", k.ProductID, k.VariantID)
}

func (k ItemKey) Equals(other ItemKey) bool {
	if k.ProductID != other.ProductID {
		return false
	}
	if (k.VariantID == nil) != (other.VariantID == nil) {
		return false
	}
	return k.VariantID == nil || *k.VariantID == *other.VariantID
}

// Line is one requested quantity against an inventory record.
type Line struct {
	Key      ItemKey
	Quantity int32
}
