package model

import "fmt"

// ChangeCategory is the kind of entity a ChangeNotification refers to.
type ChangeCategory int

const (
	CategorySeed ChangeCategory = iota
	CategoryAuthorization
	CategoryAccount
)

func (c ChangeCategory) String() string {
	switch c {
	case CategorySeed:
		return "SEED"
	case CategoryAuthorization:
		return "AUTHORIZATION"
	case CategoryAccount:
		return "ACCOUNT"
	default:
		return fmt.Sprintf("ChangeCategory(%d)", int(c))
	}
}

// ChangeType is the kind of mutation.
type ChangeType int

const (
	ChangeCreate ChangeType = iota
	ChangeUpdate
	ChangeDelete
)

func (t ChangeType) String() string {
	switch t {
	case ChangeCreate:
		return "CREATE"
	case ChangeUpdate:
		return "UPDATE"
	case ChangeDelete:
		return "DELETE"
	default:
		return fmt.Sprintf("ChangeType(%d)", int(t))
	}
}

// ChangeNotification is a best-effort cache invalidation signal. ID is nil for bulk changes.
type ChangeNotification struct {
	Category ChangeCategory
	Type     ChangeType
	ID       *int64
}

// NewChange builds a notification for a single entity.
func NewChange(c ChangeCategory, t ChangeType, id int64) ChangeNotification {
	return ChangeNotification{Category: c, Type: t, ID: &id}
}

// NewBulkChange builds a notification that carries no id.
func NewBulkChange(c ChangeCategory, t ChangeType) ChangeNotification {
	return ChangeNotification{Category: c, Type: t}
}

func (n ChangeNotification) String() string {
	if n.ID == nil {
		return fmt.Sprintf("%s/%s", n.Category, n.Type)
	}
	return fmt.Sprintf("%s/%s/%d", n.Category, n.Type, *n.ID)
}
