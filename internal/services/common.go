package services

import (
	"fmt"

	"github.com/joshua-takyi/homeswift/internal/auth"
	"github.com/joshua-takyi/homeswift/internal/models"
	"github.com/joshua-takyi/homeswift/internal/query"
)

// visibleOnly hides soft-deleted listings unless the caller already
// filtered on status.
func visibleOnly(d query.Descriptor) query.Descriptor {
	if d.HasPredicate(query.FieldStatus) {
		return d
	}
	return d.With(query.Predicate{Field: query.FieldStatus, Op: query.OpNeq, Value: models.StatusDeleted})
}

func canManage(p *auth.Principal, prop *models.Property) bool {
	return p != nil && (p.IsAdmin() || p.IsOwner(prop.AgentID))
}

func requireManage(p *auth.Principal, prop *models.Property) error {
	if p == nil {
		return fmt.Errorf("manage property: %w", models.ErrForbidden)
	}
	if !canManage(p, prop) {
		return fmt.Errorf("manage property %s: %w", prop.ID, models.ErrForbidden)
	}
	return nil
}
