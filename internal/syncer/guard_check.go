package syncer

import (
	"context"

	"tillsync/internal/model"
)

// DependencyGuard declares a delete precondition: no record in Collection may
// reference the candidate through ForeignKey. When only the local replica can
// answer, records are also matched by the candidate's name through NameField.
// That is a degraded-mode heuristic, not a guaranteed check: a remote rename
// can decouple dependents from it.
type DependencyGuard struct {
	Collection string `json:"collection"`
	ForeignKey string `json:"foreignKey"`
	Value      string `json:"value"`
	NameField  string `json:"nameField,omitempty"`
	Name       string `json:"name,omitempty"`
	Reason     string `json:"reason"`
}

// CategoryInUse guards category deletion against dependent products.
func CategoryInUse(categoryID, categoryName string) *DependencyGuard {
	return &DependencyGuard{
		Collection: model.CollectionProducts,
		ForeignKey: "categoryId",
		Value:      categoryID,
		NameField:  "categoryName",
		Name:       categoryName,
		Reason:     "has_products",
	}
}

// checkRemote evaluates the guard against the remote store.
// Returns true when dependent records exist.
func (g *DependencyGuard) checkRemote(ctx context.Context, remote RemoteStore) (bool, error) {
	deps, err := remote.GetAll(ctx, g.Collection, map[string]string{g.ForeignKey: g.Value})
	if err != nil {
		return false, err
	}
	return len(deps) > 0, nil
}

// checkLocal evaluates the guard against a replica snapshot, id match first,
// historical-name match as fallback.
func (g *DependencyGuard) checkLocal(recs []model.Record) bool {
	for _, rec := range recs {
		if rec.String(g.ForeignKey) == g.Value {
			return true
		}
		if g.NameField != "" && g.Name != "" && rec.String(g.NameField) == g.Name {
			return true
		}
	}
	return false
}
