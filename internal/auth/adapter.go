package auth

import (
	"context"
	"strings"

	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"

	"github.com/bher20/eimpactmanager/internal/storage"
)

// Adapter implements the Casbin persist.Adapter interface using storage.Storage.
type Adapter struct {
	storage storage.Storage
}

// NewAdapter returns a new Casbin adapter.
func NewAdapter(s storage.Storage) *Adapter {
	return &Adapter{storage: s}
}

func toRule(ptype string, values []string) storage.CasbinRule {
	r := storage.CasbinRule{PType: ptype}
	fields := []*string{&r.V0, &r.V1, &r.V2, &r.V3, &r.V4, &r.V5}
	for i, v := range values {
		if i >= len(fields) {
			break
		}
		*fields[i] = v
	}
	return r
}

func fromRule(r storage.CasbinRule) []string {
	values := []string{r.PType, r.V0, r.V1, r.V2, r.V3, r.V4, r.V5}
	// Trailing empty fields are not part of the policy line.
	for len(values) > 1 && values[len(values)-1] == "" {
		values = values[:len(values)-1]
	}
	return values
}

// LoadPolicy loads all policy rules from the storage.
func (a *Adapter) LoadPolicy(m model.Model) error {
	rules, err := a.storage.LoadCasbinRules(context.Background())
	if err != nil {
		return err
	}
	for _, rule := range rules {
		if err := persist.LoadPolicyArray(fromRule(rule), m); err != nil {
			return err
		}
	}
	return nil
}

// SavePolicy replaces the stored rules with the policies held by the model.
func (a *Adapter) SavePolicy(m model.Model) error {
	ctx := context.Background()
	existing, err := a.storage.LoadCasbinRules(ctx)
	if err != nil {
		return err
	}
	for _, r := range existing {
		r.ID = 0
		if err := a.storage.RemoveCasbinRule(ctx, r); err != nil {
			return err
		}
	}
	for _, sec := range []string{"p", "g"} {
		for ptype, ast := range m[sec] {
			for _, rule := range ast.Policy {
				if err := a.storage.AddCasbinRule(ctx, toRule(ptype, rule)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// AddPolicy adds a policy rule to the storage.
func (a *Adapter) AddPolicy(sec string, ptype string, rule []string) error {
	return a.storage.AddCasbinRule(context.Background(), toRule(ptype, rule))
}

// RemovePolicy removes a policy rule from the storage.
func (a *Adapter) RemovePolicy(sec string, ptype string, rule []string) error {
	return a.storage.RemoveCasbinRule(context.Background(), toRule(ptype, rule))
}

// RemoveFilteredPolicy removes the rules of ptype whose fields, starting at
// fieldIndex, equal fieldValues. Empty filter values match anything.
func (a *Adapter) RemoveFilteredPolicy(sec string, ptype string, fieldIndex int, fieldValues ...string) error {
	ctx := context.Background()
	rules, err := a.storage.LoadCasbinRules(ctx)
	if err != nil {
		return err
	}
	for _, r := range rules {
		if r.PType != ptype || !matchesFilter(fromRule(r)[1:], fieldIndex, fieldValues) {
			continue
		}
		r.ID = 0
		if err := a.storage.RemoveCasbinRule(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func matchesFilter(values []string, fieldIndex int, filter []string) bool {
	for i, want := range filter {
		if strings.TrimSpace(want) == "" {
			continue
		}
		idx := fieldIndex + i
		if idx >= len(values) || values[idx] != want {
			return false
		}
	}
	return true
}
