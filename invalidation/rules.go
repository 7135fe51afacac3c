package invalidation

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Trigger is the kind of mutation that fires a rule.
type Trigger string

const (
	TriggerCreate Trigger = "CREATE"
	TriggerUpdate Trigger = "UPDATE"
	TriggerDelete Trigger = "DELETE"
)

// ParseTrigger accepts a trigger name in any case.
func ParseTrigger(s string) (Trigger, error) {
	switch t := Trigger(strings.ToUpper(strings.TrimSpace(s))); t {
	case TriggerCreate, TriggerUpdate, TriggerDelete:
		return t, nil
	default:
		return "", errors.Errorf("invalidation: unknown trigger %q", s)
	}
}

// Rule maps one (entity, trigger) pair to the key patterns it purges.
type Rule struct {
	Trigger  Trigger  `json:"trigger"`
	Entity   string   `json:"entity"`
	Patterns []string `json:"patterns"`
}

// DefaultRules is the rule table for the inventory domain.
// CREATE never lists the ":id:*" pattern since a new row has no id keyed entry yet.
//
// Master entities purge their own "masters:<plural>:*" keys plus the exact
// aggregate key "masters:all", never "masters:*", so a write to one master
// keeps the other masters' lists cached. Any other aggregate stored under the
// masters namespace (for example "masters:summary") is not covered and needs
// its own rule, registered through NewRuleTable.
func DefaultRules() []Rule {
	return []Rule{
		{TriggerCreate, "Client", []string{"clients:list:*", "masters:clients:*", "masters:all"}},
		{TriggerUpdate, "Client", []string{"clients:list:*", "clients:id:*", "masters:clients:*", "masters:all"}},
		{TriggerDelete, "Client", []string{"clients:list:*", "clients:id:*", "masters:clients:*", "masters:all"}},

		{TriggerCreate, "Seller", []string{"sellers:list:*", "masters:sellers:*", "masters:all"}},
		{TriggerUpdate, "Seller", []string{"sellers:list:*", "sellers:id:*", "masters:sellers:*", "masters:all"}},
		{TriggerDelete, "Seller", []string{"sellers:list:*", "sellers:id:*", "masters:sellers:*", "masters:all"}},

		{TriggerCreate, "Confeccionista", []string{"confeccionistas:list:*", "masters:confeccionistas:*", "masters:all"}},
		{TriggerUpdate, "Confeccionista", []string{"confeccionistas:list:*", "confeccionistas:id:*", "masters:confeccionistas:*", "masters:all"}},
		{TriggerDelete, "Confeccionista", []string{"confeccionistas:list:*", "confeccionistas:id:*", "masters:confeccionistas:*", "masters:all"}},

		{TriggerCreate, "Reference", []string{"references:list:*", "masters:references:*", "masters:all"}},
		{TriggerUpdate, "Reference", []string{"references:list:*", "references:id:*", "masters:references:*", "masters:all"}},
		{TriggerDelete, "Reference", []string{"references:list:*", "references:id:*", "masters:references:*", "masters:all"}},

		{TriggerCreate, "Correria", []string{"correrias:list:*", "masters:correrias:*", "masters:all"}},
		{TriggerUpdate, "Correria", []string{"correrias:list:*", "correrias:id:*", "masters:correrias:*", "masters:all"}},
		{TriggerDelete, "Correria", []string{"correrias:list:*", "correrias:id:*", "masters:correrias:*", "masters:all"}},

		{TriggerCreate, "DeliveryDate", []string{"delivery_dates:list:*"}},
		{TriggerUpdate, "DeliveryDate", []string{"delivery_dates:list:*", "delivery_dates:id:*"}},
		{TriggerDelete, "DeliveryDate", []string{"delivery_dates:list:*", "delivery_dates:id:*"}},

		{TriggerCreate, "Order", []string{"orders:list:*"}},
		{TriggerUpdate, "Order", []string{"orders:list:*", "orders:id:*"}},
		{TriggerDelete, "Order", []string{"orders:list:*", "orders:id:*"}},

		{TriggerCreate, "Dispatch", []string{"dispatches:list:*", "inventory:*"}},
		{TriggerUpdate, "Dispatch", []string{"dispatches:list:*", "dispatches:id:*", "inventory:*"}},
		{TriggerDelete, "Dispatch", []string{"dispatches:list:*", "dispatches:id:*", "inventory:*"}},

		{TriggerCreate, "Reception", []string{"receptions:list:*", "inventory:*"}},
		{TriggerUpdate, "Reception", []string{"receptions:list:*", "receptions:id:*", "inventory:*"}},
		{TriggerDelete, "Reception", []string{"receptions:list:*", "receptions:id:*", "inventory:*"}},

		{TriggerCreate, "Ficha", []string{"fichas:list:*", "references:id:*"}},
		{TriggerUpdate, "Ficha", []string{"fichas:list:*", "fichas:id:*", "references:id:*"}},
		{TriggerDelete, "Ficha", []string{"fichas:list:*", "fichas:id:*", "references:id:*"}},
	}
}

type ruleKey struct {
	entity  string
	trigger Trigger
}

// RuleTable is an immutable, indexed view over a rule list.
type RuleTable struct {
	rules []Rule
	index map[ruleKey][]string
}

// NewRuleTable copies rules so later changes to the slice do not leak in.
// Rules sharing an (entity, trigger) pair are merged in order.
func NewRuleTable(rules []Rule) *RuleTable {
	t := &RuleTable{
		rules: make([]Rule, 0, len(rules)),
		index: make(map[ruleKey][]string, len(rules)),
	}

	for _, r := range rules {
		patterns := append([]string(nil), r.Patterns...)
		t.rules = append(t.rules, Rule{Trigger: r.Trigger, Entity: r.Entity, Patterns: patterns})

		k := ruleKey{entity: r.Entity, trigger: r.Trigger}
		t.index[k] = append(t.index[k], patterns...)
	}

	return t
}

// GetInvalidationPatterns returns the patterns for (entity, trigger), or an
// empty slice when nothing matches.
func (t *RuleTable) GetInvalidationPatterns(entity string, trigger Trigger) []string {
	patterns := t.index[ruleKey{entity: entity, trigger: trigger}]
	return append([]string{}, patterns...)
}

// GetAllRules returns a copy of every rule in table order.
func (t *RuleTable) GetAllRules() []Rule {
	out := make([]Rule, len(t.rules))
	for i, r := range t.rules {
		out[i] = Rule{Trigger: r.Trigger, Entity: r.Entity, Patterns: append([]string(nil), r.Patterns...)}
	}
	return out
}

// GetRulesForEntity returns the rules of a single entity in table order.
func (t *RuleTable) GetRulesForEntity(entity string) []Rule {
	out := []Rule{}
	for _, r := range t.rules {
		if r.Entity == entity {
			out = append(out, Rule{Trigger: r.Trigger, Entity: r.Entity, Patterns: append([]string(nil), r.Patterns...)})
		}
	}
	return out
}

// Entities lists the distinct entity names, sorted.
func (t *RuleTable) Entities() []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range t.rules {
		if _, ok := seen[r.Entity]; ok {
			continue
		}
		seen[r.Entity] = struct{}{}
		out = append(out, r.Entity)
	}
	sort.Strings(out)
	return out
}
