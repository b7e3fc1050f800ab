package compatibility

import "fmt"

// Action is the segregation requirement the table assigns to a pair of classes.
type Action string

const (
	ActionOKTogether       Action = "OK_TOGETHER"
	ActionSegregate3M      Action = "SEGREGATE_3M"
	ActionSegregate5M      Action = "SEGREGATE_5M"
	ActionIsolate          Action = "ISOLATE"
	ActionMayNotCompatible Action = "MAY_NOT_COMPATIBLE"
)

// DefaultAction applies to known classes whose pair has no table entry.
const DefaultAction = ActionSegregate3M

// pairKey is an unordered class pair stored with the lower code first.
type pairKey struct {
	lo ClassCode
	hi ClassCode
}

func newPairKey(a, b ClassCode) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

type rule struct {
	a, b   ClassCode
	action Action
}

// Table is an immutable lookup of pair rules.
type Table struct {
	rules map[pairKey]Action
}

// newTable builds a table from explicit pair rules and rejects conflicting duplicates.
func newTable(rules []rule) (*Table, error) {
	t := &Table{rules: make(map[pairKey]Action, len(rules))}
	for _, r := range rules {
		if !IsKnown(r.a) || !IsKnown(r.b) {
			return nil, fmt.Errorf("rule %s+%s references unknown class", r.a, r.b)
		}
		key := newPairKey(r.a, r.b)
		if existing, ok := t.rules[key]; ok && existing != r.action {
			return nil, fmt.Errorf("conflicting rules for %s+%s: %s vs %s", key.lo, key.hi, existing, r.action)
		}
		t.rules[key] = r.action
	}
	return t, nil
}

// Lookup returns the action for the unordered pair and whether the table defines it.
func (t *Table) Lookup(a, b ClassCode) (Action, bool) {
	action, ok := t.rules[newPairKey(a, b)]
	return action, ok
}

// Len reports the number of distinct pair entries.
func (t *Table) Len() int {
	return len(t.rules)
}

var defaultTable = mustTable(canonicalRules())

// DefaultTable returns the process-wide canonical compatibility table.
func DefaultTable() *Table {
	return defaultTable
}

func mustTable(rules []rule) *Table {
	t, err := newTable(rules)
	if err != nil {
		panic(err)
	}
	return t
}

func canonicalRules() []rule {
	const (
		ok  = ActionOKTogether
		s3  = ActionSegregate3M
		s5  = ActionSegregate5M
		iso = ActionIsolate
		mnc = ActionMayNotCompatible
	)

	rules := make([]rule, 0, 128)
	for _, info := range catalog {
		same := ok
		if info.Code == ClassMiscellaneous {
			same = mnc
		}
		rules = append(rules, rule{info.Code, info.Code, same})
		if info.Code != ClassMiscellaneous {
			rules = append(rules, rule{info.Code, ClassMiscellaneous, mnc})
		}
		if info.Code != ClassExplosive && info.Code != ClassMiscellaneous {
			rules = append(rules, rule{ClassExplosive, info.Code, iso})
		}
	}

	return append(rules,
		rule{ClassFlammableGas, ClassNonFlammableGas, ok},
		rule{ClassFlammableGas, ClassToxicGas, iso},
		rule{ClassFlammableGas, ClassFlammableLiquid, s3},
		rule{ClassFlammableGas, ClassFlammableSolid, s3},
		rule{ClassFlammableGas, ClassSpontaneouslyComb, s5},
		rule{ClassFlammableGas, ClassDangerousWhenWet, s3},
		rule{ClassFlammableGas, ClassOxidizer, s5},
		rule{ClassFlammableGas, ClassOrganicPeroxide, iso},
		rule{ClassFlammableGas, ClassToxic, s3},
		rule{ClassFlammableGas, ClassRadioactive, s5},
		rule{ClassFlammableGas, ClassCorrosive, s3},

		rule{ClassNonFlammableGas, ClassToxicGas, ok},
		rule{ClassNonFlammableGas, ClassFlammableLiquid, ok},
		rule{ClassNonFlammableGas, ClassFlammableSolid, ok},
		rule{ClassNonFlammableGas, ClassSpontaneouslyComb, ok},
		rule{ClassNonFlammableGas, ClassDangerousWhenWet, ok},
		rule{ClassNonFlammableGas, ClassOxidizer, ok},
		rule{ClassNonFlammableGas, ClassOrganicPeroxide, s3},
		rule{ClassNonFlammableGas, ClassToxic, ok},
		rule{ClassNonFlammableGas, ClassRadioactive, ok},
		rule{ClassNonFlammableGas, ClassCorrosive, ok},

		rule{ClassToxicGas, ClassFlammableLiquid, iso},
		rule{ClassToxicGas, ClassFlammableSolid, s5},
		rule{ClassToxicGas, ClassSpontaneouslyComb, s5},
		rule{ClassToxicGas, ClassDangerousWhenWet, s5},
		rule{ClassToxicGas, ClassOxidizer, iso},
		rule{ClassToxicGas, ClassOrganicPeroxide, iso},
		rule{ClassToxicGas, ClassToxic, ok},
		rule{ClassToxicGas, ClassRadioactive, s3},
		rule{ClassToxicGas, ClassCorrosive, iso},

		rule{ClassFlammableLiquid, ClassFlammableSolid, s3},
		rule{ClassFlammableLiquid, ClassSpontaneouslyComb, s5},
		rule{ClassFlammableLiquid, ClassDangerousWhenWet, s3},
		rule{ClassFlammableLiquid, ClassOxidizer, s5},
		rule{ClassFlammableLiquid, ClassOrganicPeroxide, iso},
		rule{ClassFlammableLiquid, ClassToxic, s3},
		rule{ClassFlammableLiquid, ClassRadioactive, s3},
		rule{ClassFlammableLiquid, ClassCorrosive, s3},

		rule{ClassFlammableSolid, ClassSpontaneouslyComb, s3},
		rule{ClassFlammableSolid, ClassDangerousWhenWet, s3},
		rule{ClassFlammableSolid, ClassOxidizer, s5},
		rule{ClassFlammableSolid, ClassOrganicPeroxide, iso},
		rule{ClassFlammableSolid, ClassToxic, ok},
		rule{ClassFlammableSolid, ClassRadioactive, s3},
		rule{ClassFlammableSolid, ClassCorrosive, s3},

		rule{ClassSpontaneouslyComb, ClassDangerousWhenWet, s5},
		rule{ClassSpontaneouslyComb, ClassOxidizer, iso},
		rule{ClassSpontaneouslyComb, ClassOrganicPeroxide, iso},
		rule{ClassSpontaneouslyComb, ClassToxic, s3},
		rule{ClassSpontaneouslyComb, ClassRadioactive, s3},
		rule{ClassSpontaneouslyComb, ClassCorrosive, s5},

		rule{ClassDangerousWhenWet, ClassOxidizer, s5},
		rule{ClassDangerousWhenWet, ClassOrganicPeroxide, iso},
		rule{ClassDangerousWhenWet, ClassToxic, s3},
		rule{ClassDangerousWhenWet, ClassRadioactive, s3},
		rule{ClassDangerousWhenWet, ClassCorrosive, iso},

		rule{ClassOxidizer, ClassOrganicPeroxide, iso},
		rule{ClassOxidizer, ClassToxic, s3},
		rule{ClassOxidizer, ClassRadioactive, s3},
		rule{ClassOxidizer, ClassCorrosive, s5},

		rule{ClassOrganicPeroxide, ClassToxic, s5},
		rule{ClassOrganicPeroxide, ClassRadioactive, s5},
		rule{ClassOrganicPeroxide, ClassCorrosive, iso},

		rule{ClassToxic, ClassCorrosive, s3},
	)
}
