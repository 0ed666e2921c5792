package tupletable

import (
	"fmt"
	"strings"
)

// ColumnMap maps logical tuple positions (the order of the primary label,
// e.g. "SPO") to the physical key slots of one index (e.g. "POS").
type ColumnMap struct {
	primary    string
	order      string
	toPhysical []int // toPhysical[logical] = physical slot
	toLogical  []int // toLogical[physical] = logical position
}

// NewColumnMap checks that order is a permutation of primary.
func NewColumnMap(primary, order string) (ColumnMap, error) {
	primary, order = strings.ToUpper(primary), strings.ToUpper(order)
	if len(primary) != len(order) || len(primary) == 0 {
		return ColumnMap{}, fmt.Errorf("column map %s -> %s: lengths differ", primary, order)
	}
	m := ColumnMap{
		primary:    primary,
		order:      order,
		toPhysical: make([]int, len(order)),
		toLogical:  make([]int, len(order)),
	}
	seen := make(map[byte]bool, len(order))
	for phys := 0; phys < len(order); phys++ {
		c := order[phys]
		logical := strings.IndexByte(primary, c)
		if logical < 0 || seen[c] || strings.Count(primary, string(c)) != 1 {
			return ColumnMap{}, fmt.Errorf("column map %s -> %s: not a permutation", primary, order)
		}
		seen[c] = true
		m.toPhysical[logical] = phys
		m.toLogical[phys] = logical
	}
	return m, nil
}

func (m ColumnMap) Len() int { return len(m.order) }

// Label is the physical order, which also names the index.
func (m ColumnMap) Label() string { return m.order }

func (m ColumnMap) Primary() string { return m.primary }

// Slot returns the physical slot of a logical position.
func (m ColumnMap) Slot(logical int) int {
	return m.toPhysical[logical]
}

// Map reorders a logical tuple into physical order.
func (m ColumnMap) Map(logical Tuple) Tuple {
	phys := make(Tuple, len(logical))
	for i, id := range logical {
		phys[m.toPhysical[i]] = id
	}
	return phys
}

// Unmap reorders a physical tuple back into logical order.
func (m ColumnMap) Unmap(phys Tuple) Tuple {
	logical := make(Tuple, len(phys))
	for j, id := range phys {
		logical[m.toLogical[j]] = id
	}
	return logical
}

func (m ColumnMap) String() string {
	return m.primary + "->" + m.order
}
