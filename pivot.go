package record

import (
	"context"
	"slices"

	"github.com/syssam/record/internal/numeric"
)

// pivotKey identifies a pivot type independent of which side asks for it.
type pivotKey struct {
	tables [2]string
	join   string
	keys   [2]string
}

func sortedPair(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

// pivotType returns the memoized record type of a pivot table. It has no
// primary key, declares its two key columns and requires both to be
// numeric.
func (c *Client) pivotType(tableA, tableB, join, keyA, keyB string) *Type {
	k := pivotKey{tables: sortedPair(tableA, tableB), join: join, keys: sortedPair(keyA, keyB)}
	c.mu.RLock()
	t, ok := c.pivots[k]
	c.mu.RUnlock()
	if ok {
		return t
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.pivots[k]; ok {
		return t
	}
	t = newPivotType(join, k.keys[:])
	c.pivots[k] = t
	return t
}

func newPivotType(table string, keys []string) *Type {
	keys = slices.Clone(keys)
	t := Define(TypeConfig{
		Name:    table,
		Table:   table,
		Columns: keys,
		Validate: func(_ context.Context, r *Record) error {
			for _, k := range keys {
				if !numeric.Is(r.Get(k)) {
					r.AddError(BaseAttribute, k+" must be numeric")
				}
			}
			return nil
		},
	})
	t.pk = ""
	return t
}
