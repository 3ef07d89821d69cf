package achievements

// Dispatcher maps a raised domain event to the badge definitions eligible
// for re-evaluation. Earned badges are excluded: an award is terminal and
// is never re-evaluated, which also makes duplicate event delivery after
// an award a natural no-op.
type Dispatcher struct {
	catalog *Catalog
}

// NewDispatcher creates a dispatcher over the given catalog.
func NewDispatcher(catalog *Catalog) *Dispatcher {
	return &Dispatcher{catalog: catalog}
}

// Dispatch returns the definitions interested in ev that the child has not
// yet earned, in catalog sort order. earned is the set of badge codes from
// the child's award ledger. No side effects.
func (d *Dispatcher) Dispatch(ev TriggerEvent, earned map[string]bool) []*Definition {
	candidates := d.catalog.ByTrigger(ev)
	result := make([]*Definition, 0, len(candidates))
	for _, def := range candidates {
		if earned[def.Code] {
			continue
		}
		result = append(result, def)
	}
	return result
}
