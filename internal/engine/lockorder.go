package engine

// OrderPair returns the two client IDs in the order their records must be
// acquired: ascending by ID. Every unit of work that holds two clients takes
// them in this order, whatever their roles in the trade, so no two units can
// wait on each other in a cycle.
func OrderPair(a, b int64) (first, second int64) {
	if b < a {
		return b, a
	}
	return a, b
}
