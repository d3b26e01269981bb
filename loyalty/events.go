package loyalty

// PointsEarned is published after an award transaction commits. Consumers
// (notification, audit log) receive it fire-and-forget; a failing
// consumer cannot roll back the committed ledger entry.
type PointsEarned struct {
	CustomerID string
	Entry      LedgerEntry
}

func (PointsEarned) EventName() string { return "loyalty.points_earned" }
