package queue

const TypeStatsReconcile = "stats:reconcile"

type StatsReconcilePayload struct {
	UserID string `json:"user_id"`
}
