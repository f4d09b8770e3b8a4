package update_recurring_status

// UpdateSeriesStatusRequest HTTP request model
type UpdateSeriesStatusRequest struct {
	Status string `json:"status"` // active, paused, cancelled, completed
}
