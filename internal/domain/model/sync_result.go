package model

// SyncResult summarises one client's queue top-up.
type SyncResult struct {
	ClientID  string   `json:"client_id"`
	Added     int      `json:"added"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors"`
	QueueSize int      `json:"queue_size"`
	// Error is set by SyncAllClients when the client's sync failed as a whole.
	Error string `json:"error,omitempty"`
}

// Noop reports whether the sync neither added jobs nor failed.
func (r *SyncResult) Noop() bool {
	return r.Added == 0 && r.Error == "" && len(r.Errors) == 0
}
