package domain

import "time"

// Actions understood by the runner and recorded in the ledger.
const (
	ActionFetchObject      = "fetch_object"
	ActionFetchConnections = "fetch_connections"
	ActionPublish          = "publish"
	ActionPost             = "post"
	ActionDelete           = "delete"
)

// Operation describes one Graph API call made by the tool and its outcome.
type Operation struct {
	JobID      string    `json:"job_id,omitempty"`
	Action     string    `json:"action"`
	ObjectID   string    `json:"object_id"`
	Connection string    `json:"connection,omitempty"`
	ResultID   string    `json:"result_id,omitempty"`
	Result     any       `json:"result,omitempty"`
	At         time.Time `json:"at"`
}

// Mutating reports whether the operation changes remote state.
func (o Operation) Mutating() bool {
	switch o.Action {
	case ActionPublish, ActionPost, ActionDelete:
		return true
	default:
		return false
	}
}
