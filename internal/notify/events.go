// Package notify is the change notifier: after a write commits, the single
// affected row (already joined with its display attributes) is fanned out
// to every observer subscribed to the writer's scope.
//
// Delivery is at-most-once and best-effort by design. An observer that is
// disconnected, or too slow to drain its buffer, simply misses the delta;
// the ledger remains the durable source of truth and a reconnecting client
// re-pulls a fresh rollup instead of replaying missed deltas. Do not add
// guaranteed delivery here.
package notify

// Event types pushed to subscribers.
const (
	EventNewSubmission = "new_submission"
	EventSupplyUpdated = "supply_updated"
	EventNewTask       = "new_task"
)

// Event is one delta: the full changed record plus the scope it belongs to.
// The same marshaled bytes go to every subscriber of the room, and across
// the relay to other instances.
type Event struct {
	Type    string `json:"type"`
	Room    string `json:"room"`
	Payload any    `json:"payload"`
}
