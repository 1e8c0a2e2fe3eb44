package models

import (
	"time"

	"github.com/google/uuid"
)

// Role controls write gates and parish visibility. Inspectors are confined
// to their own parish; admins see every parish.
type Role string

const (
	RoleInspector Role = "inspector"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleInspector || r == RoleAdmin
}

// SupplyKind distinguishes treated distribution systems from raw sources.
type SupplyKind string

const (
	SupplyTreated   SupplyKind = "treated"
	SupplyUntreated SupplyKind = "untreated"
)

func (k SupplyKind) Valid() bool {
	return k == SupplyTreated || k == SupplyUntreated
}

// User is an authenticated caller. Parish is the tenancy boundary: every
// query a non-admin user makes is scoped to this value.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	FullName     string    `json:"full_name"`
	Parish       string    `json:"parish"`
	CreatedAt    time.Time `json:"created_at"`
}

// Supply is a registered water source or distribution system. Immutable
// after creation except through administrative edits, which broadcast a
// supply_updated delta.
type Supply struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Kind      SupplyKind `json:"kind"`
	Agency    string     `json:"agency"`
	Location  string     `json:"location"`
	Parish    string     `json:"parish"`
	CreatedAt time.Time  `json:"created_at"`
}

// SamplingPoint is a named location on a supply. A submission may reference
// one, or reference the supply directly.
type SamplingPoint struct {
	ID          uuid.UUID `json:"id"`
	SupplyID    uuid.UUID `json:"supply_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Counts is the fixed set of inspection count fields carried by every
// submission and summed field-wise into monthly rollups. All values are
// non-negative integers; sums are exact (no floating point anywhere in the
// rollup path).
type Counts struct {
	Visits int `json:"visits"`

	ChlorineTotal    int `json:"chlorine_total"`
	ChlorinePositive int `json:"chlorine_positive"`
	ChlorineNegative int `json:"chlorine_negative"`

	BacteriologicalPositive int `json:"bacteriological_positive"`
	BacteriologicalNegative int `json:"bacteriological_negative"`
	BacteriologicalPending  int `json:"bacteriological_pending"`
	BacteriologicalRejected int `json:"bacteriological_rejected"`
	BacteriologicalBroken   int `json:"bacteriological_broken"`

	PHSatisfactory    int `json:"ph_satisfactory"`
	PHNonSatisfactory int `json:"ph_non_satisfactory"`

	ChemicalSatisfactory    int `json:"chemical_satisfactory"`
	ChemicalNonSatisfactory int `json:"chemical_non_satisfactory"`

	TurbiditySatisfactory    int `json:"turbidity_satisfactory"`
	TurbidityNonSatisfactory int `json:"turbidity_non_satisfactory"`

	TemperatureSatisfactory    int `json:"temperature_satisfactory"`
	TemperatureNonSatisfactory int `json:"temperature_non_satisfactory"`
}

// Add accumulates o into c field-wise. Zero is the identity, so folding any
// number of submissions into a zero Counts yields the exact monthly sum.
func (c *Counts) Add(o Counts) {
	c.Visits += o.Visits
	c.ChlorineTotal += o.ChlorineTotal
	c.ChlorinePositive += o.ChlorinePositive
	c.ChlorineNegative += o.ChlorineNegative
	c.BacteriologicalPositive += o.BacteriologicalPositive
	c.BacteriologicalNegative += o.BacteriologicalNegative
	c.BacteriologicalPending += o.BacteriologicalPending
	c.BacteriologicalRejected += o.BacteriologicalRejected
	c.BacteriologicalBroken += o.BacteriologicalBroken
	c.PHSatisfactory += o.PHSatisfactory
	c.PHNonSatisfactory += o.PHNonSatisfactory
	c.ChemicalSatisfactory += o.ChemicalSatisfactory
	c.ChemicalNonSatisfactory += o.ChemicalNonSatisfactory
	c.TurbiditySatisfactory += o.TurbiditySatisfactory
	c.TurbidityNonSatisfactory += o.TurbidityNonSatisfactory
	c.TemperatureSatisfactory += o.TemperatureSatisfactory
	c.TemperatureNonSatisfactory += o.TemperatureNonSatisfactory
}

// NonNegative reports whether every count field is >= 0. Enforced on every
// submission before it reaches the ledger.
func (c Counts) NonNegative() bool {
	for _, v := range [...]int{
		c.Visits,
		c.ChlorineTotal, c.ChlorinePositive, c.ChlorineNegative,
		c.BacteriologicalPositive, c.BacteriologicalNegative,
		c.BacteriologicalPending, c.BacteriologicalRejected, c.BacteriologicalBroken,
		c.PHSatisfactory, c.PHNonSatisfactory,
		c.ChemicalSatisfactory, c.ChemicalNonSatisfactory,
		c.TurbiditySatisfactory, c.TurbidityNonSatisfactory,
		c.TemperatureSatisfactory, c.TemperatureNonSatisfactory,
	} {
		if v < 0 {
			return false
		}
	}
	return true
}

// BacteriologicalComplete reports whether the bacteriological result set on a
// submission is resolved: at least one positive or negative result recorded
// and nothing left pending.
func (c Counts) BacteriologicalComplete() bool {
	return c.BacteriologicalPositive+c.BacteriologicalNegative > 0 &&
		c.BacteriologicalPending == 0
}

// Submission is a single ledger event: one inspector's visit counts for one
// supply on one calendar day. Rows are append-only; the only mutation ever
// applied is the bounded bacteriological pending->resolved correction.
//
// SubmissionDate is a calendar day, not an instant; it decides which month
// the counts roll into. CreatedAt is the write timestamp and feeds the
// rollup's last_updated marker.
type Submission struct {
	ID              int64      `json:"id"`
	SupplyID        uuid.UUID  `json:"supply_id"`
	SamplingPointID *uuid.UUID `json:"sampling_point_id,omitempty"`
	InspectorID     uuid.UUID  `json:"inspector_id"`
	SubmissionDate  time.Time  `json:"submission_date"`
	Counts
	Remarks                       string    `json:"remarks"`
	ChemicalNonSatisfactoryParams string    `json:"chemical_non_satisfactory_params,omitempty"`
	PHNonSatisfactoryParams       string    `json:"ph_non_satisfactory_params,omitempty"`
	CreatedAt                     time.Time `json:"created_at"`
}

// SubmissionDetail is a Submission joined with the display attributes
// observers need to render a delta without a second fetch.
type SubmissionDetail struct {
	Submission
	SupplyName        string     `json:"supply_name"`
	SupplyKind        SupplyKind `json:"supply_kind"`
	Agency            string     `json:"agency"`
	Parish            string     `json:"parish"`
	InspectorName     string     `json:"inspector_name"`
	SamplingPointName string     `json:"sampling_point_name,omitempty"`
}

// RollupRow is the derived monthly aggregate for one supply. It is a pure
// function of the submission set: re-summing the ledger always reproduces it.
// A supply with no submissions in the window still gets a row with all-zero
// counts and a nil LastUpdated.
type RollupRow struct {
	SupplyID   uuid.UUID  `json:"supply_id"`
	SupplyName string     `json:"supply_name"`
	Kind       SupplyKind `json:"kind"`
	Agency     string     `json:"agency"`
	Parish     string     `json:"parish"`
	Counts
	LastUpdated *time.Time `json:"last_updated"`
	// Remarks is the "; "-joined concatenation of non-empty submission
	// remarks. Populated only for report rollups, not live dashboards.
	Remarks string `json:"remarks,omitempty"`
}

// TaskStatus is the state of an out-of-band work assignment.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskAccepted   TaskStatus = "accepted"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskRejected   TaskStatus = "rejected"
)

// taskTransitions is the full adjacency of the task state machine:
// pending -> accepted -> in_progress -> completed, with pending -> rejected
// as the alternate terminal. Anything else is refused rather than applied.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskPending:    {TaskAccepted, TaskRejected},
	TaskAccepted:   {TaskInProgress},
	TaskInProgress: {TaskCompleted},
}

// CanTransitionTo reports whether moving from s to next is a legal single
// step. Terminal states (completed, rejected) admit no transitions.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	for _, t := range taskTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskRejected
}

// TaskPriority orders the admin's task board; it has no scheduling effect.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityNormal TaskPriority = "normal"
	PriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) Valid() bool {
	return p == PriorityLow || p == PriorityNormal || p == PriorityHigh
}

// Task is a work assignment against a supply. Only admins create tasks;
// only the assignee advances one through its lifecycle.
type Task struct {
	ID         uuid.UUID    `json:"id"`
	Title      string       `json:"title"`
	SupplyID   uuid.UUID    `json:"supply_id"`
	AssignedTo uuid.UUID    `json:"assigned_to"`
	CreatedBy  uuid.UUID    `json:"created_by"`
	Priority   TaskPriority `json:"priority"`
	DueDate    *time.Time   `json:"due_date,omitempty"`
	Status     TaskStatus   `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// TaskDetail joins a task with its display attributes for list views and
// new_task deltas.
type TaskDetail struct {
	Task
	SupplyName   string `json:"supply_name"`
	Parish       string `json:"parish"`
	AssigneeName string `json:"assignee_name"`
}
