package expiry

import "time"

// SweepKind distinguishes expiry sweeps from review-schedule sweeps.
type SweepKind string

const (
	KindExpiry SweepKind = "expiry"
	KindReview SweepKind = "review"
)

// SweepRunRecord is the GORM model for one sweep execution. Runs are recorded
// whether triggered by the HTTP endpoint or the background loop.
type SweepRunRecord struct {
	ID          string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	Kind        SweepKind `gorm:"column:kind;index:idx_sweep_kind;not null"`
	TriggeredBy string    `gorm:"column:triggered_by;not null"`
	StartedAt   time.Time `gorm:"column:started_at;not null"`
	FinishedAt  time.Time `gorm:"column:finished_at"`
	Scanned     int       `gorm:"column:scanned"`
	Expired     int       `gorm:"column:expired"`
	Reminded    int       `gorm:"column:reminded"`
	Errors      int       `gorm:"column:errors"`
	LastError   string    `gorm:"column:last_error"`
}

// TableName returns the GORM table name.
func (SweepRunRecord) TableName() string { return "sweep_runs" }

// Result summarizes what one sweep did.
type Result struct {
	Scanned  int `json:"scanned"`
	Expired  int `json:"expired"`
	Reminded int `json:"reminded"`
	Errors   int `json:"errors"`
}

// Run is the API-facing sweep run type.
type Run struct {
	ID          string    `json:"id"`
	Kind        SweepKind `json:"kind"`
	TriggeredBy string    `json:"triggeredBy"`
	StartedAt   string    `json:"startedAt"`
	FinishedAt  string    `json:"finishedAt,omitempty"`
	Scanned     int       `json:"scanned"`
	Expired     int       `json:"expired"`
	Reminded    int       `json:"reminded"`
	Errors      int       `json:"errors"`
	LastError   string    `json:"lastError,omitempty"`
}
