// Package record defines the application record that the persistence layer
// stores and reconstructs: accounts, classrooms, lesson progress and
// achievements for a single logical installation.
package record

import (
	"time"
)

// Account identifies a single user of the application. Accounts are
// essential data: cleanup must never remove them.
type Account struct {
	ID        string    `json:"accountId"`
	Name      string    `json:"displayName"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// Classroom groups accounts under a teacher-owned roster.
type Classroom struct {
	ID      string   `json:"classroomId"`
	Name    string   `json:"classroomName"`
	OwnerID string   `json:"ownerAccountId,omitempty"`
	Members []string `json:"memberAccountIds,omitempty"`
}

// ProgressEntry records the result of working through one lesson module.
// Entries newer than the configured retention threshold are essential;
// older ones may be evicted under storage pressure.
type ProgressEntry struct {
	ID        string             `json:"progressId"`
	AccountID string             `json:"accountId"`
	ModuleID  string             `json:"moduleId"`
	LessonID  string             `json:"lessonId,omitempty"`
	Score     float64            `json:"score"`
	Attempts  int                `json:"attempts,omitempty"`
	Skills    map[string]float64 `json:"skillBreakdown,omitempty"`
	Mastery   float64            `json:"masteryLevel,omitempty"`
	UpdatedAt time.Time          `json:"updatedAt,omitzero"`
}

// Achievement is an earned badge. Achievements are dropped only by an
// emergency reset, never by regular cleanup.
type Achievement struct {
	ID       string    `json:"achievementId"`
	Code     string    `json:"achievementCode"`
	EarnedBy string    `json:"accountId,omitempty"`
	EarnedAt time.Time `json:"earnedAt,omitzero"`
}

// Record is the root structure persisted by the orchestrator. It is always
// passed by value between caller and persistence layer: the orchestrator
// never retains a reference between calls.
type Record struct {
	Accounts     map[string]Account     `json:"accounts,omitempty"`
	Classrooms   map[string]Classroom   `json:"classrooms,omitempty"`
	Progress     []ProgressEntry        `json:"progress,omitempty"`
	Achievements map[string]Achievement `json:"achievements,omitempty"`

	// CountersCleared marks a record that went through an emergency reset
	// and lost its non-essential history.
	CountersCleared bool      `json:"countersCleared,omitempty"`
	ClearedAt       time.Time `json:"clearedAt,omitzero"`
}

// New returns an empty record with all collections allocated.
func New() *Record {
	return &Record{
		Accounts:     make(map[string]Account),
		Classrooms:   make(map[string]Classroom),
		Achievements: make(map[string]Achievement),
	}
}

// IsEmpty reports whether the record contains no entities at all.
func (r *Record) IsEmpty() bool {
	return len(r.Accounts) == 0 &&
		len(r.Classrooms) == 0 &&
		len(r.Progress) == 0 &&
		len(r.Achievements) == 0
}

// Clone returns a deep copy. The cleanup policy works on a clone so that
// the caller's record is never mutated behind its back.
func (r *Record) Clone() *Record {
	c := &Record{
		CountersCleared: r.CountersCleared,
		ClearedAt:       r.ClearedAt,
	}
	if r.Accounts != nil {
		c.Accounts = make(map[string]Account, len(r.Accounts))
		for id, a := range r.Accounts {
			c.Accounts[id] = a
		}
	}
	if r.Classrooms != nil {
		c.Classrooms = make(map[string]Classroom, len(r.Classrooms))
		for id, cl := range r.Classrooms {
			cl.Members = append([]string(nil), cl.Members...)
			c.Classrooms[id] = cl
		}
	}
	if r.Progress != nil {
		c.Progress = make([]ProgressEntry, len(r.Progress))
		for i, p := range r.Progress {
			if p.Skills != nil {
				skills := make(map[string]float64, len(p.Skills))
				for k, v := range p.Skills {
					skills[k] = v
				}
				p.Skills = skills
			}
			c.Progress[i] = p
		}
	}
	if r.Achievements != nil {
		c.Achievements = make(map[string]Achievement, len(r.Achievements))
		for id, a := range r.Achievements {
			c.Achievements[id] = a
		}
	}
	return c
}

// Essential returns the subset that must survive any cleanup: all accounts
// and the progress entries newer than the retention threshold. Classrooms
// and achievements are not part of the essential set.
func (r *Record) Essential(retention time.Duration, now time.Time) *Record {
	e := New()
	for id, a := range r.Accounts {
		e.Accounts[id] = a
	}
	cutoff := now.Add(-retention)
	for _, p := range r.Progress {
		if p.UpdatedAt.Before(cutoff) {
			continue
		}
		e.Progress = append(e.Progress, p)
	}
	return e
}

// Counts returns entity counts for logging.
func (r *Record) Counts() map[string]int {
	return map[string]int{
		"accounts":     len(r.Accounts),
		"classrooms":   len(r.Classrooms),
		"progress":     len(r.Progress),
		"achievements": len(r.Achievements),
	}
}
