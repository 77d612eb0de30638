package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StageCounts is the per-stage accounting every stage must satisfy:
// Read == Loaded + total drops.
type StageCounts struct {
	Stage   RunStage       `json:"stage"`
	Read    int            `json:"read"`
	Loaded  int            `json:"loaded"`
	Dropped map[string]int `json:"dropped,omitempty"`
}

func (c StageCounts) TotalDropped() int {
	total := 0
	for _, n := range c.Dropped {
		total += n
	}
	return total
}

// ConsolidationRun is the audit record for one pipeline run.
type ConsolidationRun struct {
	ID         int        `gorm:"primary_key" json:"id"`
	RunUID     string     `gorm:"uniqueIndex;size:36;not null" json:"run_uid"`
	Status     RunStatus  `gorm:"type:enum('RUNNING','DONE','FAILED');default:'RUNNING';not null" json:"status"`
	Stage      RunStage   `gorm:"size:30;not null" json:"stage"`
	Summary    string     `gorm:"type:text" json:"summary"`
	Error      string     `gorm:"size:500" json:"error"`
	StartedAt  time.Time  `gorm:"autoCreateTime" json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

func NewConsolidationRun(db *gorm.DB) (*ConsolidationRun, error) {
	run := ConsolidationRun{
		RunUID: uuid.NewString(),
		Status: RunStatusRunning,
		Stage:  StageIdle,
	}
	if err := db.Create(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *ConsolidationRun) SetStage(db *gorm.DB, stage RunStage) error {
	r.Stage = stage
	return db.Model(r).Update("stage", stage).Error
}

// Finish marks the run terminal, serializing the accumulated stage counts.
func (r *ConsolidationRun) Finish(db *gorm.DB, status RunStatus, counts []StageCounts, runErr error) error {
	summary, err := json.Marshal(counts)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	r.Status = status
	r.Summary = string(summary)
	r.FinishedAt = &now
	if runErr != nil {
		msg := runErr.Error()
		if len(msg) > 500 {
			msg = msg[:500]
		}
		r.Error = msg
	}
	return db.Model(r).Updates(map[string]interface{}{
		"Status":     r.Status,
		"Stage":      r.Stage,
		"Summary":    r.Summary,
		"Error":      r.Error,
		"FinishedAt": r.FinishedAt,
	}).Error
}
