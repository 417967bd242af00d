package entity

import (
	"time"
)

// Findings are the per-lesion boolean flags produced by the screening model.
// They are derived from the severity grade and never stored inconsistently
// with it: each grade's findings are a superset of all lower grades'.
type Findings struct {
	Microaneurysms     bool `json:"microaneurysms"`
	Hemorrhages        bool `json:"hemorrhages"`
	Exudates           bool `json:"exudates"`
	CottonWoolSpots    bool `json:"cottonWoolSpots"`
	Neovascularization bool `json:"neovascularization"`
}

// Analysis is one completed retinal screening. It is owned by exactly one
// user, references exactly one stored image blob, and is immutable after
// creation (no update or delete exists anywhere in the service).
type Analysis struct {
	ID            string
	UserID        string
	PatientLabel  string // synthetic display label, not a medical record number
	CapturedAt    time.Time
	ImageObject   string // blob store object id for the original upload
	Prediction    string
	Confidence    int
	SeverityScore int
	Details       Findings
	CreatedAt     time.Time
}
