package store

import "time"

// Clothing is one uploaded garment photo and its description.
type Clothing struct {
	ID            int64     `json:"id"`
	ImageFilename string    `json:"image_filename"`
	Description   string    `json:"description"`
	UploadTime    time.Time `json:"upload_time"`
}

// Preference is a style preference submitted when asking for an outfit.
type Preference struct {
	ID        int64     `json:"id"`
	StyleText string    `json:"style_text"`
	CreatedAt time.Time `json:"date"`
}

// Recommendation is a generated outfit suggestion.
type Recommendation struct {
	ID                int64     `json:"id"`
	OutfitDescription string    `json:"outfit_description"`
	Reason            string    `json:"reason"`
	GeneratedImage    string    `json:"generated_image,omitempty"`
	PreferenceID      int64     `json:"preference_id,omitempty"`
	CreatedAt         time.Time `json:"timestamp"`
}

// RunStatus is the lifecycle state of a forge run.
type RunStatus string

const (
	// RunRunning marks a run still in progress.
	RunRunning RunStatus = "running"
	// RunConverged marks a run that stopped because output stabilized.
	RunConverged RunStatus = "converged"
	// RunCompleted marks a run that stopped at its iteration limit or finished a single pass.
	RunCompleted RunStatus = "completed"
	// RunFailed marks a run that stopped on an error.
	RunFailed RunStatus = "failed"
)

// Run mode names.
const (
	ModeIterative = "iterative"
	ModeOnce      = "once"
)

// Run summarizes one forge invocation.
type Run struct {
	ID           string     `json:"run_id"`
	Subject      string     `json:"subject"`
	OutputDir    string     `json:"output_dir"`
	Mode         string     `json:"mode"`
	Status       RunStatus  `json:"status"`
	Iterations   int        `json:"iterations"`
	Converged    bool       `json:"converged"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// Iteration records what one forge iteration produced.
type Iteration struct {
	RunID        string    `json:"run_id"`
	Iteration    int       `json:"iteration"`
	GapAnalysis  string    `json:"gap_analysis"`
	FilesWritten int       `json:"files_written"`
	Changed      bool      `json:"changed"`
	CreatedAt    time.Time `json:"created_at"`
}

// Stats counts rows per table.
type Stats struct {
	Clothes         int `json:"clothes"`
	Preferences     int `json:"preferences"`
	Recommendations int `json:"recommendations"`
	Runs            int `json:"forge_runs"`
}
