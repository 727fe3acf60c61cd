package pipeline

import (
	"log/slog"

	"github.com/purescan/purescan/models"
)

// Notifier receives the stream of stage changes for in-flight scans so a
// status line can render progress. It is read-only telemetry: implementations
// must not feed back into pipeline logic, and a slow or failing notifier must
// not be able to stall a stage.
type Notifier interface {
	StageChanged(id string, stage models.Stage)
}

// NotifierFunc adapts a plain function to the Notifier interface.
type NotifierFunc func(id string, stage models.Stage)

func (f NotifierFunc) StageChanged(id string, stage models.Stage) {
	f(id, stage)
}

var stageMessages = map[models.Stage]string{
	models.StageUploading:  "Uploading image...",
	models.StageExtracting: "Extracting text from image...",
	models.StageAnalyzing:  "Analyzing ingredients...",
}

// StageMessage returns the user-facing status line for an in-flight stage,
// or the empty string for stages that need no status (terminal or queued).
func StageMessage(stage models.Stage) string {
	return stageMessages[stage]
}

// LogNotifier mirrors stage changes to the structured log.
type LogNotifier struct{}

func (LogNotifier) StageChanged(id string, stage models.Stage) {
	slog.Info("Scan stage changed.", "scanId", id, "stage", stage)
}
