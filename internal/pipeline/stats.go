package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
)

// RunStats summarizes one run; written as a JSON artifact beside the process
// so operators can compare runs without trawling logs.
type RunStats struct {
	RunID         string `json:"run_id"`
	StartedAt     string `json:"started_at"`
	Duration      string `json:"duration"`
	SongFilesRead int    `json:"song_files_read"`
	LogFilesRead  int    `json:"log_files_read"`
	FilesSkipped  int    `json:"files_skipped"`
	LinesDropped  int    `json:"lines_dropped"`
	Songs         int    `json:"songs"`
	Artists       int    `json:"artists"`
	Users         int    `json:"users"`
	TimeRows      int    `json:"time_rows"`
	Songplays     int    `json:"songplays"`
}

// WriteFile persists the stats as indented JSON.
func (s *RunStats) WriteFile(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize run stats: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write run stats to %s: %w", path, err)
	}
	return nil
}
