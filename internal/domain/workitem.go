package domain

import "time"

// WorkItem represents one HGT file moving through the pipeline. An item
// is owned by exactly one worker at a time; it carries everything the
// worker needs so no shared lookups happen mid-task.
type WorkItem struct {
	Name       string         // Canonical file name (N00E010.hgt)
	Path       string         // Location in the working folder
	URL        string         // Remote source of the zip archive
	Zip        string         // Zip archive name
	MD5        string         // Expected archive checksum, empty when unknown
	SW         Coordinate     // Southwest corner derived from the name
	Size       int64          // File size in bytes, 0 until the file exists
	Resolution int            // Samples per side, 0 until derived from Size
	Status     WorkItemStatus // Stage the item last reached
	QueuedAt   time.Time      // Scan timestamp
}

// WorkItemStatus represents the processing stage of a work item.
type WorkItemStatus string

const (
	StatusPending     WorkItemStatus = "pending"
	StatusDownloading WorkItemStatus = "downloading"
	StatusExtracting  WorkItemStatus = "extracting"
	StatusImporting   WorkItemStatus = "importing"
	StatusDone        WorkItemStatus = "done"
	StatusFailed      WorkItemStatus = "failed"
)

// IsTerminal returns true once the item needs no further processing.
func (s WorkItemStatus) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// ItemResult reports the outcome of one processed item.
type ItemResult struct {
	Name    string        // File name
	Rows    int64         // Rows or samples written
	Elapsed time.Duration // Processing time
	Err     error         // Nil on success
}

// RunSummary aggregates the outcome of a pipeline stage.
type RunSummary struct {
	Stage     string        // Stage name (download, extract, import)
	Succeeded int           // Items completed
	Failed    int           // Items failed
	Rows      int64         // Total rows or samples written
	Elapsed   time.Duration // Wall time of the stage
	Failures  []ItemResult  // Failed items, in completion order
}

// AddResult folds one item outcome into the summary.
func (s *RunSummary) AddResult(r ItemResult) {
	if r.Err != nil {
		s.Failed++
		s.Failures = append(s.Failures, r)
		return
	}
	s.Succeeded++
	s.Rows += r.Rows
}

// Total returns the number of items the stage completed or failed.
func (s *RunSummary) Total() int {
	return s.Succeeded + s.Failed
}

// OK returns true if no item failed.
func (s *RunSummary) OK() bool {
	return s.Failed == 0
}
