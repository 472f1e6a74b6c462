package scheduler

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ncp-run/ncp/internal/fsutil"
)

// ExecutionStatus is an Execution's lifecycle state.
type ExecutionStatus string

const (
	ExecutionRunning ExecutionStatus = "running"
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailure ExecutionStatus = "failure"
)

// Execution is one task firing's full record, persisted as a JSON detail
// file plus (on completion) one CSV summary row (spec §4.15).
type Execution struct {
	ExecutionID  string          `json:"executionId"`
	TaskID       string          `json:"jobId"`
	TaskName     string          `json:"jobName"`
	Tool         string          `json:"tool"`
	StartedAt    time.Time       `json:"startedAt"`
	Duration     time.Duration   `json:"duration,omitempty"`
	Status       ExecutionStatus `json:"status"`
	Result       string          `json:"result,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	ErrorType    string          `json:"errorType,omitempty"`
}

var summaryHeader = []string{"executionId", "jobId", "jobName", "tool", "startedAt", "duration", "status", "errorMessage"}

// Recorder implements the Execution Recorder (C15).
type Recorder struct {
	mu         sync.Mutex
	resultsDir string
	summaryCSV string
}

// NewRecorder returns a Recorder rooted at
// <baseDir>/scheduler/executions/{summary.csv,results/}.
func NewRecorder(baseDir string) (*Recorder, error) {
	execDir := filepath.Join(baseDir, "scheduler", "executions")
	resultsDir := filepath.Join(execDir, "results")
	if err := fsutil.EnsureDir(resultsDir); err != nil {
		return nil, err
	}
	return &Recorder{
		resultsDir: resultsDir,
		summaryCSV: filepath.Join(execDir, "summary.csv"),
	}, nil
}

func (r *Recorder) detailPath(executionID string) string {
	return filepath.Join(r.resultsDir, executionID+".json")
}

// Get reads back one execution's current detail record. ok is false if no
// record has been written yet for executionID.
func (r *Recorder) Get(executionID string) (e Execution, ok bool, err error) {
	raw, err := fsutil.ReadFileOrEmpty(r.detailPath(executionID))
	if err != nil {
		return Execution{}, false, err
	}
	if raw == nil {
		return Execution{}, false, nil
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return Execution{}, false, err
	}
	return e, true, nil
}

// StartExecution writes a "running" JSON detail file. No CSV row yet
// (spec §4.15): the CSV is append-only and written only on completion, so
// a crash mid-execution never shows up as a completed row.
func (r *Recorder) StartExecution(e Execution) error {
	e.Status = ExecutionRunning
	return fsutil.AtomicWriteJSON(r.detailPath(e.ExecutionID), e)
}

// CompleteExecution updates the JSON detail and appends one CSV summary
// row under append+fsync.
func (r *Recorder) CompleteExecution(executionID string, status ExecutionStatus, result, errMsg, errType string, startedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := Execution{
		ExecutionID:  executionID,
		Status:       status,
		Result:       result,
		ErrorMessage: errMsg,
		ErrorType:    errType,
		StartedAt:    startedAt,
		Duration:     time.Since(startedAt),
	}

	if raw, err := fsutil.ReadFileOrEmpty(r.detailPath(executionID)); err == nil && raw != nil {
		var existing Execution
		if json.Unmarshal(raw, &existing) == nil {
			e.TaskID = existing.TaskID
			e.TaskName = existing.TaskName
			e.Tool = existing.Tool
			if !existing.StartedAt.IsZero() {
				e.StartedAt = existing.StartedAt
				e.Duration = time.Since(existing.StartedAt)
			}
		}
	}

	if err := fsutil.AtomicWriteJSON(r.detailPath(executionID), e); err != nil {
		return err
	}

	return r.appendSummaryRow(e)
}

func (r *Recorder) appendSummaryRow(e Execution) error {
	needsHeader := !fsutil.Exists(r.summaryCSV)

	f, err := os.OpenFile(r.summaryCSV, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needsHeader {
		if err := w.Write(summaryHeader); err != nil {
			return err
		}
	}
	row := []string{
		e.ExecutionID,
		e.TaskID,
		e.TaskName,
		e.Tool,
		e.StartedAt.Format(time.RFC3339),
		strconv.FormatInt(e.Duration.Milliseconds(), 10),
		string(e.Status),
		e.ErrorMessage,
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Sync()
}

// ExecutionFilter narrows QueryExecutions.
type ExecutionFilter struct {
	TaskID string
	Status ExecutionStatus
	Limit  int
}

// QueryExecutions reads every detail file, applies filter, and returns
// results sorted by startedAt descending.
func (r *Recorder) QueryExecutions(filter ExecutionFilter) ([]Execution, error) {
	entries, err := os.ReadDir(r.resultsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []Execution
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(r.resultsDir, entry.Name()))
		if err != nil {
			continue
		}
		var e Execution
		if json.Unmarshal(raw, &e) != nil {
			continue
		}
		if filter.TaskID != "" && e.TaskID != filter.TaskID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// CleanupResult is cleanupOldExecutions's return shape.
type CleanupResult struct {
	DeletedCount int
	Errors       []string
}

// CleanupOldExecutions deletes JSON detail files older than maxAgeDays, and
// bounds entries per task to maxPerJob (0 = unbounded).
func (r *Recorder) CleanupOldExecutions(maxAgeDays int, maxPerJob int) CleanupResult {
	result := CleanupResult{}
	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)

	entries, err := os.ReadDir(r.resultsDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, err.Error())
		}
		return result
	}

	byTask := make(map[string][]Execution)
	paths := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(r.resultsDir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		var e Execution
		if json.Unmarshal(raw, &e) != nil {
			continue
		}
		if e.StartedAt.Before(cutoff) {
			if err := os.Remove(path); err != nil {
				result.Errors = append(result.Errors, err.Error())
				continue
			}
			result.DeletedCount++
			continue
		}
		byTask[e.TaskID] = append(byTask[e.TaskID], e)
		paths[e.ExecutionID] = path
	}

	if maxPerJob > 0 {
		for _, execs := range byTask {
			if len(execs) <= maxPerJob {
				continue
			}
			sort.Slice(execs, func(i, j int) bool { return execs[i].StartedAt.After(execs[j].StartedAt) })
			for _, e := range execs[maxPerJob:] {
				if err := os.Remove(paths[e.ExecutionID]); err != nil {
					result.Errors = append(result.Errors, err.Error())
					continue
				}
				result.DeletedCount++
			}
		}
	}

	return result
}
