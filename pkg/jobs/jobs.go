package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/samvad-hq/samvad-graph/internal/domain"
	"gopkg.in/yaml.v3"
)

// Package jobs loads declarative Graph API operations from YAML/JSON files.

// Job is a single Graph API operation declared in a jobs file.
type Job struct {
	ID         string            `json:"id" yaml:"id"`
	Action     string            `json:"action" yaml:"action"`
	ObjectID   string            `json:"object_id" yaml:"object_id"`
	Connection string            `json:"connection" yaml:"connection"`
	Fields     []string          `json:"fields" yaml:"fields"`
	Params     map[string]string `json:"params" yaml:"params"`
	Data       map[string]any    `json:"data" yaml:"data"`
	Enabled    *bool             `json:"enabled" yaml:"enabled"`
}

type jobsFile struct {
	Jobs []Job `json:"jobs" yaml:"jobs"`
}

// Registry holds validated jobs in file order.
type Registry struct {
	mu   sync.RWMutex
	jobs []Job
	idx  map[string]Job
}

// LoadRegistry loads jobs from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("jobs file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open jobs file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read jobs file: %w", err)
	}

	parsed, err := parseJobsFile(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return NewRegistry(parsed.Jobs)
}

// NewRegistry validates jobs and indexes them by id.
func NewRegistry(jobs []Job) (*Registry, error) {
	if len(jobs) == 0 {
		return nil, errors.New("jobs file contains no jobs entries")
	}

	reg := &Registry{
		jobs: make([]Job, len(jobs)),
		idx:  make(map[string]Job, len(jobs)),
	}
	for i := range jobs {
		job := sanitizeJob(jobs[i])
		if err := validateJob(job); err != nil {
			return nil, fmt.Errorf("jobs[%d]: %w", i, err)
		}
		if _, exists := reg.idx[job.ID]; exists {
			return nil, fmt.Errorf("duplicate job id %q", job.ID)
		}
		reg.jobs[i] = job
		reg.idx[job.ID] = job
	}
	return reg, nil
}

func parseJobsFile(data []byte, ext string) (jobsFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	var lastErr error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var parsed jobsFile
		if err := d.fn(data, &parsed); err != nil {
			lastErr = fmt.Errorf("decode %s jobs: %w", d.name, err)
			continue
		}
		return parsed, nil
	}

	if lastErr != nil {
		return jobsFile{}, lastErr
	}
	return jobsFile{}, errors.New("jobs file format not recognized (expected YAML or JSON)")
}

func sanitizeJob(j Job) Job {
	j.ID = strings.TrimSpace(j.ID)
	j.Action = strings.ToLower(strings.TrimSpace(j.Action))
	j.ObjectID = strings.TrimSpace(j.ObjectID)
	j.Connection = strings.Trim(strings.TrimSpace(j.Connection), "/")

	fields := j.Fields[:0:0]
	for _, f := range j.Fields {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	j.Fields = fields

	if j.Enabled == nil {
		def := true
		j.Enabled = &def
	}
	return j
}

func validateJob(j Job) error {
	if j.ID == "" {
		return errors.New("id is required")
	}
	if j.ObjectID == "" {
		return fmt.Errorf("object_id is required for job %q", j.ID)
	}

	switch j.Action {
	case domain.ActionFetchObject, domain.ActionFetchConnections, domain.ActionDelete:
	case domain.ActionPublish, domain.ActionPost:
		if j.Connection == "" {
			return fmt.Errorf("connection is required for %s job %q", j.Action, j.ID)
		}
		if len(j.Data) == 0 {
			return fmt.Errorf("data is required for %s job %q", j.Action, j.ID)
		}
	case "":
		return fmt.Errorf("action is required for job %q", j.ID)
	default:
		return fmt.Errorf("unknown action %q for job %q", j.Action, j.ID)
	}

	if len(j.Fields) > 0 && j.Params["fields"] != "" {
		return fmt.Errorf("job %q sets both fields and params.fields", j.ID)
	}
	return nil
}

// ByID returns the job with the given id.
func (r *Registry) ByID(id string) (Job, bool) {
	if r == nil {
		return Job{}, false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Job{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.idx[id]
	return j, ok
}

// All returns every job in file order.
func (r *Registry) All() []Job {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}

// Enabled returns jobs whose enabled flag is unset or true.
func (r *Registry) Enabled() []Job {
	all := r.All()
	out := make([]Job, 0, len(all))
	for _, j := range all {
		if j.EnabledValue() {
			out = append(out, j)
		}
	}
	return out
}

// EnabledValue returns enabled flag defaulting to true.
func (j Job) EnabledValue() bool {
	if j.Enabled == nil {
		return true
	}
	return *j.Enabled
}

// StringData returns Data with every value formatted as a string, as Post expects.
func (j Job) StringData() map[string]string {
	if len(j.Data) == 0 {
		return nil
	}
	out := make(map[string]string, len(j.Data))
	for k, v := range j.Data {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}
