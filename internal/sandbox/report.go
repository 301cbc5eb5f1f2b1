package sandbox

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/desktopqa/terminal-bdd/internal/output"
)

// Embed is an attachment on a scenario, such as a traceback or screenshot.
type Embed struct {
	MimeType string `yaml:"mime"              json:"mime"`
	Caption  string `yaml:"caption"           json:"caption"`
	Encoding string `yaml:"encoding,omitempty" json:"encoding,omitempty"`
	Data     string `yaml:"data"              json:"data"`
}

// StepRecord is one executed step.
type StepRecord struct {
	Text     string        `yaml:"text"            json:"text"`
	Status   string        `yaml:"status"          json:"status"`
	Error    string        `yaml:"error,omitempty" json:"error,omitempty"`
	Duration time.Duration `yaml:"duration"        json:"duration"`
}

// ScenarioRecord is the report entry of one scenario.
type ScenarioRecord struct {
	Name     string        `yaml:"name"             json:"name"`
	Tags     []string      `yaml:"tags,omitempty"   json:"tags,omitempty"`
	Status   string        `yaml:"status"           json:"status"`
	Error    string        `yaml:"error,omitempty"  json:"error,omitempty"`
	Started  time.Time     `yaml:"started"          json:"started"`
	Duration time.Duration `yaml:"duration"         json:"duration"`
	Steps    []StepRecord  `yaml:"steps,omitempty"  json:"steps,omitempty"`
	Embeds   []Embed       `yaml:"embeds,omitempty" json:"embeds,omitempty"`

	mu sync.Mutex
}

// Embed attaches data to the scenario. Text types are stored verbatim,
// anything else base64 encoded.
func (r *ScenarioRecord) Embed(mimeType string, data []byte, caption string) {
	e := Embed{MimeType: mimeType, Caption: caption}
	if strings.HasPrefix(mimeType, "text") {
		e.Data = string(data)
	} else {
		e.Encoding = "base64"
		e.Data = base64.StdEncoding.EncodeToString(data)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Embeds = append(r.Embeds, e)
}

// AddStep appends a step result.
func (r *ScenarioRecord) AddStep(text string, d time.Duration, err error) {
	s := StepRecord{Text: text, Status: "passed", Duration: d}
	if err != nil {
		s.Status = "failed"
		s.Error = err.Error()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Steps = append(r.Steps, s)
}

// Finish sets the final status and duration.
func (r *ScenarioRecord) Finish(err error, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = "passed"
	if err != nil {
		r.Status = "failed"
		r.Error = err.Error()
	}
	r.Duration = now.Sub(r.Started)
}

// Report collects scenario records for one run.
type Report struct {
	Component string            `yaml:"component" json:"component"`
	Started   time.Time         `yaml:"started"   json:"started"`
	Scenarios []*ScenarioRecord `yaml:"scenarios" json:"scenarios"`

	mu sync.Mutex
}

// NewReport starts an empty report.
func NewReport(component string, now time.Time) *Report {
	return &Report{Component: component, Started: now}
}

// Begin appends a new scenario record and returns it.
func (r *Report) Begin(name string, tags []string, now time.Time) *ScenarioRecord {
	rec := &ScenarioRecord{Name: name, Tags: tags, Status: "running", Started: now}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Scenarios = append(r.Scenarios, rec)
	return rec
}

// Failed counts failed scenarios.
func (r *Report) Failed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.Scenarios {
		if s.Status == "failed" {
			n++
		}
	}
	return n
}

// Write stores the report as <dir>/<component>-report.<format>. An empty
// dir is a no-op returning "".
func (r *Report) Write(dir string, f output.Format) (string, error) {
	if dir == "" {
		return "", nil
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-report.%s", r.Component, f))
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := output.WriteFile(path, f, r); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
