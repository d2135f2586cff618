// Package jobs describes the shell jobs the simpleq CLI runs and loads them
// from YAML files or plain command lists.
package jobs

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Job is one command to run.
type Job struct {
	Name    string            `yaml:"name"`
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	Dir     string            `yaml:"dir,omitempty"`
}

// File is the top-level shape of a job file.
type File struct {
	Jobs []Job `yaml:"jobs"`
}

// Validate checks a single job.
func (j Job) Validate() error {
	if strings.TrimSpace(j.Command) == "" {
		return fmt.Errorf("jobs: %s: command is required", j.label())
	}
	for k := range j.Env {
		if k == "" || strings.Contains(k, "=") {
			return fmt.Errorf("jobs: %s: invalid env name %q", j.label(), k)
		}
	}
	return nil
}

func (j Job) label() string {
	if j.Name != "" {
		return j.Name
	}
	return j.Command
}

// ParseYAML decodes and validates a job file payload. Unnamed jobs are
// named after their position.
func ParseYAML(data []byte) ([]Job, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("jobs: job file is empty")
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("jobs: decode: %w", err)
	}
	if len(f.Jobs) == 0 {
		return nil, fmt.Errorf("jobs: no jobs defined")
	}

	seen := make(map[string]bool, len(f.Jobs))
	var errs []error
	for i := range f.Jobs {
		if f.Jobs[i].Name == "" {
			f.Jobs[i].Name = fmt.Sprintf("job-%d", i+1)
		}
		if seen[f.Jobs[i].Name] {
			errs = append(errs, fmt.Errorf("jobs: duplicate job name %q", f.Jobs[i].Name))
		}
		seen[f.Jobs[i].Name] = true
		if err := f.Jobs[i].Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return f.Jobs, nil
}

// LoadFile reads a YAML job file from disk.
func LoadFile(path string) ([]Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jobs: read %s: %w", path, err)
	}
	list, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("jobs: %s: %w", path, err)
	}
	return list, nil
}

// ParseLines turns each non-blank line of r into a job run through shell.
// Lines starting with # are comments.
func ParseLines(r io.Reader, shell string) ([]Job, error) {
	var list []Job
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		list = append(list, Job{
			Name:    fmt.Sprintf("line-%d", n),
			Command: shell,
			Args:    []string{"-c", line},
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("jobs: read lines: %w", err)
	}
	return list, nil
}

// Index maps job names to jobs.
func Index(list []Job) map[string]Job {
	out := make(map[string]Job, len(list))
	for _, j := range list {
		out[j.Name] = j
	}
	return out
}
