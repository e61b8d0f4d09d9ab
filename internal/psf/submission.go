package psf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/okian/pretor/pkg/version"
)

// SubmissionFileName is the per-assignment configuration file instructors
// drop into a submission directory.
const SubmissionFileName = "pretor.toml"

// SubmissionConfig carries instructor-provided defaults for archive
// creation. Metadata holds whichever identity fields the file sets; the
// student supplies the rest on the command line.
type SubmissionConfig struct {
	Metadata         Metadata
	Exclude          []string
	ValidAssignments []string
	MinimumVersion   string
}

// LoadSubmissionConfig reads pretor.toml from the submission directory. A
// minimum_version newer than this tool fails with ErrVersionIncompatible
// before any archive work starts.
func LoadSubmissionConfig(dir string) (*SubmissionConfig, error) {
	path := filepath.Join(dir, SubmissionFileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var doc struct {
		Semester             string   `toml:"semester"`
		Course               string   `toml:"course"`
		Section              string   `toml:"section"`
		Group                string   `toml:"group"`
		Assignment           string   `toml:"assignment"`
		Exclude              []string `toml:"exclude"`
		ValidAssignmentNames []string `toml:"valid_assignment_names"`
		MinimumVersion       string   `toml:"minimum_version"`
	}
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}

	if doc.MinimumVersion != "" {
		ok, err := version.AtLeast(version.Version, doc.MinimumVersion)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: bad minimum_version %q", ErrMalformed, path, doc.MinimumVersion)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s requires at least version %s, this is %s",
				ErrVersionIncompatible, path, doc.MinimumVersion, version.Version)
		}
	}

	m := Metadata{}
	set := func(field, value string) {
		if value != "" {
			m[field] = value
		}
	}
	set(FieldSemester, doc.Semester)
	set(FieldCourse, doc.Course)
	set(FieldSection, doc.Section)
	set(FieldGroup, doc.Group)
	set(FieldAssignment, doc.Assignment)
	set(FieldMinimumVersion, doc.MinimumVersion)

	return &SubmissionConfig{
		Metadata:         m,
		Exclude:          doc.Exclude,
		ValidAssignments: doc.ValidAssignmentNames,
		MinimumVersion:   doc.MinimumVersion,
	}, nil
}

// AllowsAssignment reports whether the assignment name is permitted by the
// submission configuration. An empty allow-list permits everything.
func (c *SubmissionConfig) AllowsAssignment(name string) bool {
	if len(c.ValidAssignments) == 0 {
		return true
	}
	for _, v := range c.ValidAssignments {
		if v == name {
			return true
		}
	}
	return false
}
