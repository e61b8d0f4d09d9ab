// Package course loads grading course definitions.
//
// A course definition is a TOML file with one required [course] table
// carrying the course name, and one additional table per graded component.
// Each component table must declare a display name and a weight in 0..1:
//
//	[course]
//	name = "CSCE145"
//
//	[hw1]
//	name = "Homework 1"
//	weight = 0.1
package course

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Component is one graded unit of a course: an assignment, project, exam.
type Component struct {
	Name        string
	Weight      float64
	Description string
}

// Course maps component keys to their definitions. Component keys are the
// TOML table names and are what scorecards and grade rows reference.
type Course struct {
	Name        string
	Description string
	Components  map[string]Component
}

// Component looks up a component by its key.
func (c *Course) Component(key string) (Component, bool) {
	comp, ok := c.Components[key]
	return comp, ok
}

// Load reads a single course definition from path.
func Load(path string) (*Course, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read course definition %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a course definition from raw TOML.
func Parse(data []byte) (*Course, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	meta, ok := raw["course"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing [course] table", ErrMalformed)
	}
	name, ok := meta["name"].(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("%w: [course] specifies no name", ErrMalformed)
	}

	c := &Course{
		Name:       name,
		Components: make(map[string]Component),
	}
	if desc, ok := meta["description"].(string); ok {
		c.Description = desc
	}

	// Every table other than [course] is a component definition.
	for key, val := range raw {
		if key == "course" {
			continue
		}
		table, ok := val.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: key %q is not a component table", ErrMalformed, key)
		}
		comp, err := parseComponent(key, table)
		if err != nil {
			return nil, err
		}
		c.Components[key] = comp
	}

	if len(c.Components) == 0 {
		return nil, fmt.Errorf("%w: course %q defines no components", ErrMalformed, name)
	}
	return c, nil
}

func parseComponent(key string, table map[string]any) (Component, error) {
	name, ok := table["name"].(string)
	if !ok || name == "" {
		return Component{}, fmt.Errorf("%w: component %q has no name", ErrMalformed, key)
	}

	weight, err := toFloat(table["weight"])
	if err != nil {
		return Component{}, fmt.Errorf("%w: component %q: %w", ErrMalformed, key, err)
	}
	if weight < 0 || weight > 1 {
		return Component{}, fmt.Errorf("%w: component %q weight %v out of 0..1", ErrMalformed, key, weight)
	}

	comp := Component{Name: name, Weight: weight}
	if desc, ok := table["description"].(string); ok {
		comp.Description = desc
	}
	return comp, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case nil:
		return 0, fmt.Errorf("missing weight")
	default:
		return 0, fmt.Errorf("weight has non-numeric type %T", v)
	}
}

// LoadPath loads every course definition reachable from a colon-delimited
// search path of files and directories. Directories are walked recursively
// for .toml files. Files that fail to parse are skipped; the caller decides
// whether an empty result is an error. Courses are keyed by course name and
// later files win on name collisions.
func LoadPath(searchPath string) (map[string]*Course, []error) {
	courses := make(map[string]*Course)
	var soft []error

	for _, p := range strings.Split(searchPath, ":") {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			soft = append(soft, fmt.Errorf("course path %s: %w", p, err))
			continue
		}
		if !info.IsDir() {
			if c, err := Load(p); err != nil {
				soft = append(soft, err)
			} else {
				courses[c.Name] = c
			}
			continue
		}
		walkErr := filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".toml") {
				return nil
			}
			if c, err := Load(path); err != nil {
				soft = append(soft, err)
			} else {
				courses[c.Name] = c
			}
			return nil
		})
		if walkErr != nil {
			soft = append(soft, fmt.Errorf("walk course path %s: %w", p, walkErr))
		}
	}
	return courses, soft
}
