package psf

import (
	"fmt"
)

// Metadata field names with reserved meaning. Everything else is free-form.
const (
	FieldSemester   = "semester"
	FieldCourse     = "course"
	FieldSection    = "section"
	FieldGroup      = "group"
	FieldAssignment = "assignment"

	// FieldPretorVersion records the tool version that wrote the archive.
	FieldPretorVersion = "pretor_version"

	// FieldMinimumVersion, when present, is the minimum tool version the
	// submission demands.
	FieldMinimumVersion = "minimum_version"

	// FieldTimestamp records archive creation time.
	FieldTimestamp = "timestamp"
)

// identityFields are required on every archive; together they form the Key.
var identityFields = []string{
	FieldSemester,
	FieldCourse,
	FieldSection,
	FieldGroup,
	FieldAssignment,
}

// Metadata is the archive's field-to-value record. Values are opaque,
// case-sensitive strings; set-or-insert, last write wins.
type Metadata map[string]string

// Clone returns an independent copy.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Key is the composite identity of one logical submission. It is the match
// key between external grade data and archives; two archives sharing a Key
// are duplicates for import purposes.
type Key struct {
	Semester   string
	Course     string
	Section    string
	Group      string
	Assignment string
}

// Key extracts the identity key, failing if any required field is absent.
func (m Metadata) Key() (Key, error) {
	for _, f := range identityFields {
		if m[f] == "" {
			return Key{}, fmt.Errorf("%w: required metadata field %q missing", ErrMalformed, f)
		}
	}
	return Key{
		Semester:   m[FieldSemester],
		Course:     m[FieldCourse],
		Section:    m[FieldSection],
		Group:      m[FieldGroup],
		Assignment: m[FieldAssignment],
	}, nil
}

func (k Key) String() string {
	return fmt.Sprintf("%s-%s-%s-%s-%s", k.Semester, k.Course, k.Section, k.Group, k.Assignment)
}

// DefaultName derives the conventional archive file name from the metadata.
func DefaultName(m Metadata) (string, error) {
	key, err := m.Key()
	if err != nil {
		return "", err
	}
	return key.String() + ".psf", nil
}

// Forensic is the provenance record captured once at archive creation: who
// packed the submission, where, from which directory, and with which tool.
// It is never updated afterwards.
type Forensic struct {
	Hostname  string `toml:"hostname"`
	User      string `toml:"user"`
	Timestamp string `toml:"timestamp"`
	Source    string `toml:"source"`
	Version   string `toml:"version"`
}
