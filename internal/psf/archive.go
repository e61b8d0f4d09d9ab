// Package psf implements the student submission archive: a zip container
// carrying a metadata record, an append-only revision ledger, and the
// submitted files. All mutation happens in memory; Save writes the whole
// container atomically.
package psf

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pretor/internal/ledger"
	"github.com/okian/pretor/pkg/metrics"
	"github.com/okian/pretor/pkg/version"
)

// payloadSource supplies the files stored under the content prefix. A fresh
// archive reads from the submission directory; a saved or opened one reads
// back from its own container on disk.
type payloadSource interface {
	writeTo(zw *zip.Writer) error
	names() ([]string, error)
}

// Archive is one student submission. It is not safe for concurrent use.
type Archive struct {
	path     string
	id       string
	format   int
	meta     Metadata
	forensic Forensic
	led      ledger.Ledger
	payload  payloadSource
}

// Open reads an existing archive into memory. The payload itself is not
// loaded; it streams from the container on Save or Extract.
func Open(path string) (*Archive, error) {
	zr, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	data, err := loadData(&zr.Reader)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	// An absent ledger entry is an empty history; a present one must read
	// and decode cleanly, or the revision history could be silently lost
	// on the next save.
	var led ledger.Ledger
	if entry(&zr.Reader, ledgerEntryName) != nil {
		raw, err := readEntry(&zr.Reader, ledgerEntryName)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		if led, err = decodeLedger(raw); err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
	}

	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, contentPrefix) {
			continue
		}
		if unsafePath(strings.TrimPrefix(f.Name, contentPrefix)) {
			return nil, fmt.Errorf("%w: unsafe payload path %q in %s", ErrMalformed, f.Name, path)
		}
	}

	metrics.RecordArchiveLoaded()
	return &Archive{
		path:     path,
		id:       data.ID,
		format:   data.Format,
		meta:     Metadata(data.Metadata).Clone(),
		forensic: data.Forensic,
		led:      led,
		payload:  &zipPayload{path: path},
	}, nil
}

// PeekMetadata reads only the metadata record of an archive. It is the cheap
// first pass of reconciliation: no ledger decode, no payload scan.
func PeekMetadata(path string) (Metadata, error) {
	zr, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	data, err := loadData(&zr.Reader)
	if err != nil {
		return nil, fmt.Errorf("peek %s: %w", path, err)
	}
	return Metadata(data.Metadata).Clone(), nil
}

// Create builds a new archive at path from the submission directory, writes
// it to disk, and returns the in-memory handle. The identity fields must all
// be present in meta. Without WithOverwrite an existing file is left
// untouched and ErrAlreadyExists is returned.
func Create(path string, meta Metadata, payloadDir string, opts ...Option) (*Archive, error) {
	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}

	m := meta.Clone()
	if _, err := m.Key(); err != nil {
		return nil, err
	}
	if min := m[FieldMinimumVersion]; min != "" {
		ok, err := version.AtLeast(version.Version, min)
		if err != nil {
			return nil, fmt.Errorf("%w: minimum_version %q: %v", ErrMalformed, min, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: submission requires at least version %s, this is %s",
				ErrVersionIncompatible, min, version.Version)
		}
	}

	info, err := os.Stat(payloadDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: payload directory %s", ErrNotFound, payloadDir)
	}
	if _, err := os.Stat(path); err == nil && !o.overwrite {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	}

	m[FieldPretorVersion] = version.Version
	if m[FieldTimestamp] == "" {
		m[FieldTimestamp] = time.Now().UTC().Format(time.RFC3339)
	}

	a := &Archive{
		path:     path,
		id:       uuid.NewString(),
		format:   version.FormatRevision,
		meta:     m,
		forensic: captureForensic(payloadDir, m[FieldTimestamp]),
		payload:  &dirPayload{dir: payloadDir, exclude: o.exclude},
	}
	if err := a.Save(); err != nil {
		return nil, err
	}
	metrics.RecordArchiveCreated()
	return a, nil
}

// captureForensic records provenance at creation time: the packing host and
// user, the absolute payload source, and the tool version. Best effort; a
// field that cannot be determined stays empty rather than failing creation.
func captureForensic(payloadDir, timestamp string) Forensic {
	f := Forensic{
		Timestamp: timestamp,
		Version:   version.Version,
	}
	if host, err := os.Hostname(); err == nil {
		f.Hostname = host
	}
	if u, err := user.Current(); err == nil {
		f.User = u.Username
	}
	if abs, err := filepath.Abs(payloadDir); err == nil {
		f.Source = abs
	} else {
		f.Source = payloadDir
	}
	return f
}

// Path returns the archive's location on disk.
func (a *Archive) Path() string { return a.path }

// ID returns the archive's immutable identifier.
func (a *Archive) ID() string { return a.id }

// Metadata returns a copy of the metadata record.
func (a *Archive) Metadata() Metadata { return a.meta.Clone() }

// Forensic returns the provenance record captured when the archive was
// created.
func (a *Archive) Forensic() Forensic { return a.forensic }

// Field looks up one metadata value.
func (a *Archive) Field(name string) (string, bool) {
	v, ok := a.meta[name]
	return v, ok
}

// SetField sets or inserts one metadata value without recording a revision.
func (a *Archive) SetField(name, value string) {
	a.meta[name] = value
}

// Modify sets one metadata value and records an empty revision so the
// change shows up in the archive's history.
func (a *Archive) Modify(name, value string) {
	a.SetField(name, value)
	a.led = a.led.Append(nil, time.Now().UTC())
	metrics.RecordRevisionAppended()
}

// AppendRevision records one set of weighted score contributions.
func (a *Archive) AppendRevision(contributions map[string]float64) {
	a.led = a.led.Append(contributions, time.Now().UTC())
	metrics.RecordRevisionAppended()
}

// Ledger returns the archive's revision history.
func (a *Archive) Ledger() ledger.Ledger { return a.led }

// Scorecard folds the ledger into the effective per-component scores.
func (a *Archive) Scorecard() ledger.Scorecard { return a.led.Scorecard() }

// Save writes the archive to its path. The container is assembled in a
// temporary file next to the target and renamed over it, so a failure
// mid-write never corrupts an existing archive.
func (a *Archive) Save() error {
	dir := filepath.Dir(a.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(a.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("save %s: %w", a.path, err)
	}
	if err := a.writeContainer(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", a.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", a.path, err)
	}
	if err := os.Rename(tmp.Name(), a.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", a.path, err)
	}

	// Future saves re-read the payload from the file just written.
	a.payload = &zipPayload{path: a.path}
	metrics.RecordArchiveSaved()
	return nil
}

func (a *Archive) writeContainer(w io.Writer) error {
	zw := zip.NewWriter(w)

	rawData, err := encodeData(archiveData{
		Format:   a.format,
		ID:       a.id,
		Metadata: a.meta,
		Forensic: a.forensic,
	})
	if err != nil {
		return err
	}
	if err := writeEntry(zw, dataEntryName, rawData); err != nil {
		return err
	}

	rawLedger, err := encodeLedger(a.led)
	if err != nil {
		return err
	}
	if err := writeEntry(zw, ledgerEntryName, rawLedger); err != nil {
		return err
	}

	if err := a.payload.writeTo(zw); err != nil {
		return err
	}
	return zw.Close()
}

// Extract writes the payload files into dest, creating directories as
// needed. Paths are re-validated against escape before any write.
func (a *Archive) Extract(dest string) error {
	zr, err := openReader(a.path)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, contentPrefix) {
			continue
		}
		rel := strings.TrimPrefix(f.Name, contentPrefix)
		if rel == "" {
			continue
		}
		if unsafePath(rel) {
			return fmt.Errorf("%w: unsafe payload path %q", ErrMalformed, f.Name)
		}
		target := filepath.Join(dest, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("extract %s: %w", a.path, err)
		}
		if err := extractFile(f, target); err != nil {
			return fmt.Errorf("extract %s: %w", a.path, err)
		}
	}
	return nil
}

// PayloadNames lists the payload paths relative to the content root, sorted.
func (a *Archive) PayloadNames() ([]string, error) {
	names, err := a.payload.names()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func openReader(path string) (*zip.ReadCloser, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	return zr, nil
}

func loadData(zr *zip.Reader) (archiveData, error) {
	raw, err := readEntry(zr, dataEntryName)
	if err != nil {
		return archiveData{}, err
	}
	data, err := decodeData(raw)
	if err != nil {
		return archiveData{}, err
	}
	if data.Format > version.FormatRevision {
		return archiveData{}, fmt.Errorf("%w: archive format %d is newer than supported format %d",
			ErrVersionIncompatible, data.Format, version.FormatRevision)
	}
	return data, nil
}

// zipPayload streams the content entries back out of an existing container.
type zipPayload struct {
	path string
}

func (p *zipPayload) writeTo(zw *zip.Writer) error {
	zr, err := openReader(p.path)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, contentPrefix) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		w, err := zw.Create(f.Name)
		if err != nil {
			rc.Close()
			return err
		}
		if _, err := io.Copy(w, rc); err != nil {
			rc.Close()
			return err
		}
		rc.Close()
	}
	return nil
}

func (p *zipPayload) names() ([]string, error) {
	zr, err := openReader(p.path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var out []string
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, contentPrefix) {
			out = append(out, strings.TrimPrefix(f.Name, contentPrefix))
		}
	}
	return out, nil
}

// dirPayload reads the content from a submission directory on first save.
type dirPayload struct {
	dir     string
	exclude []string
}

func (p *dirPayload) writeTo(zw *zip.Writer) error {
	return p.walk(func(rel, abs string) error {
		w, err := zw.Create(contentPrefix + rel)
		if err != nil {
			return err
		}
		in, err := os.Open(abs)
		if err != nil {
			return err
		}
		defer in.Close()
		_, err = io.Copy(w, in)
		return err
	})
}

func (p *dirPayload) names() ([]string, error) {
	var out []string
	err := p.walk(func(rel, abs string) error {
		out = append(out, rel)
		return nil
	})
	return out, err
}

func (p *dirPayload) walk(fn func(rel, abs string) error) error {
	return filepath.WalkDir(p.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(p.dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if p.excluded(rel) {
			return nil
		}
		return fn(rel, path)
	})
}

func (p *dirPayload) excluded(rel string) bool {
	base := rel
	if i := strings.LastIndex(rel, "/"); i >= 0 {
		base = rel[i+1:]
	}
	for _, pattern := range p.exclude {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
