package psf

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/okian/pretor/internal/ledger"
)

// The archive is a plain zip container holding two TOML records plus the
// submitted files under a fixed prefix.
const (
	dataEntryName   = "pretor_data.toml"
	ledgerEntryName = "ledger.toml"
	contentPrefix   = "contents/"
)

// archiveData is the serialized form of the container's data record.
type archiveData struct {
	Format   int               `toml:"format"`
	ID       string            `toml:"id"`
	Metadata map[string]string `toml:"metadata"`
	Forensic Forensic          `toml:"forensic"`
}

type revisionRecord struct {
	Seq           int                `toml:"seq"`
	Timestamp     time.Time          `toml:"timestamp"`
	Contributions map[string]float64 `toml:"contributions"`
}

type ledgerData struct {
	Revisions []revisionRecord `toml:"revision"`
}

func encodeData(d archiveData) ([]byte, error) {
	return toml.Marshal(d)
}

func decodeData(raw []byte) (archiveData, error) {
	var d archiveData
	if err := toml.Unmarshal(raw, &d); err != nil {
		return archiveData{}, fmt.Errorf("%w: %s: %v", ErrMalformed, dataEntryName, err)
	}
	return d, nil
}

func encodeLedger(l ledger.Ledger) ([]byte, error) {
	revs := l.Revisions()
	d := ledgerData{Revisions: make([]revisionRecord, 0, len(revs))}
	for _, r := range revs {
		d.Revisions = append(d.Revisions, revisionRecord{
			Seq:           r.Seq,
			Timestamp:     r.Timestamp,
			Contributions: r.Contributions,
		})
	}
	return toml.Marshal(d)
}

func decodeLedger(raw []byte) (ledger.Ledger, error) {
	var d ledgerData
	if err := toml.Unmarshal(raw, &d); err != nil {
		return ledger.Ledger{}, fmt.Errorf("%w: %s: %v", ErrMalformed, ledgerEntryName, err)
	}
	revs := make([]ledger.Revision, 0, len(d.Revisions))
	for _, r := range d.Revisions {
		revs = append(revs, ledger.Revision{
			Seq:           r.Seq,
			Timestamp:     r.Timestamp,
			Contributions: r.Contributions,
		})
	}
	l, err := ledger.FromRevisions(revs)
	if err != nil {
		return ledger.Ledger{}, fmt.Errorf("%w: %s: %v", ErrMalformed, ledgerEntryName, err)
	}
	return l, nil
}

// entry locates one named entry, or nil when the container lacks it. Absence
// and unreadability are different failures: callers that tolerate a missing
// entry must still refuse one that exists but cannot be decompressed.
func entry(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// readEntry returns the full content of one named entry, or ErrMalformed if
// the entry is absent or its data cannot be read back.
func readEntry(zr *zip.Reader, name string) ([]byte, error) {
	f := entry(zr, name)
	if f == nil {
		return nil, fmt.Errorf("%w: missing entry %s", ErrMalformed, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	return raw, nil
}

// unsafePath reports whether a payload path could escape the extraction
// root. Such archives are rejected outright.
func unsafePath(p string) bool {
	if strings.HasPrefix(p, "/") {
		return true
	}
	for _, part := range strings.Split(p, "/") {
		if part == ".." || strings.Contains(part, "~") {
			return true
		}
	}
	return false
}

func writeEntry(zw *zip.Writer, name string, raw []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(raw)
	return err
}
