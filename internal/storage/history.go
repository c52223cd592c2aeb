package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/thyrook/boardsight/internal/report"
)

const (
	// ReportsBucket stores finalized folder reports keyed by sequence number
	ReportsBucket = "reports"

	// MetaBucket for storing metadata
	MetaBucket = "meta"

	// CountKey tracks how many reports were ever recorded
	CountKey = "count"
)

var (
	// ErrClosed is returned by every operation on a closed store
	ErrClosed = errors.New("history store is closed")

	// ErrNotFound is returned when a report does not exist
	ErrNotFound = errors.New("report not found")
)

// Entry is a stored report with its sequence number
type Entry struct {
	Seq    uint64
	Report *report.FolderReport
}

// History keeps every finalized folder report in a bbolt database
type History struct {
	db       *bbolt.DB
	dbPath   string
	count    uint64
	isClosed bool
}

// NewHistory opens or creates the history database at dbPath
func NewHistory(dbPath string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(ReportsBucket)); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(MetaBucket)); err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	h := &History{
		db:     db,
		dbPath: dbPath,
	}

	count, err := h.Count()
	if err != nil {
		db.Close()
		return nil, err
	}
	h.count = count

	return h, nil
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// Record stores a report and returns its sequence number, starting at 1
func (h *History) Record(r *report.FolderReport) (uint64, error) {
	if h.isClosed {
		return 0, ErrClosed
	}
	if r == nil {
		return 0, fmt.Errorf("nil report")
	}

	data, err := json.Marshal(r)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal report: %w", err)
	}

	seq := h.count + 1

	err = h.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(ReportsBucket))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		if err := b.Put(seqKey(seq), data); err != nil {
			return err
		}

		meta := tx.Bucket([]byte(MetaBucket))
		if meta == nil {
			return fmt.Errorf("meta bucket not found")
		}
		return meta.Put([]byte(CountKey), seqKey(seq))
	})
	if err != nil {
		return 0, err
	}

	h.count = seq
	return seq, nil
}

// Get returns the report recorded under seq
func (h *History) Get(seq uint64) (*report.FolderReport, error) {
	if h.isClosed {
		return nil, ErrClosed
	}

	var r *report.FolderReport
	err := h.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(ReportsBucket))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		data := b.Get(seqKey(seq))
		if data == nil {
			return fmt.Errorf("%w: %d", ErrNotFound, seq)
		}

		var decoded report.FolderReport
		if err := json.Unmarshal(data, &decoded); err != nil {
			return fmt.Errorf("failed to decode report %d: %w", seq, err)
		}
		r = &decoded
		return nil
	})

	return r, err
}

// List returns up to limit reports, newest first. limit <= 0 returns all of them.
func (h *History) List(limit int) ([]Entry, error) {
	if h.isClosed {
		return nil, ErrClosed
	}

	entries := []Entry{}

	err := h.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(ReportsBucket))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(entries) >= limit {
				break
			}

			var r report.FolderReport
			if err := json.Unmarshal(v, &r); err != nil {
				continue // Skip corrupted reports
			}
			entries = append(entries, Entry{
				Seq:    binary.BigEndian.Uint64(k),
				Report: &r,
			})
		}
		return nil
	})

	return entries, err
}

// Latest returns the most recently recorded report
func (h *History) Latest() (*Entry, error) {
	entries, err := h.List(1)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return &entries[0], nil
}

// Count returns how many reports were ever recorded
func (h *History) Count() (uint64, error) {
	if h.isClosed {
		return 0, ErrClosed
	}

	var count uint64

	err := h.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket([]byte(MetaBucket))
		if meta == nil {
			return fmt.Errorf("meta bucket not found")
		}

		countBytes := meta.Get([]byte(CountKey))
		if countBytes != nil {
			count = binary.BigEndian.Uint64(countBytes)
		}
		return nil
	})

	return count, err
}

// Prune deletes all but the newest keep reports and returns how many were removed.
// Sequence numbers are never reused.
func (h *History) Prune(keep int) (int, error) {
	if h.isClosed {
		return 0, ErrClosed
	}
	if keep < 0 {
		return 0, fmt.Errorf("invalid keep count: %d", keep)
	}

	removed := 0
	err := h.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(ReportsBucket))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		var stale [][]byte
		kept := 0
		c := b.Cursor()
		for k, _ := c.Last(); k != nil; k, _ = c.Prev() {
			if kept < keep {
				kept++
				continue
			}
			stale = append(stale, append([]byte(nil), k...))
		}

		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})

	return removed, err
}

// Close closes the database connection
func (h *History) Close() error {
	if h.isClosed {
		return nil
	}

	h.isClosed = true
	return h.db.Close()
}

// Stats describes the history store
type Stats struct {
	Recorded uint64
	Stored   int
	DBPath   string
}

// GetStats returns current statistics
func (h *History) GetStats() (Stats, error) {
	if h.isClosed {
		return Stats{}, ErrClosed
	}

	count, err := h.Count()
	if err != nil {
		return Stats{}, err
	}

	var stored int
	err = h.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(ReportsBucket))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		stored = b.Stats().KeyN
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		Recorded: count,
		Stored:   stored,
		DBPath:   h.dbPath,
	}, nil
}

// ExportToJSON writes every stored report, oldest first, to outputPath
func (h *History) ExportToJSON(outputPath string) error {
	entries, err := h.List(0)
	if err != nil {
		return err
	}

	reports := make([]*report.FolderReport, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		reports = append(reports, entries[i].Report)
	}

	data, err := json.MarshalIndent(reports, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal reports: %w", err)
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}
