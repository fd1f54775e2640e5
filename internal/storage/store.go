package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/san-kum/brownwork/internal/dynamo"
)

const (
	TableFile    = "trajectory.csv"
	MetadataFile = "metadata.json"
)

// Store keeps generated datasets under baseDir, one directory per run.
type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID           string             `json:"id"`
	Timestamp    time.Time          `json:"timestamp"`
	Seed         int64              `json:"seed"`
	K            float64            `json:"k"`
	Beta         float64            `json:"beta"`
	Gamma        float64            `json:"gamma"`
	Steps        int                `json:"steps"`
	Dt           float64            `json:"dt"`
	Displacement float64            `json:"lambda"`
	Velocity     float64            `json:"u"`
	Samples      int                `json:"samples"`
	Workers      int                `json:"workers"`
	Rows         int                `json:"rows"`
	ElapsedSec   float64            `json:"elapsed_sec"`
	Metrics      map[string]float64 `json:"metrics"`
}

// NewMetadata fills the protocol fields of a run record.
func NewMetadata(p dynamo.Protocol) RunMetadata {
	return RunMetadata{
		Seed:         p.Seed,
		K:            p.K,
		Beta:         p.Beta,
		Gamma:        p.Gamma,
		Steps:        p.Steps,
		Dt:           p.Dt,
		Displacement: p.Displacement,
		Velocity:     p.Velocity(),
		Samples:      p.Samples,
		Workers:      p.Workers,
		Metrics:      map[string]float64{},
	}
}

// Protocol rebuilds the protocol a run was generated with.
func (m RunMetadata) Protocol() dynamo.Protocol {
	return dynamo.Protocol{
		K:            m.K,
		Beta:         m.Beta,
		Gamma:        m.Gamma,
		Steps:        m.Steps,
		Dt:           m.Dt,
		Displacement: m.Displacement,
		Samples:      m.Samples,
		Seed:         m.Seed,
		Workers:      m.Workers,
	}
}

// Run is a dataset being written into the store.
type Run struct {
	ID    string
	Dir   string
	Table *Table
}

// Begin allocates a run directory and opens its table.
func (s *Store) Begin() (*Run, error) {
	runID := fmt.Sprintf("brownian_%d", s.now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, err
	}

	table, err := CreateTable(filepath.Join(runDir, TableFile))
	if err != nil {
		os.RemoveAll(runDir)
		return nil, err
	}

	return &Run{ID: runID, Dir: runDir, Table: table}, nil
}

// Commit publishes the run's table and writes its metadata. A run whose
// table or metadata cannot be written is removed.
func (s *Store) Commit(run *Run, meta RunMetadata) error {
	if err := run.Table.Close(); err != nil {
		os.RemoveAll(run.Dir)
		return err
	}

	meta.ID = run.ID
	meta.Timestamp = s.now()
	meta.Rows = run.Table.Rows()

	if err := WriteMetadata(filepath.Join(run.Dir, MetadataFile), meta); err != nil {
		os.RemoveAll(run.Dir)
		return err
	}
	return nil
}

// WriteMetadata writes meta as indented JSON to path.
func WriteMetadata(path string, meta RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Discard removes a run that failed part way.
func (s *Store) Discard(run *Run) error {
	run.Table.Abort()
	return os.RemoveAll(run.Dir)
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	return ReadMetadata(filepath.Join(s.baseDir, runID, MetadataFile))
}

// ReadMetadata decodes a run record written by WriteMetadata.
func ReadMetadata(path string) (*RunMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// TablePath is where the table of runID lives.
func (s *Store) TablePath(runID string) string {
	return filepath.Join(s.baseDir, runID, TableFile)
}

// Resolve maps a run id or a direct file path to a table path.
func (s *Store) Resolve(ref string) (string, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return ref, nil
	}
	path := s.TablePath(ref)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("no table for %q: %w", ref, err)
	}
	return path, nil
}
