// Package storage records teleop sessions to disk and reads them back.
//
// Every session lives in its own directory under the store root:
//
//	<root>/<id>/metadata.json
//	<root>/<id>/poses.csv
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/teleop/internal/dynamo"
)

const (
	metadataFile = "metadata.json"
	posesFile    = "poses.csv"
)

var ErrNoSession = errors.New("storage: no such session")

var poseHeader = []string{"time", "x", "y", "z", "qx", "qy", "qz", "qw", "linear", "angular"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type SessionMetadata struct {
	ID         string             `json:"id"`
	Robot      string             `json:"robot"`
	Timestamp  time.Time          `json:"timestamp"`
	Duration   float64            `json:"duration"`
	Ticks      int                `json:"ticks"`
	TimeStep   float64            `json:"time_step"`
	Integrator string             `json:"integrator"`
	Exit       string             `json:"exit"`
	Metrics    map[string]float64 `json:"metrics"`
}

// PoseRecord is one row of poses.csv.
type PoseRecord struct {
	Time    float64
	Pose    dynamo.Pose
	Linear  float64
	Angular float64
}

// Save writes a session. The metadata ID names the directory.
func (s *Store) Save(meta SessionMetadata, poses []PoseRecord) error {
	if meta.ID == "" {
		return errors.New("storage: session id is empty")
	}
	dir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	metaFile, err := os.Create(filepath.Join(dir, metadataFile))
	if err != nil {
		return err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return err
	}

	csvFile, err := os.Create(filepath.Join(dir, posesFile))
	if err != nil {
		return err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write(poseHeader); err != nil {
		return err
	}
	for _, p := range poses {
		if err := w.Write(p.row()); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (p PoseRecord) row() []string {
	pos, q := p.Pose.Position, p.Pose.Orientation
	vals := []float64{p.Time, pos.X, pos.Y, pos.Z, q.X, q.Y, q.Z, q.W, p.Linear, p.Angular}
	row := make([]string, len(vals))
	for i, v := range vals {
		row[i] = strconv.FormatFloat(v, 'f', 6, 64)
	}
	return row
}

// List returns every readable session, oldest first.
func (s *Store) List() ([]SessionMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SessionMetadata{}, nil
		}
		return nil, err
	}

	sessions := make([]SessionMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		sessions = append(sessions, *meta)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Timestamp.Before(sessions[j].Timestamp)
	})
	return sessions, nil
}

func (s *Store) Load(id string) (*SessionMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoSession, id)
		}
		return nil, err
	}

	var meta SessionMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	return &meta, nil
}

// LoadPoses reads poses.csv back. Rows that do not parse are skipped.
func (s *Store) LoadPoses(id string) ([]PoseRecord, error) {
	file, err := s.openPoses(id)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []PoseRecord{}, nil
	}

	poses := make([]PoseRecord, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) != len(poseHeader) {
			continue
		}
		vals := make([]float64, len(record))
		ok := true
		for i, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				ok = false
				break
			}
			vals[i] = v
		}
		if !ok {
			continue
		}
		poses = append(poses, PoseRecord{
			Time: vals[0],
			Pose: dynamo.Pose{
				Position:    dynamo.Vec3{X: vals[1], Y: vals[2], Z: vals[3]},
				Orientation: dynamo.Quat{X: vals[4], Y: vals[5], Z: vals[6], W: vals[7]},
			},
			Linear:  vals[8],
			Angular: vals[9],
		})
	}
	return poses, nil
}

// ExportCSV copies the raw poses.csv of a session to w.
func (s *Store) ExportCSV(id string, w io.Writer) error {
	file, err := s.openPoses(id)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(w, file)
	return err
}

func (s *Store) openPoses(id string) (*os.File, error) {
	file, err := os.Open(filepath.Join(s.baseDir, id, posesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoSession, id)
		}
		return nil, err
	}
	return file, nil
}
