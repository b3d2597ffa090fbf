// Package jsonfile persists each collection as one JSON document under a data
// directory. Every load-mutate-write cycle runs under the store mutex and
// replaces the file with an atomic rename, so readers never see a torn write.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"gopkg.in/yaml.v3"
)

const (
	appointmentsFile = "appointments.json"
	doctorsFile      = "doctors.json"
	doctorsYAMLFile  = "doctors.yaml"
	feedbackFile     = "feedback.json"
	usersFile        = "users.json"
	auditFile        = "audit.jsonl"
)

type Store struct {
	dir string

	mu      sync.Mutex
	auditMu sync.Mutex
}

// Open prepares dir for use, creating it if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domain.NewStorageError("open "+dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Appointments() *AppointmentRepository {
	return &AppointmentRepository{store: s}
}

func (s *Store) Doctors() *DoctorRepository {
	return &DoctorRepository{store: s}
}

func (s *Store) Feedback() *FeedbackRepository {
	return &FeedbackRepository{store: s}
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{store: s}
}

func (s *Store) Audit() *AuditRepository {
	return &AuditRepository{store: s}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *Store) exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

// readCollection loads the list stored under key in file. A missing file is an
// empty collection. Callers must hold s.mu.
func readCollection[T any](s *Store, file, key string) ([]*T, error) {
	data, err := os.ReadFile(s.path(file))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewStorageError("read "+file, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	doc := map[string][]*T{}
	if filepath.Ext(file) == ".yaml" {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, domain.NewStorageError("decode "+file, err)
	}
	return doc[key], nil
}

// writeCollection replaces file with the given items. Callers must hold s.mu.
func writeCollection[T any](s *Store, file, key string, items []*T) error {
	if items == nil {
		items = []*T{}
	}
	doc := map[string][]*T{key: items}

	var (
		data []byte
		err  error
	)
	if filepath.Ext(file) == ".yaml" {
		data, err = yaml.Marshal(doc)
	} else {
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return domain.NewStorageError("encode "+file, err)
	}
	return s.replace(file, data)
}

func (s *Store) replace(file string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, file+".*.tmp")
	if err != nil {
		return domain.NewStorageError("write "+file, err)
	}
	tmpName := tmp.Name()
	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return domain.NewStorageError("write "+file, err)
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		return cleanup(err)
	}
	if err := os.Rename(tmpName, s.path(file)); err != nil {
		_ = os.Remove(tmpName)
		return domain.NewStorageError("write "+file, fmt.Errorf("rename: %w", err))
	}
	return nil
}
