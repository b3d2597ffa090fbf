package jsonfile

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/doctor"
)

const doctorsKey = "doctors"

// DoctorRepository reads doctors.yaml when present and doctors.json otherwise.
type DoctorRepository struct {
	store *Store
}

func (r *DoctorRepository) file() string {
	if r.store.exists(doctorsYAMLFile) {
		return doctorsYAMLFile
	}
	return doctorsFile
}

func (r *DoctorRepository) load() ([]*doctor.Doctor, error) {
	return readCollection[doctor.Doctor](r.store, r.file(), doctorsKey)
}

func (r *DoctorRepository) GetByID(_ context.Context, id string) (*doctor.Doctor, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	items, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, d := range items {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, doctor.ErrDoctorNotFound
}

func (r *DoctorRepository) List(_ context.Context, q doctor.SearchQuery) ([]*doctor.Doctor, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	items, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make([]*doctor.Doctor, 0, len(items))
	for _, d := range items {
		if q.Matches(d) {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b *doctor.Doctor) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *DoctorRepository) Upsert(_ context.Context, d *doctor.Doctor) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	file := r.file()
	items, err := readCollection[doctor.Doctor](r.store, file, doctorsKey)
	if err != nil {
		return err
	}

	c := *d
	now := time.Now().UTC()
	c.UpdatedAt = now
	i := slices.IndexFunc(items, func(x *doctor.Doctor) bool { return x.ID == d.ID })
	if i >= 0 {
		c.CreatedAt = items[i].CreatedAt
		items[i] = &c
	} else {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		items = append(items, &c)
	}
	return writeCollection(r.store, file, doctorsKey, items)
}
