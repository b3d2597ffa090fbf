package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/doctor"
	"go.uber.org/zap"
)

type DirectoryService struct {
	doctors doctor.Repository
	log     *zap.Logger
}

func NewDirectoryService(doctors doctor.Repository, log *zap.Logger) *DirectoryService {
	return &DirectoryService{doctors: doctors, log: log}
}

// Departments lists each department once with its specialties, both sorted.
func (s *DirectoryService) Departments(ctx context.Context) ([]doctor.Department, error) {
	all, err := s.doctors.List(ctx, doctor.SearchQuery{})
	if err != nil {
		return nil, fmt.Errorf("listing doctors: %w", err)
	}

	specialties := make(map[string]map[string]struct{})
	for _, d := range all {
		dept := strings.TrimSpace(d.Department)
		if dept == "" {
			continue
		}
		if specialties[dept] == nil {
			specialties[dept] = make(map[string]struct{})
		}
		if sp := strings.TrimSpace(d.Specialty); sp != "" {
			specialties[dept][sp] = struct{}{}
		}
	}

	out := make([]doctor.Department, 0, len(specialties))
	for name, set := range specialties {
		list := make([]string, 0, len(set))
		for sp := range set {
			list = append(list, sp)
		}
		slices.Sort(list)
		out = append(out, doctor.Department{Name: name, Specialties: list})
	}
	slices.SortFunc(out, func(a, b doctor.Department) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *DirectoryService) Search(ctx context.Context, department, specialty string) ([]*doctor.Doctor, error) {
	doctors, err := s.doctors.List(ctx, doctor.SearchQuery{Department: department, Specialty: specialty})
	if err != nil {
		return nil, fmt.Errorf("searching doctors: %w", err)
	}
	return doctors, nil
}

func (s *DirectoryService) Doctor(ctx context.Context, id string) (*doctor.Doctor, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalid("doctor_id is required")
	}
	return s.doctors.GetByID(ctx, id)
}
