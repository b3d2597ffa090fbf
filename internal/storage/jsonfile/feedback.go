package jsonfile

import (
	"context"
	"slices"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/feedback"
	"github.com/google/uuid"
)

const feedbackKey = "feedback"

type FeedbackRepository struct {
	store *Store
}

func (r *FeedbackRepository) load() ([]*feedback.Feedback, error) {
	return readCollection[feedback.Feedback](r.store, feedbackFile, feedbackKey)
}

func (r *FeedbackRepository) Create(_ context.Context, f *feedback.Feedback) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	items, err := r.load()
	if err != nil {
		return err
	}
	if slices.ContainsFunc(items, func(x *feedback.Feedback) bool { return x.AppointmentID == f.AppointmentID }) {
		return feedback.ErrFeedbackExists
	}
	c := *f
	return writeCollection(r.store, feedbackFile, feedbackKey, append(items, &c))
}

func (r *FeedbackRepository) find(match func(*feedback.Feedback) bool) (*feedback.Feedback, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	items, err := r.load()
	if err != nil {
		return nil, err
	}
	if i := slices.IndexFunc(items, match); i >= 0 {
		return items[i], nil
	}
	return nil, feedback.ErrFeedbackNotFound
}

func (r *FeedbackRepository) GetByID(_ context.Context, id uuid.UUID) (*feedback.Feedback, error) {
	return r.find(func(f *feedback.Feedback) bool { return f.ID == id })
}

func (r *FeedbackRepository) GetByAppointment(_ context.Context, appointmentID uuid.UUID) (*feedback.Feedback, error) {
	return r.find(func(f *feedback.Feedback) bool { return f.AppointmentID == appointmentID })
}

func (r *FeedbackRepository) Save(_ context.Context, f *feedback.Feedback) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	items, err := r.load()
	if err != nil {
		return err
	}
	i := slices.IndexFunc(items, func(x *feedback.Feedback) bool { return x.ID == f.ID })
	if i < 0 {
		return feedback.ErrFeedbackNotFound
	}
	c := *f
	items[i] = &c
	return writeCollection(r.store, feedbackFile, feedbackKey, items)
}

func (r *FeedbackRepository) ListByPatient(_ context.Context, patientID string) ([]*feedback.Feedback, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	items, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make([]*feedback.Feedback, 0)
	for _, f := range items {
		if f.Status == feedback.StatusActive && f.OwnedBy(patientID) {
			out = append(out, f)
		}
	}
	slices.SortStableFunc(out, feedback.NewestFirst)
	return out, nil
}
