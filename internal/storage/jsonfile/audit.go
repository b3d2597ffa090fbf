package jsonfile

import (
	"context"
	"encoding/json"
	"os"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
)

// AuditRepository appends one JSON object per line to audit.jsonl.
type AuditRepository struct {
	store *Store
}

func (r *AuditRepository) Create(_ context.Context, entry *domain.AuditLog) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return domain.NewStorageError("encode "+auditFile, err)
	}
	line = append(line, '\n')

	r.store.auditMu.Lock()
	defer r.store.auditMu.Unlock()

	f, err := os.OpenFile(r.store.path(auditFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return domain.NewStorageError("append "+auditFile, err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return domain.NewStorageError("append "+auditFile, err)
	}
	if err := f.Close(); err != nil {
		return domain.NewStorageError("append "+auditFile, err)
	}
	return nil
}
