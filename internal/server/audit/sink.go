// Package audit delivers authentication audit entries to durable sinks
// without ever blocking or failing the flow that produced them.
package audit

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/busauth/internal/server/models"
)

// Sink persists a single audit entry.
type Sink interface {
	Create(ctx context.Context, e *models.AuditEntry) error
}

// MultiSink writes every entry to all sinks and joins their errors.
type MultiSink []Sink

func (m MultiSink) Create(ctx context.Context, e *models.AuditEntry) error {
	var errs []error
	for _, s := range m {
		if err := s.Create(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
