package store

import (
	"context"
	"time"

	"github.com/mutualref/mutualref/internal/model"
)

// NopArchive is used when no archive database is configured.
type NopArchive struct{}

func (NopArchive) RecordEvent(context.Context, int64, model.HistoryEntry) error     { return nil }
func (NopArchive) RecordSupport(context.Context, int64, model.SupportMessage) error { return nil }
func (NopArchive) RecordMaintenance(context.Context, model.MaintenanceRecord) error { return nil }
func (NopArchive) CompleteMaintenance(context.Context, time.Time) error             { return nil }
func (NopArchive) Close() error                                                     { return nil }
