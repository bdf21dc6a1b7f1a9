package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
)

// RowCounter is satisfied by *repository.SegmentRepo.
type RowCounter interface {
	Count(ctx context.Context) (int64, error)
}

// SnapshotReporter is satisfied by *service.ReloadWorker.
type SnapshotReporter interface {
	LastImported() time.Time
}

type StatusHandler struct {
	rows      RowCounter
	snapshots SnapshotReporter
	startAt   time.Time
}

func NewStatusHandler(rows RowCounter, snapshots SnapshotReporter) *StatusHandler {
	return &StatusHandler{rows: rows, snapshots: snapshots, startAt: time.Now()}
}

// MirrorStatus is the body of GET /api/status.
type MirrorStatus struct {
	SegmentCount  int64      `json:"segmentCount"`
	LastSnapshot  *time.Time `json:"lastSnapshot"`
	UptimeSeconds int64      `json:"uptimeSeconds"`
}

// GetStatus handles GET /api/status
func (h *StatusHandler) GetStatus(c fiber.Ctx) error {
	count, err := h.rows.Count(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to count segments")
	}

	status := MirrorStatus{
		SegmentCount:  count,
		UptimeSeconds: int64(time.Since(h.startAt).Seconds()),
	}
	if last := h.snapshots.LastImported(); !last.IsZero() {
		utc := last.UTC()
		status.LastSnapshot = &utc
	}
	return c.JSON(status)
}
