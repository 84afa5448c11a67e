package sync

import (
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/moatasem-alhilali/wadash/internal/store"
)

// Checkpoint keys in sync_state.
const (
	KeyLastConnectedAt = "last_connected_at"
	KeyLastSID         = "last_sid"
	KeyLastError       = "last_connect_error"
)

// Reconciler manages connection checkpoints.
type Reconciler struct {
	db     *store.DB
	logger *zap.Logger
}

// NewReconciler creates a new reconciler.
func NewReconciler(db *store.DB, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{db: db, logger: logger}
}

// RecordConnected stores the time and sid of a successful connect and clears
// the last error.
func (r *Reconciler) RecordConnected(sid string, at time.Time) error {
	if err := r.db.SetState(KeyLastConnectedAt, strconv.FormatInt(at.UnixMilli(), 10)); err != nil {
		return err
	}
	if err := r.db.SetState(KeyLastSID, sid); err != nil {
		return err
	}
	return r.db.SetState(KeyLastError, "")
}

// RecordError stores the text of the last failed connect attempt.
func (r *Reconciler) RecordError(msg string) error {
	return r.db.SetState(KeyLastError, msg)
}

// LastConnected returns the time of the last successful connect, or the zero
// time if none was recorded.
func (r *Reconciler) LastConnected() (time.Time, error) {
	v, ok, err := r.db.GetState(KeyLastConnectedAt)
	if err != nil || !ok || v == "" {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.logger.Warn("corrupt checkpoint", zap.String("key", KeyLastConnectedAt), zap.String("value", v))
		return time.Time{}, nil
	}
	return time.UnixMilli(ms), nil
}

// LastError returns the last recorded connect error, if any.
func (r *Reconciler) LastError() (string, error) {
	v, _, err := r.db.GetState(KeyLastError)
	return v, err
}
