// Package activity is the best-effort audit sink. Entries are written after
// the primary transaction commits; a failed write is logged and dropped.
package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

const (
	ActionCreated                 = "created"
	ActionUpdated                 = "updated"
	ActionStatusChanged           = "status_changed"
	ActionCommentResolved         = "comment_resolved"
	ActionCommentReturnedToRework = "comment_returned_to_rework"
	ActionDeactivated             = "deactivated"
)

type Changes map[string]any

type Entry struct {
	ActorID     string
	Action      string
	EntityType  string
	EntityID    string
	Description string
	Changes     Changes
}

type Writer struct {
	DB     *sql.DB
	Logger zerolog.Logger
	Now    func() time.Time
}

// Log persists e. It never fails the caller.
func (w Writer) Log(ctx context.Context, e Entry) {
	if w.DB == nil {
		return
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	var changes any
	if len(e.Changes) > 0 {
		data, err := json.Marshal(e.Changes)
		if err != nil {
			w.Logger.Warn().Err(err).Str("action", e.Action).Msg("marshal activity changes")
		} else {
			changes = string(data)
		}
	}
	_, err := w.DB.ExecContext(ctx, `INSERT INTO activity_log(ts,actor_id,action,entity_type,entity_id,description,changes_json) VALUES (?,?,?,?,?,?,?)`,
		now().UTC().Format(time.RFC3339), e.ActorID, e.Action, e.EntityType, e.EntityID, e.Description, changes)
	if err != nil {
		w.Logger.Warn().Err(err).
			Str("action", e.Action).
			Str("entity_type", e.EntityType).
			Str("entity_id", e.EntityID).
			Msg("activity log write failed")
	}
}
