package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/donorlink/internal/client/models"
)

// Envelope is the raw change message shared by all feeds.
type Envelope struct {
	Type      Kind            `json:"type"`
	Table     string          `json:"table"`
	Record    json.RawMessage `json:"record,omitempty"`
	OldRecord json.RawMessage `json:"old_record,omitempty"`
}

// IsChange reports whether the envelope carries a row change rather than a
// control message such as a join acknowledgement or heartbeat.
func (e Envelope) IsChange() bool {
	switch e.Type {
	case KindInsert, KindUpdate, KindDelete:
		return true
	}
	return false
}

var errMissingID = errors.New("delete without id")

// Decode turns an envelope into a typed event using the wire row type R.
func Decode[E models.Entity, R any](env Envelope, toDomain func(R) E) (Event[E], error) {
	switch env.Type {
	case KindInsert, KindUpdate:
		var row R
		if len(env.Record) == 0 {
			return nil, fmt.Errorf("%s on %s: empty record", env.Type, env.Table)
		}
		if err := json.Unmarshal(env.Record, &row); err != nil {
			return nil, fmt.Errorf("%s on %s: %w", env.Type, env.Table, err)
		}
		e := toDomain(row)
		if e.GetID() == "" {
			return nil, fmt.Errorf("%s on %s: record without id", env.Type, env.Table)
		}
		if env.Type == KindInsert {
			return Inserted[E]{Entity: e}, nil
		}
		return Updated[E]{Entity: e}, nil
	case KindDelete:
		var old struct {
			ID string `json:"id"`
		}
		if len(env.OldRecord) > 0 {
			if err := json.Unmarshal(env.OldRecord, &old); err != nil {
				return nil, fmt.Errorf("DELETE on %s: %w", env.Table, err)
			}
		}
		if old.ID == "" {
			return nil, fmt.Errorf("DELETE on %s: %w", env.Table, errMissingID)
		}
		return Deleted[E]{ID: old.ID}, nil
	default:
		return nil, fmt.Errorf("unknown change type %q", env.Type)
	}
}
