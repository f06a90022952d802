package sqlxrepos

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

func newNullTime(t time.Time) null.Time {
	return null.NewTime(t.UTC(), !t.IsZero())
}

func newNullString(s string) null.String {
	return null.NewString(s, s != "")
}

// jsonb packs an aggregate's embedded detail list for its JSONB column.
func jsonb(v interface{}) (types.JSONText, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling jsonb column")
	}
	return data, nil
}

func unjsonb(data types.JSONText, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(data, v), "unmarshaling jsonb column")
}

// trapNoRowsErr maps psql "no rows" err to the domain's not-found sentinel.
func trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}
