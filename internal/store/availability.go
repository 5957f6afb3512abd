package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"vaccine-reservation-api/internal/scheduling"
)

func (l ledger) PublishAvailability(ctx context.Context, caregiver string, date time.Time) error {
	_, err := l.db.Exec(ctx,
		`INSERT INTO availabilities (caregiver, day) VALUES ($1, $2)`,
		caregiver, date,
	)
	if uniqueViolation(err, "availabilities_pkey") {
		return fmt.Errorf("%w: %s on %s", scheduling.ErrDuplicateSlot,
			caregiver, scheduling.FormatDate(date))
	}
	if err != nil {
		return storageErr(err)
	}
	return nil
}

// ClaimAny removes and returns one slot for the date. The row lock on the
// selected slot serializes concurrent claims; the ascending sort makes the
// winner deterministic (lowest caregiver username). Must run inside InTx.
func (l ledger) ClaimAny(ctx context.Context, date time.Time) (string, error) {
	var caregiver string
	err := l.db.QueryRow(ctx,
		`SELECT caregiver FROM availabilities WHERE day = $1
		 ORDER BY caregiver LIMIT 1 FOR UPDATE`, date,
	).Scan(&caregiver)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", scheduling.ErrNoProviderAvailable,
			scheduling.FormatDate(date))
	}
	if err != nil {
		return "", storageErr(err)
	}

	tag, err := l.db.Exec(ctx,
		`DELETE FROM availabilities WHERE caregiver = $1 AND day = $2`,
		caregiver, date,
	)
	if err != nil {
		return "", storageErr(err)
	}
	if tag.RowsAffected() == 0 {
		return "", fmt.Errorf("%w: slot for %s vanished", scheduling.ErrConflict, caregiver)
	}
	return caregiver, nil
}

func (l ledger) Release(ctx context.Context, caregiver string, date time.Time) error {
	_, err := l.db.Exec(ctx,
		`INSERT INTO availabilities (caregiver, day) VALUES ($1, $2)`,
		caregiver, date,
	)
	if uniqueViolation(err, "availabilities_pkey") {
		// a released slot should never already exist
		return fmt.Errorf("%w: slot %s/%s already open", scheduling.ErrConflict,
			caregiver, scheduling.FormatDate(date))
	}
	if err != nil {
		return storageErr(err)
	}
	return nil
}

func (l ledger) CaregiversOn(ctx context.Context, date time.Time) ([]string, error) {
	rows, err := l.db.Query(ctx,
		`SELECT caregiver FROM availabilities WHERE day = $1 ORDER BY caregiver`, date)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, storageErr(err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
