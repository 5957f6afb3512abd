package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"vaccine-reservation-api/internal/model"
	"vaccine-reservation-api/internal/scheduling"
)

// Vaccine names match case-insensitively via the generated name_key column;
// the casing of the first AddDoses call is the canonical form.

func (l ledger) VaccineDoses(ctx context.Context, name string) (string, int, error) {
	var canonical string
	var doses int
	err := l.db.QueryRow(ctx,
		`SELECT name, doses FROM vaccines WHERE name_key = lower($1)`, name,
	).Scan(&canonical, &doses)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", 0, fmt.Errorf("%w: %s", scheduling.ErrUnknownItem, name)
	}
	if err != nil {
		return "", 0, storageErr(err)
	}
	return canonical, doses, nil
}

func (l ledger) AddDoses(ctx context.Context, name string, n int) error {
	_, err := l.db.Exec(ctx,
		`INSERT INTO vaccines (name, doses) VALUES ($1, $2)
		 ON CONFLICT (name_key) DO UPDATE SET doses = vaccines.doses + EXCLUDED.doses`,
		name, n,
	)
	if err != nil {
		return storageErr(err)
	}
	return nil
}

func (l ledger) TakeDoses(ctx context.Context, name string, n int) error {
	tag, err := l.db.Exec(ctx,
		`UPDATE vaccines SET doses = doses - $2 WHERE name_key = lower($1) AND doses >= $2`,
		name, n,
	)
	if err != nil {
		return storageErr(err)
	}
	if tag.RowsAffected() == 0 {
		// either the vaccine is missing or the stock ran out
		if _, _, err := l.VaccineDoses(ctx, name); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", scheduling.ErrOutOfStock, name)
	}
	return nil
}

func (l ledger) Vaccines(ctx context.Context) ([]model.Vaccine, error) {
	rows, err := l.db.Query(ctx, `SELECT name, doses FROM vaccines ORDER BY name_key`)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	var out []model.Vaccine
	for rows.Next() {
		var v model.Vaccine
		if err := rows.Scan(&v.Name, &v.Doses); err != nil {
			return nil, storageErr(err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
