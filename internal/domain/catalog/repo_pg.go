package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gousa/visacrm/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.ConnOrPool(ctx, r.pool)
}

// selectCols reads the terminal flag only from the process state table.
func selectCols(kind Kind) string {
	t := tables[kind]
	if kind == ProcessStates {
		return "id, " + t.column + ", es_terminal"
	}
	return "id, " + t.column + ", NULL::boolean"
}

func (r *repoPG) List(ctx context.Context, kind Kind) ([]*Entry, error) {
	t, ok := tables[kind]
	if !ok {
		return nil, ErrUnknownKind
	}
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM %s ORDER BY id`, selectCols(kind), t.name))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	var items []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.Terminal); err != nil {
			return nil, err
		}
		items = append(items, &e)
	}
	return items, rows.Err()
}

func (r *repoPG) GetByID(ctx context.Context, kind Kind, id int) (*Entry, error) {
	t, ok := tables[kind]
	if !ok {
		return nil, ErrUnknownKind
	}
	var e Entry
	err := r.conn(ctx).QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, selectCols(kind), t.name), id).
		Scan(&e.ID, &e.Name, &e.Terminal)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", kind, id, err)
	}
	return &e, nil
}

func (r *repoPG) Create(ctx context.Context, kind Kind, e *Entry) error {
	t, ok := tables[kind]
	if !ok {
		return ErrUnknownKind
	}

	var err error
	if kind == ProcessStates {
		terminal := e.Terminal != nil && *e.Terminal
		err = r.conn(ctx).QueryRow(ctx,
			`INSERT INTO cat_estados_proceso (nombre_estado, es_terminal) VALUES ($1, $2) RETURNING id`,
			e.Name, terminal).Scan(&e.ID)
		e.Terminal = &terminal
	} else {
		err = r.conn(ctx).QueryRow(ctx,
			fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1) RETURNING id`, t.name, t.column),
			e.Name).Scan(&e.ID)
	}
	if db.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create %s: %w", kind, err)
	}
	return nil
}
