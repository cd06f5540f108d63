package scheduling

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gousa/visacrm/internal/domain/procedure"
	"github.com/gousa/visacrm/internal/platform/db"
)

type repoPG struct {
	conn func(ctx context.Context) db.Conn
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{conn: func(ctx context.Context) db.Conn { return db.ConnOrPool(ctx, pool) }}
}

const apptCols = `c.id, c.tramite_id, t.cliente_id, cl.nombres || ' ' || cl.apellidos,
	c.tipo_cita_id, tc.nombre_tipo, c.fecha_hora, c.lugar, c.costo::text,
	c.estado_pago_cita, c.estado, c.notas,
	c.fecha_creacion, c.fecha_modificacion, c.fecha_eliminacion`

const apptFrom = `citas c
	JOIN tramites t ON t.id = c.tramite_id
	JOIN clientes cl ON cl.id = t.cliente_id
	JOIN cat_tipos_cita tc ON tc.id = c.tipo_cita_id`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.ProcedureID, &a.CustomerID, &a.CustomerName,
		&a.TypeID, &a.TypeName, &a.ScheduledAt, &a.Place, &a.Cost,
		&a.PaymentStatus, &a.Status, &a.Notes,
		&a.CreatedAt, &a.ModifiedAt, &a.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func logAction(verb string, a *Appointment) string {
	return fmt.Sprintf("Cita %d %s para %s", a.ID, verb, a.ScheduledAt.Format("2006-01-02 15:04 MST"))
}

// insertAppointment only writes against a procedure that is not soft-deleted.
func insertAppointment(ctx context.Context, q db.Querier, a *Appointment) error {
	err := q.QueryRow(ctx, `
		INSERT INTO citas (tramite_id, tipo_cita_id, fecha_hora, lugar, costo, estado_pago_cita, estado, notas)
		SELECT t.id, $2, $3, $4, $5, $6, $7, $8
		FROM tramites t WHERE t.id = $1 AND t.fecha_eliminacion IS NULL
		RETURNING id, fecha_creacion, fecha_modificacion`,
		a.ProcedureID, a.TypeID, a.ScheduledAt, a.Place, a.Cost, a.PaymentStatus, a.Status, a.Notes,
	).Scan(&a.ID, &a.CreatedAt, &a.ModifiedAt)
	switch {
	case db.IsNoRows(err):
		return fmt.Errorf("procedure %d: %w", a.ProcedureID, ErrProcedureNotFound)
	case db.IsForeignKeyViolation(err):
		return ErrUnknownType
	case err != nil:
		return fmt.Errorf("insert appointment for procedure %d: %w", a.ProcedureID, err)
	}
	return nil
}

func (r *repoPG) Create(ctx context.Context, a *Appointment, actor string) error {
	return db.WithTx(ctx, r.conn(ctx), func(tx pgx.Tx) error {
		if err := insertAppointment(ctx, tx, a); err != nil {
			return err
		}
		return procedure.AppendLog(ctx, tx, a.ProcedureID, actor, logAction("agendada", a))
	})
}

// CreateBatch inserts sequentially in slice order inside one transaction; the
// first failure rolls back every row of the batch.
func (r *repoPG) CreateBatch(ctx context.Context, appts []*Appointment, actor string) error {
	return db.WithTx(ctx, r.conn(ctx), func(tx pgx.Tx) error {
		for _, a := range appts {
			if err := insertAppointment(ctx, tx, a); err != nil {
				return err
			}
			if err := procedure.AppendLog(ctx, tx, a.ProcedureID, actor, logAction("agendada (combo familiar)", a)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repoPG) GetByID(ctx context.Context, id int, vis db.Visibility) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM `+apptFrom+` WHERE c.id = $1 AND `+vis.Predicate("c.fecha_eliminacion"), id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment %d: %w", id, err)
	}
	return a, nil
}

func (r *repoPG) Update(ctx context.Context, a *Appointment, actor string) error {
	return db.WithTx(ctx, r.conn(ctx), func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE citas SET tipo_cita_id=$2, fecha_hora=$3, lugar=$4, costo=$5,
				estado_pago_cita=$6, estado=$7, notas=$8, fecha_modificacion=NOW()
			WHERE id = $1 AND fecha_eliminacion IS NULL
			RETURNING tramite_id, fecha_creacion, fecha_modificacion`,
			a.ID, a.TypeID, a.ScheduledAt, a.Place, a.Cost, a.PaymentStatus, a.Status, a.Notes,
		).Scan(&a.ProcedureID, &a.CreatedAt, &a.ModifiedAt)
		switch {
		case db.IsNoRows(err):
			return ErrNotFound
		case db.IsForeignKeyViolation(err):
			return ErrUnknownType
		case err != nil:
			return fmt.Errorf("update appointment %d: %w", a.ID, err)
		}
		return procedure.AppendLog(ctx, tx, a.ProcedureID, actor, logAction("actualizada ("+string(a.Status)+")", a))
	})
}

func (r *repoPG) SoftDelete(ctx context.Context, id int, actor string) error {
	return db.WithTx(ctx, r.conn(ctx), func(tx pgx.Tx) error {
		var a Appointment
		err := tx.QueryRow(ctx, `
			UPDATE citas SET fecha_eliminacion = NOW(), fecha_modificacion = NOW()
			WHERE id = $1 AND fecha_eliminacion IS NULL
			RETURNING id, tramite_id, fecha_hora`, id).Scan(&a.ID, &a.ProcedureID, &a.ScheduledAt)
		if db.IsNoRows(err) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("delete appointment %d: %w", id, err)
		}
		return procedure.AppendLog(ctx, tx, a.ProcedureID, actor, logAction("eliminada", &a))
	})
}

func (r *repoPG) Search(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	qb := db.NewSearchQuery(apptFrom, apptCols, "c.fecha_eliminacion", f.Visibility)
	if f.ProcedureID > 0 {
		qb.Add(fmt.Sprintf("c.tramite_id = $%d", qb.Idx()), f.ProcedureID)
	}
	if f.CustomerID > 0 {
		qb.Add(fmt.Sprintf("t.cliente_id = $%d", qb.Idx()), f.CustomerID)
	}
	if !f.From.IsZero() {
		qb.Add(fmt.Sprintf("c.fecha_hora >= $%d", qb.Idx()), f.From)
	}
	if !f.To.IsZero() {
		qb.Add(fmt.Sprintf("c.fecha_hora < $%d", qb.Idx()), f.To)
	}
	if f.Status != "" {
		qb.Add(fmt.Sprintf("c.estado = $%d", qb.Idx()), f.Status)
	}
	qb.OrderBy("c.fecha_hora, c.id")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("search appointments: %w", err)
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}
