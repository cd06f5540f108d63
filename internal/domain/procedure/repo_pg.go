package procedure

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gousa/visacrm/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Conn {
	return db.ConnOrPool(ctx, r.pool)
}

// AppendLog writes one audit row for a procedure through q, which is usually
// the transaction that made the change.
func AppendLog(ctx context.Context, q db.Querier, procedureID int, actor, action string) error {
	var user *string
	if actor != "" {
		user = &actor
	}
	_, err := q.Exec(ctx,
		`INSERT INTO tramite_logs (tramite_id, usuario, accion_realizada) VALUES ($1, $2, $3)`,
		procedureID, user, action)
	if err != nil {
		return fmt.Errorf("append log for procedure %d: %w", procedureID, err)
	}
	return nil
}

const procedureCols = `t.id, t.cliente_id, t.usuario_asignado,
	t.tipo_tramite_id, tt.nombre_tipo, t.estado_proceso_id, ep.nombre_estado, ep.es_terminal,
	t.estado_pago_id, pg.nombre_estado,
	t.codigo_confirmacion_ds160, t.codigo_seguimiento_courier, t.visa_numero,
	t.visa_fecha_emision, t.visa_fecha_expiracion, t.notas,
	t.fecha_creacion, t.fecha_modificacion, t.fecha_eliminacion`

const procedureFrom = `tramites t
	JOIN cat_tipos_tramite tt ON tt.id = t.tipo_tramite_id
	JOIN cat_estados_proceso ep ON ep.id = t.estado_proceso_id
	JOIN cat_estados_pago pg ON pg.id = t.estado_pago_id`

func scanProcedure(row pgx.Row) (*Procedure, error) {
	var p Procedure
	err := row.Scan(&p.ID, &p.CustomerID, &p.AssignedUser,
		&p.TypeID, &p.TypeName, &p.ProcessStateID, &p.ProcessState, &p.Terminal,
		&p.PaymentStateID, &p.PaymentState,
		&p.DS160Code, &p.CourierCode, &p.VisaNumber,
		&p.VisaIssued, &p.VisaExpires, &p.Notes,
		&p.CreatedAt, &p.ModifiedAt, &p.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Procedure, actor, action string) error {
	return db.WithTx(ctx, r.conn(ctx), func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO tramites (cliente_id, usuario_asignado, tipo_tramite_id, estado_proceso_id,
				estado_pago_id, codigo_confirmacion_ds160, codigo_seguimiento_courier, visa_numero,
				visa_fecha_emision, visa_fecha_expiracion, notas)
			SELECT c.id, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
			FROM clientes c WHERE c.id = $1 AND c.fecha_eliminacion IS NULL
			RETURNING id, fecha_creacion, fecha_modificacion`,
			p.CustomerID, p.AssignedUser, p.TypeID, p.ProcessStateID,
			p.PaymentStateID, p.DS160Code, p.CourierCode, p.VisaNumber,
			p.VisaIssued, p.VisaExpires, p.Notes,
		).Scan(&p.ID, &p.CreatedAt, &p.ModifiedAt)
		switch {
		case db.IsNoRows(err):
			return ErrCustomerNotFound
		case db.IsForeignKeyViolation(err):
			return ErrUnknownCatalog
		case err != nil:
			return fmt.Errorf("insert procedure: %w", err)
		}
		return AppendLog(ctx, tx, p.ID, actor, action)
	})
}

func (r *repoPG) GetByID(ctx context.Context, id int, vis db.Visibility) (*Procedure, error) {
	p, err := scanProcedure(r.conn(ctx).QueryRow(ctx,
		`SELECT `+procedureCols+` FROM `+procedureFrom+`
		WHERE t.id = $1 AND `+vis.Predicate("t.fecha_eliminacion"), id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get procedure %d: %w", id, err)
	}
	return p, nil
}

func (r *repoPG) ListByCustomer(ctx context.Context, customerID int, vis db.Visibility) ([]*Procedure, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+procedureCols+` FROM `+procedureFrom+`
		WHERE t.cliente_id = $1 AND `+vis.Predicate("t.fecha_eliminacion")+`
		ORDER BY t.fecha_creacion DESC, t.id DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list procedures of customer %d: %w", customerID, err)
	}
	defer rows.Close()

	var items []*Procedure
	for rows.Next() {
		p, err := scanProcedure(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, p *Procedure, actor, action string) error {
	return db.WithTx(ctx, r.conn(ctx), func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE tramites SET usuario_asignado=$2, tipo_tramite_id=$3, estado_proceso_id=$4,
				estado_pago_id=$5, codigo_confirmacion_ds160=$6, codigo_seguimiento_courier=$7,
				visa_numero=$8, visa_fecha_emision=$9, visa_fecha_expiracion=$10, notas=$11,
				fecha_modificacion=NOW()
			WHERE id = $1 AND fecha_eliminacion IS NULL
			RETURNING fecha_creacion, fecha_modificacion`,
			p.ID, p.AssignedUser, p.TypeID, p.ProcessStateID,
			p.PaymentStateID, p.DS160Code, p.CourierCode,
			p.VisaNumber, p.VisaIssued, p.VisaExpires, p.Notes,
		).Scan(&p.CreatedAt, &p.ModifiedAt)
		switch {
		case db.IsNoRows(err):
			return ErrNotFound
		case db.IsForeignKeyViolation(err):
			return ErrUnknownCatalog
		case err != nil:
			return fmt.Errorf("update procedure %d: %w", p.ID, err)
		}
		return AppendLog(ctx, tx, p.ID, actor, action)
	})
}

func (r *repoPG) SoftDelete(ctx context.Context, id int, actor, action string) error {
	return db.WithTx(ctx, r.conn(ctx), func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE tramites SET fecha_eliminacion = NOW(), fecha_modificacion = NOW()
			WHERE id = $1 AND fecha_eliminacion IS NULL`, id)
		if err != nil {
			return fmt.Errorf("delete procedure %d: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return AppendLog(ctx, tx, id, actor, action)
	})
}

func (r *repoPG) Logs(ctx context.Context, procedureID int) ([]*LogEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, tramite_id, usuario, accion_realizada, fecha_accion
		FROM tramite_logs WHERE tramite_id = $1
		ORDER BY fecha_accion, id`, procedureID)
	if err != nil {
		return nil, fmt.Errorf("list logs of procedure %d: %w", procedureID, err)
	}
	defer rows.Close()

	var entries []*LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.ProcedureID, &e.User, &e.Action, &e.At); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
