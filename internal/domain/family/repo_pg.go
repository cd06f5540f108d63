package family

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

// memberCount counts links to customers that are still active.
const familyCols = `f.id, f.nombre, f.descripcion,
	(SELECT COUNT(*) FROM familia_clientes fc JOIN clientes c ON c.id = fc.cliente_id
		WHERE fc.familia_id = f.id AND c.fecha_eliminacion IS NULL),
	f.fecha_creacion, f.fecha_modificacion, f.fecha_eliminacion`

func scanFamily(row pgx.Row) (*Family, error) {
	var f Family
	if err := row.Scan(&f.ID, &f.Name, &f.Description, &f.MemberCount,
		&f.CreatedAt, &f.ModifiedAt, &f.DeletedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func insertFamily(ctx context.Context, q db.Querier, f *Family) error {
	err := q.QueryRow(ctx, `
		INSERT INTO familias (nombre, descripcion) VALUES ($1, $2)
		RETURNING id, fecha_creacion, fecha_modificacion`,
		f.Name, f.Description).Scan(&f.ID, &f.CreatedAt, &f.ModifiedAt)
	if err != nil {
		return fmt.Errorf("insert family: %w", err)
	}
	return nil
}

func upsertMember(ctx context.Context, q db.Querier, familyID, customerID int, relationship *string) error {
	tag, err := q.Exec(ctx, `
		INSERT INTO familia_clientes (familia_id, cliente_id, parentesco)
		SELECT $1, c.id, $3 FROM clientes c WHERE c.id = $2 AND c.fecha_eliminacion IS NULL
		ON CONFLICT (familia_id, cliente_id) DO UPDATE SET parentesco = EXCLUDED.parentesco`,
		familyID, customerID, relationship)
	if db.IsForeignKeyViolation(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("link customer %d to family %d: %w", customerID, familyID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

func (r *repoPG) Create(ctx context.Context, f *Family) error {
	return insertFamily(ctx, r.conn(ctx), f)
}

func (r *repoPG) CreateWithMember(ctx context.Context, f *Family, customerID int, relationship *string) error {
	return db.WithTx(ctx, r.conn(ctx), func(tx pgx.Tx) error {
		if err := insertFamily(ctx, tx, f); err != nil {
			return err
		}
		if err := upsertMember(ctx, tx, f.ID, customerID, relationship); err != nil {
			return err
		}
		f.MemberCount = 1
		return nil
	})
}

func (r *repoPG) GetByID(ctx context.Context, id int, vis db.Visibility) (*Family, error) {
	f, err := scanFamily(r.conn(ctx).QueryRow(ctx,
		`SELECT `+familyCols+` FROM familias f WHERE f.id = $1 AND `+vis.Predicate("f.fecha_eliminacion"), id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get family %d: %w", id, err)
	}
	return f, nil
}

func (r *repoPG) Update(ctx context.Context, f *Family) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE familias SET nombre = $2, descripcion = $3, fecha_modificacion = NOW()
		WHERE id = $1 AND fecha_eliminacion IS NULL
		RETURNING fecha_creacion, fecha_modificacion`,
		f.ID, f.Name, f.Description).Scan(&f.CreatedAt, &f.ModifiedAt)
	if db.IsNoRows(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update family %d: %w", f.ID, err)
	}
	return nil
}

func (r *repoPG) SoftDelete(ctx context.Context, id int) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE familias SET fecha_eliminacion = NOW(), fecha_modificacion = NOW()
		WHERE id = $1 AND fecha_eliminacion IS NULL`, id)
	if err != nil {
		return fmt.Errorf("delete family %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Search(ctx context.Context, q string, vis db.Visibility, limit, offset int) ([]*Family, int, error) {
	qb := db.NewSearchQuery("familias f", familyCols, "f.fecha_eliminacion", vis)
	qb.AddContains(q, "f.nombre", "f.descripcion")
	qb.OrderBy("f.fecha_creacion DESC, f.id DESC")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count families: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("search families: %w", err)
	}
	defer rows.Close()

	var items []*Family
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, f)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Members(ctx context.Context, familyID int, vis db.Visibility) ([]*Member, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT fc.familia_id, c.id, c.nombres, c.apellidos, c.numero_ci, fc.parentesco, fc.fecha_creacion
		FROM familia_clientes fc
		JOIN clientes c ON c.id = fc.cliente_id
		WHERE fc.familia_id = $1 AND `+vis.Predicate("c.fecha_eliminacion")+`
		ORDER BY fc.fecha_creacion, c.id`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list members of family %d: %w", familyID, err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.FamilyID, &m.CustomerID, &m.FirstNames, &m.LastNames,
			&m.CINumber, &m.Relationship, &m.LinkedAt); err != nil {
			return nil, err
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

func (r *repoPG) UpsertMember(ctx context.Context, familyID, customerID int, relationship *string) error {
	return upsertMember(ctx, r.conn(ctx), familyID, customerID, relationship)
}

func (r *repoPG) RemoveMember(ctx context.Context, familyID, customerID int) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM familia_clientes WHERE familia_id = $1 AND cliente_id = $2`, familyID, customerID)
	if err != nil {
		return fmt.Errorf("unlink customer %d from family %d: %w", customerID, familyID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// activeMembersSQL keeps one row per customer: the most recently created
// procedure whose process state is not terminal. Rows come back in the order
// customers joined the family.
var activeMembersSQL = `
	SELECT m.cliente_id, m.nombres, m.apellidos, m.email, m.parentesco,
		m.tramite_id, m.tipo_tramite, m.estado_proceso
	FROM (
		SELECT DISTINCT ON (c.id)
			c.id AS cliente_id, c.nombres, c.apellidos, c.email, fc.parentesco,
			fc.fecha_creacion AS vinculado,
			t.id AS tramite_id, tt.nombre_tipo AS tipo_tramite, ep.nombre_estado AS estado_proceso
		FROM familia_clientes fc
		JOIN familias f ON f.id = fc.familia_id
		JOIN clientes c ON c.id = fc.cliente_id
		JOIN tramites t ON t.cliente_id = c.id
		JOIN cat_estados_proceso ep ON ep.id = t.estado_proceso_id
		JOIN cat_tipos_tramite tt ON tt.id = t.tipo_tramite_id
		WHERE fc.familia_id = $1
			AND ` + db.ActiveOnly.Predicate("f.fecha_eliminacion") + `
			AND ` + db.ActiveOnly.Predicate("c.fecha_eliminacion") + `
			AND ` + db.ActiveOnly.Predicate("t.fecha_eliminacion") + `
			AND NOT ep.es_terminal
		ORDER BY c.id, t.fecha_creacion DESC, t.id DESC
	) m
	ORDER BY m.vinculado, m.cliente_id`

func (r *repoPG) ActiveMembers(ctx context.Context, familyID int) ([]*ActiveMember, error) {
	rows, err := r.conn(ctx).Query(ctx, activeMembersSQL, familyID)
	if err != nil {
		return nil, fmt.Errorf("resolve active members of family %d: %w", familyID, err)
	}
	defer rows.Close()

	var members []*ActiveMember
	for rows.Next() {
		var m ActiveMember
		if err := rows.Scan(&m.CustomerID, &m.FirstNames, &m.LastNames, &m.Email, &m.Relationship,
			&m.ProcedureID, &m.ProcedureType, &m.ProcessState); err != nil {
			return nil, err
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}
