package customer

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gousa/visacrm/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.ConnOrPool(ctx, r.pool)
}

const customerCols = `id, nombres, apellidos, fecha_nacimiento, lugar_nacimiento, nacionalidad,
	numero_ci, numero_pasaporte, pasaporte_fecha_emision, pasaporte_fecha_expiracion,
	email, telefono_celular, facebook, instagram, direccion_domicilio, estado_civil, profesion,
	motivo_recoleccion_datos, lugar_trabajo, cargo_trabajo, fecha_tentativa_viaje,
	nombre_contacto_usa, direccion_contacto_usa, telefono_contacto_usa, email_contacto_usa,
	antecedentes, fecha_creacion, fecha_modificacion, fecha_eliminacion`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.FirstNames, &c.LastNames, &c.BirthDate, &c.BirthPlace, &c.Nationality,
		&c.CINumber, &c.PassportNumber, &c.PassportIssued, &c.PassportExpires,
		&c.Email, &c.MobilePhone, &c.Facebook, &c.Instagram, &c.HomeAddress, &c.MaritalStatus, &c.Profession,
		&c.CollectionReason, &c.Workplace, &c.JobTitle, &c.TentativeTravelDate,
		&c.USContactName, &c.USContactAddress, &c.USContactPhone, &c.USContactEmail,
		&c.Background, &c.CreatedAt, &c.ModifiedAt, &c.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func translate(err error) error {
	switch db.ConstraintName(err) {
	case "clientes_numero_ci_activo":
		return ErrDuplicateCI
	case "clientes_numero_pasaporte_activo":
		return ErrDuplicatePassport
	}
	return err
}

func (r *repoPG) Create(ctx context.Context, c *Customer) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO clientes (nombres, apellidos, fecha_nacimiento, lugar_nacimiento, nacionalidad,
			numero_ci, numero_pasaporte, pasaporte_fecha_emision, pasaporte_fecha_expiracion,
			email, telefono_celular, facebook, instagram, direccion_domicilio, estado_civil, profesion,
			motivo_recoleccion_datos, lugar_trabajo, cargo_trabajo, fecha_tentativa_viaje,
			nombre_contacto_usa, direccion_contacto_usa, telefono_contacto_usa, email_contacto_usa,
			antecedentes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)
		RETURNING id, fecha_creacion, fecha_modificacion`,
		c.FirstNames, c.LastNames, c.BirthDate, c.BirthPlace, c.Nationality,
		c.CINumber, c.PassportNumber, c.PassportIssued, c.PassportExpires,
		c.Email, c.MobilePhone, c.Facebook, c.Instagram, c.HomeAddress, c.MaritalStatus, c.Profession,
		c.CollectionReason, c.Workplace, c.JobTitle, c.TentativeTravelDate,
		c.USContactName, c.USContactAddress, c.USContactPhone, c.USContactEmail,
		c.Background,
	).Scan(&c.ID, &c.CreatedAt, &c.ModifiedAt)
	if db.IsUniqueViolation(err) {
		return translate(err)
	}
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id int, vis db.Visibility) (*Customer, error) {
	c, err := scanCustomer(r.conn(ctx).QueryRow(ctx,
		`SELECT `+customerCols+` FROM clientes WHERE id = $1 AND `+vis.Predicate("fecha_eliminacion"), id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer %d: %w", id, err)
	}
	return c, nil
}

func (r *repoPG) Update(ctx context.Context, c *Customer) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE clientes SET nombres=$2, apellidos=$3, fecha_nacimiento=$4, lugar_nacimiento=$5,
			nacionalidad=$6, numero_ci=$7, numero_pasaporte=$8, pasaporte_fecha_emision=$9,
			pasaporte_fecha_expiracion=$10, email=$11, telefono_celular=$12, facebook=$13,
			instagram=$14, direccion_domicilio=$15, estado_civil=$16, profesion=$17,
			motivo_recoleccion_datos=$18, lugar_trabajo=$19, cargo_trabajo=$20,
			fecha_tentativa_viaje=$21, nombre_contacto_usa=$22, direccion_contacto_usa=$23,
			telefono_contacto_usa=$24, email_contacto_usa=$25, antecedentes=$26,
			fecha_modificacion=NOW()
		WHERE id = $1 AND fecha_eliminacion IS NULL
		RETURNING fecha_creacion, fecha_modificacion`,
		c.ID, c.FirstNames, c.LastNames, c.BirthDate, c.BirthPlace,
		c.Nationality, c.CINumber, c.PassportNumber, c.PassportIssued,
		c.PassportExpires, c.Email, c.MobilePhone, c.Facebook,
		c.Instagram, c.HomeAddress, c.MaritalStatus, c.Profession,
		c.CollectionReason, c.Workplace, c.JobTitle,
		c.TentativeTravelDate, c.USContactName, c.USContactAddress,
		c.USContactPhone, c.USContactEmail, c.Background,
	).Scan(&c.CreatedAt, &c.ModifiedAt)
	if db.IsNoRows(err) {
		return ErrNotFound
	}
	if db.IsUniqueViolation(err) {
		return translate(err)
	}
	if err != nil {
		return fmt.Errorf("update customer %d: %w", c.ID, err)
	}
	return nil
}

func (r *repoPG) SoftDelete(ctx context.Context, id int) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE clientes SET fecha_eliminacion = NOW(), fecha_modificacion = NOW()
		WHERE id = $1 AND fecha_eliminacion IS NULL`, id)
	if err != nil {
		return fmt.Errorf("delete customer %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Search(ctx context.Context, q string, vis db.Visibility, limit, offset int) ([]*Customer, int, error) {
	qb := db.NewSearchQuery("clientes", customerCols, "fecha_eliminacion", vis)
	qb.AddContains(q, "nombres", "apellidos", "numero_ci", "numero_pasaporte", "email", "motivo_recoleccion_datos")
	qb.OrderBy("fecha_creacion DESC, id DESC")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("search customers: %w", err)
	}
	defer rows.Close()

	var items []*Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *repoPG) CIInUse(ctx context.Context, ci string, excludeID int, vis db.Visibility) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM clientes
			WHERE numero_ci = $1 AND id <> $2 AND `+vis.Predicate("fecha_eliminacion")+`)`,
		ci, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check CI %q: %w", ci, err)
	}
	return exists, nil
}
