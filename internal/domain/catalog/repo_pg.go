package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bitacora/bitacora/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const productCols = `"Id_Producto", "Nombre_Producto", "Precio", "Existencias", "Categoria", "Descripcion"`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Category, &p.Description)
	return &p, err
}

func (r *repoPG) Search(ctx context.Context, term string) ([]Product, error) {
	pattern := "%" + term + "%"
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+productCols+` FROM productos
		 WHERE "Nombre_Producto" ILIKE $1
		    OR "Precio"::text LIKE $1
		    OR "Existencias"::text LIKE $1
		 ORDER BY "Id_Producto"
		 LIMIT 10`,
		pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (r *repoPG) NamesByCategory(ctx context.Context, category string) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT "Nombre_Producto" FROM productos
		 WHERE "Categoria" = $1
		 ORDER BY "Nombre_Producto"
		 LIMIT 50`,
		category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Product, error) {
	return scanProduct(r.conn(ctx).QueryRow(ctx,
		`SELECT `+productCols+` FROM productos WHERE "Id_Producto" = $1`, id))
}

func (r *repoPG) Ingredients(ctx context.Context, productID int64) ([]Ingredient, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT i."Id_Ingrediente", i."Nombre_Ingrediente", pi."Cantidad"
		FROM ingredientes i
		JOIN productos_ingredientes pi ON pi."Id_Ingrediente" = i."Id_Ingrediente"
		WHERE pi."Id_Producto" = $1
		ORDER BY i."Nombre_Ingrediente"`,
		productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ingredients []Ingredient
	for rows.Next() {
		var ing Ingredient
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.Quantity); err != nil {
			return nil, err
		}
		ingredients = append(ingredients, ing)
	}
	return ingredients, rows.Err()
}

func (r *repoPG) Insert(ctx context.Context, p *Product) (int64, error) {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO productos ("Nombre_Producto", "Precio", "Existencias", "Categoria", "Descripcion")
		VALUES ($1, $2, $3, $4, $5)
		RETURNING "Id_Producto"`,
		p.Name, p.Price, p.Stock, p.Category, p.Description).Scan(&p.ID)
	return p.ID, err
}

func (r *repoPG) Update(ctx context.Context, p *Product) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE productos
		SET "Nombre_Producto" = $2, "Precio" = $3, "Existencias" = $4,
		    "Categoria" = $5, "Descripcion" = $6
		WHERE "Id_Producto" = $1`,
		p.ID, p.Name, p.Price, p.Stock, p.Category, p.Description)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id int64) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM productos WHERE "Id_Producto" = $1`, id)
	return err
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Category, &p.Description); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
