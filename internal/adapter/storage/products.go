package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.DocumentWriter = (*ProductsRepository)(nil)

// A ProductsRepository keeps the product document in the products table.
// Row order is kept in the position column.
type ProductsRepository struct {
	sqldb sqldb
}

func NewProductsRepository(sqldb sqldb) ProductsRepository {
	return ProductsRepository{sqldb}
}

// WriteDocument makes the table hold exactly the products of doc.
func (r ProductsRepository) WriteDocument(
	ctx context.Context, doc domain.Document,
) (storeErr error) {
	const op = "ProductsRepository.WriteDocument"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tx, err := r.sqldb.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin tx: %w", op, err)
	}

	defer func() {
		if storeErr == nil {
			if err := tx.Commit(); err != nil {
				storeErr = fmt.Errorf("%s: failed to commit %w", op, err)
			}
			return
		}

		err := tx.Rollback()
		if err != nil {
			log.Error("failed to rollback tx", "err", err)
		}
	}()

	query := `
		INSERT INTO products (
			id, name, brand, price, category, color, size, images,
			description, special_offer, discount_percentage, offer_ends_at,
			position
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			brand = EXCLUDED.brand,
			price = EXCLUDED.price,
			category = EXCLUDED.category,
			color = EXCLUDED.color,
			size = EXCLUDED.size,
			images = EXCLUDED.images,
			description = EXCLUDED.description,
			special_offer = EXCLUDED.special_offer,
			discount_percentage = EXCLUDED.discount_percentage,
			offer_ends_at = EXCLUDED.offer_ends_at,
			position = EXCLUDED.position;
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("%s: failed to prepare stmt: %w", op, err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			log.Error("failed to close prepared stmt", "err", err)
		}
	}()

	ids := make([]string, 0, len(doc.Products))
	for i, v := range doc.Products {
		imgB, err := json.Marshal(v.Images)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		_, err = stmt.ExecContext(ctx,
			v.ID, v.Name, v.Brand, v.Price, v.Category, v.Color, v.Size,
			string(imgB), v.Description, v.SpecialOffer,
			nullInt(v.DiscountPercentage), v.OfferEndsAt, i,
		)
		if err != nil {
			return fmt.Errorf("%s: failed to exec: %w", op, err)
		}
		ids = append(ids, v.ID)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM products WHERE NOT (id = ANY($1));`, ids,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to delete stale rows: %w", op, err)
	}

	log.Debug("document stored", "nProducts", len(doc.Products))
	return nil
}

func (r ProductsRepository) ReadDocument(
	ctx context.Context,
) (domain.Document, error) {
	const op = "ProductsRepository.ReadDocument"

	if err := ctx.Err(); err != nil {
		return domain.Document{}, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		SELECT
			id, name, brand, price, category, color, size, images,
			description, special_offer, discount_percentage, offer_ends_at
		FROM products
		ORDER BY position ASC;`

	rows, err := r.sqldb.QueryContext(ctx, query)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	doc := domain.Document{Products: []domain.Product{}}
	for rows.Next() {
		var (
			v       domain.Product
			imagesS string
			pct     sql.NullInt64
			endsAt  sql.NullTime
		)
		err := rows.Scan(
			&v.ID, &v.Name, &v.Brand, &v.Price, &v.Category, &v.Color,
			&v.Size, &imagesS, &v.Description, &v.SpecialOffer, &pct, &endsAt,
		)
		if err != nil {
			return domain.Document{}, fmt.Errorf("%s: %w", op, err)
		}

		if err := json.Unmarshal([]byte(imagesS), &v.Images); err != nil {
			return domain.Document{}, fmt.Errorf("%s: %w", op, err)
		}
		if pct.Valid {
			p := int(pct.Int64)
			v.DiscountPercentage = &p
		}
		if endsAt.Valid {
			t := endsAt.Time.UTC()
			v.OfferEndsAt = &t
		}
		doc.Products = append(doc.Products, v)
	}
	if err := rows.Err(); err != nil {
		return domain.Document{}, fmt.Errorf("%s: %w", op, err)
	}
	return doc, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
