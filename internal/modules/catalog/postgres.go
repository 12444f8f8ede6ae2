package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates a PostgreSQL-backed catalog repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

type productKey struct {
	name   string
	market string
}

// dedupeProducts keeps the last record per (product_name, market) so a batch
// repeating an identity cannot make the upsert touch the same row twice.
func dedupeProducts(records []ProductRecord) []ProductRecord {
	seen := make(map[productKey]int, len(records))
	out := records[:0:0]
	for _, rec := range records {
		key := productKey{rec.ProductName, rec.Market}
		if i, ok := seen[key]; ok {
			out[i] = rec
			continue
		}
		seen[key] = len(out)
		out = append(out, rec)
	}
	return out
}

func (r *postgresRepo) UpsertProducts(ctx context.Context, records []ProductRecord) error {
	records = dedupeProducts(records)
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	values := make([]string, 0, len(records))
	args := make([]interface{}, 0, len(records)*5)
	for i, rec := range records {
		n := i * 5
		values = append(values, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)", n+1, n+2, n+3, n+4, n+5))

		tags := rec.Tags
		if tags == nil {
			tags = Tags{}
		}
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return fmt.Errorf("marshal tags for %s: %w", rec.ProductName, err)
		}
		args = append(args, rec.ProductName, rec.Brand, rec.Market, rec.ProductImage, tagsJSON)
	}

	query := fmt.Sprintf(`
		INSERT INTO products (product_name, brand, market, product_image, tags)
		VALUES %s
		ON CONFLICT (product_name, market) DO UPDATE SET
		  brand = EXCLUDED.brand,
		  product_image = EXCLUDED.product_image,
		  tags = EXCLUDED.tags`, strings.Join(values, ","))

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert products: %w", err)
	}
	return tx.Commit()
}

func (r *postgresRepo) InsertPrices(ctx context.Context, records []PriceRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	ids, err := resolveProductIDs(ctx, tx, records)
	if err != nil {
		return 0, err
	}

	// Records without a resolvable product are dropped, not errored.
	values := make([]string, 0, len(records))
	args := make([]interface{}, 0, len(records)*6)
	for _, rec := range records {
		productID, ok := ids[productKey{rec.ProductName, rec.Market}]
		if !ok {
			continue
		}
		n := len(values) * 6
		values = append(values, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d)", n+1, n+2, n+3, n+4, n+5, n+6))
		args = append(args, rec.Market, rec.ProductName, productID, rec.RegularPrice, rec.SpecialPrice, rec.Campaign)
	}

	if len(values) == 0 {
		return 0, tx.Commit()
	}

	// price_date comes from the column default, so it reflects insertion time.
	query := fmt.Sprintf(`
		INSERT INTO prices (market, product_name, product_id, regular_price, special_price, campaign)
		VALUES %s`, strings.Join(values, ","))

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("insert prices: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(values), nil
}

// resolveProductIDs looks up product_id for every distinct
// (product_name, market) pair in one query.
func resolveProductIDs(ctx context.Context, tx *sql.Tx, records []PriceRecord) (map[productKey]int64, error) {
	seen := make(map[productKey]bool, len(records))
	values := make([]string, 0, len(records))
	args := make([]interface{}, 0, len(records)*2)
	for _, rec := range records {
		key := productKey{rec.ProductName, rec.Market}
		if seen[key] {
			continue
		}
		seen[key] = true
		n := len(values) * 2
		values = append(values, fmt.Sprintf("($%d,$%d)", n+1, n+2))
		args = append(args, rec.ProductName, rec.Market)
	}

	query := fmt.Sprintf(`
		SELECT product_name, market, product_id
		FROM products
		WHERE (product_name, market) IN (%s)`, strings.Join(values, ","))

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("resolve product ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[productKey]int64, len(values))
	for rows.Next() {
		var key productKey
		var id int64
		if err := rows.Scan(&key.name, &key.market, &id); err != nil {
			return nil, err
		}
		ids[key] = id
	}
	return ids, rows.Err()
}

func (r *postgresRepo) ListProducts(ctx context.Context, f ProductFilters, limit, offset int) ([]Product, int64, error) {
	where := `WHERE 1=1`
	args := []interface{}{}
	n := 1
	if f.Market != "" {
		where += fmt.Sprintf(` AND market=$%d`, n)
		args = append(args, f.Market)
		n++
	}
	if f.Brand != "" {
		where += fmt.Sprintf(` AND brand=$%d`, n)
		args = append(args, f.Brand)
		n++
	}
	if f.ProductName != "" {
		where += fmt.Sprintf(` AND product_name=$%d`, n)
		args = append(args, f.ProductName)
		n++
	}
	if f.ProductID > 0 {
		where += fmt.Sprintf(` AND product_id=$%d`, n)
		args = append(args, f.ProductID)
		n++
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT product_id, product_name, brand, market, product_image, tags
		FROM products %s
		ORDER BY product_id
		LIMIT $%d OFFSET $%d`, where, n, n+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		var tags []byte
		if err := rows.Scan(&p.ProductID, &p.ProductName, &p.Brand, &p.Market, &p.ProductImage, &tags); err != nil {
			return nil, 0, err
		}
		if tags != nil {
			if err := json.Unmarshal(tags, &p.Tags); err != nil {
				return nil, 0, err
			}
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *postgresRepo) ListPrices(ctx context.Context, f PriceFilters, limit, offset int) ([]Price, int64, error) {
	where := `WHERE 1=1`
	args := []interface{}{}
	n := 1
	if f.Market != "" {
		where += fmt.Sprintf(` AND market=$%d`, n)
		args = append(args, f.Market)
		n++
	}
	if f.ProductID > 0 {
		where += fmt.Sprintf(` AND product_id=$%d`, n)
		args = append(args, f.ProductID)
		n++
	}
	if f.Campaign != "" {
		where += fmt.Sprintf(` AND campaign=$%d`, n)
		args = append(args, f.Campaign)
		n++
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prices `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT price_id, market, product_name, product_id, regular_price, special_price, campaign, price_date
		FROM prices %s
		ORDER BY price_date DESC, price_id DESC
		LIMIT $%d OFFSET $%d`, where, n, n+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var prices []Price
	for rows.Next() {
		var p Price
		var special decimal.NullDecimal
		if err := rows.Scan(&p.PriceID, &p.Market, &p.ProductName, &p.ProductID,
			&p.RegularPrice, &special, &p.Campaign, &p.PriceDate); err != nil {
			return nil, 0, err
		}
		if special.Valid {
			p.SpecialPrice = &special.Decimal
		}
		prices = append(prices, p)
	}
	return prices, total, rows.Err()
}

func (r *postgresRepo) ListWhole(ctx context.Context, f WholeFilters, limit, offset int) ([]PriceWithProduct, int64, error) {
	where := `WHERE 1=1`
	args := []interface{}{}
	n := 1
	add := func(clause string, arg interface{}) {
		where += fmt.Sprintf(` AND %s=$%d`, clause, n)
		args = append(args, arg)
		n++
	}
	if f.Market != "" {
		add("pr.market", f.Market)
	}
	if f.Brand != "" {
		add("p.brand", f.Brand)
	}
	if f.ProductName != "" {
		add("pr.product_name", f.ProductName)
	}
	if f.ProductImage != "" {
		add("p.product_image", f.ProductImage)
	}
	if f.ProductID > 0 {
		add("pr.product_id", f.ProductID)
	}
	if f.PriceID > 0 {
		add("pr.price_id", f.PriceID)
	}
	if f.Campaign != "" {
		add("pr.campaign", f.Campaign)
	}
	if f.RegularPrice != nil {
		add("pr.regular_price", *f.RegularPrice)
	}
	if f.SpecialPrice != nil {
		add("pr.special_price", *f.SpecialPrice)
	}
	if f.PriceDate != "" {
		add("pr.price_date", f.PriceDate)
	}

	const from = ` FROM prices pr JOIN products p ON p.product_id = pr.product_id `

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+from+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT pr.price_id, pr.market, pr.product_name, pr.product_id,
		       pr.regular_price, pr.special_price, pr.campaign, pr.price_date,
		       p.brand, p.product_image, p.tags
		%s %s
		ORDER BY pr.price_date DESC, pr.price_id DESC
		LIMIT $%d OFFSET $%d`, from, where, n, n+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []PriceWithProduct
	for rows.Next() {
		var row PriceWithProduct
		var special decimal.NullDecimal
		var tags []byte
		if err := rows.Scan(&row.PriceID, &row.Market, &row.ProductName, &row.ProductID,
			&row.RegularPrice, &special, &row.Campaign, &row.PriceDate,
			&row.Brand, &row.ProductImage, &tags); err != nil {
			return nil, 0, err
		}
		if special.Valid {
			row.SpecialPrice = &special.Decimal
		}
		if tags != nil {
			if err := json.Unmarshal(tags, &row.Tags); err != nil {
				return nil, 0, err
			}
		}
		out = append(out, row)
	}
	return out, total, rows.Err()
}
