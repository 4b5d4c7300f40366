// Package bakery is the relational repository for bakery records and their
// bread tags. Tags live in a join table (bread_tags / bakery_bread_tags);
// there is no denormalized tag column.
package bakery

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/suwonbread/bready/internal/domain"
)

// Repo implements bakery persistence over database/sql.
type Repo struct {
	db *sql.DB
}

// New creates a bakery repository.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

const bakeryColumns = `id, name, COALESCE(shop_id, ''), rating, address, district,
	opening_hours, ai_summary, created_at, updated_at`

// Create inserts a bakery and its tag set in one transaction.
func (r *Repo) Create(ctx context.Context, b domain.Bakery) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bakeries (id, name, shop_id, rating, address, district, opening_hours, ai_summary)
		VALUES (?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.ShopID, b.Rating, b.Address, b.District, b.OpeningHours, b.AISummary)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("bakery %s: %w", b.Name, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("insert bakery: %w", err)
	}

	if err := replaceTags(ctx, tx, b.ID, b.BreadTags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetByID returns one bakery with its tags.
func (r *Repo) GetByID(ctx context.Context, id string) (domain.Bakery, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bakeryColumns+` FROM bakeries WHERE id = ?`, id)

	b, err := scanBakery(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Bakery{}, domain.ErrBakeryNotFound
		}
		return domain.Bakery{}, fmt.Errorf("get bakery %s: %w", id, err)
	}

	tags, err := r.tagsFor(ctx, []string{id})
	if err != nil {
		return domain.Bakery{}, err
	}
	b.BreadTags = tags[id]
	return b, nil
}

// GetByIDs returns bakeries for the given ids in one batched query. Order is
// not guaranteed; callers re-associate by id. Missing ids are silently absent.
func (r *Repo) GetByIDs(ctx context.Context, ids []string) ([]domain.Bakery, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + bakeryColumns + ` FROM bakeries WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := r.db.QueryContext(ctx, query, toAny(ids)...)
	if err != nil {
		return nil, fmt.Errorf("get bakeries by ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	bakeries, err := scanBakeries(rows)
	if err != nil {
		return nil, err
	}
	return r.attachTags(ctx, bakeries)
}

// List returns bakeries matching the filter.
func (r *Repo) List(ctx context.Context, f domain.BakeryFilter) ([]domain.Bakery, error) {
	var conds []string
	var args []any
	if f.District != "" {
		conds = append(conds, "district = ?")
		args = append(args, f.District)
	}
	if f.MinRating > 0 {
		conds = append(conds, "rating >= ?")
		args = append(args, f.MinRating)
	}

	query := `SELECT ` + bakeryColumns + ` FROM bakeries`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY name"
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bakeries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	bakeries, err := scanBakeries(rows)
	if err != nil {
		return nil, err
	}
	return r.attachTags(ctx, bakeries)
}

// TopRated returns the highest-rated bakeries.
func (r *Repo) TopRated(ctx context.Context, limit int) ([]domain.Bakery, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bakeryColumns+` FROM bakeries ORDER BY rating DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("top rated: %w", err)
	}
	defer func() { _ = rows.Close() }()

	bakeries, err := scanBakeries(rows)
	if err != nil {
		return nil, err
	}
	return r.attachTags(ctx, bakeries)
}

// SearchByName returns bakeries whose name contains the query, case-insensitively.
func (r *Repo) SearchByName(ctx context.Context, nameQuery string, limit int) ([]domain.Bakery, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bakeryColumns+` FROM bakeries WHERE name LIKE ? ESCAPE '\' ORDER BY name LIMIT ?`,
		"%"+escapeLike(nameQuery)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search by name: %w", err)
	}
	defer func() { _ = rows.Close() }()

	bakeries, err := scanBakeries(rows)
	if err != nil {
		return nil, err
	}
	return r.attachTags(ctx, bakeries)
}

// Update rewrites a bakery row and replaces its tag set.
func (r *Repo) Update(ctx context.Context, b domain.Bakery) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE bakeries
		SET name = ?, shop_id = NULLIF(?, ''), rating = ?, address = ?, district = ?,
			opening_hours = ?, ai_summary = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		b.Name, b.ShopID, b.Rating, b.Address, b.District, b.OpeningHours, b.AISummary, b.ID)
	if err != nil {
		return fmt.Errorf("update bakery: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrBakeryNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM bakery_bread_tags WHERE bakery_id = ?`, b.ID); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	if err := replaceTags(ctx, tx, b.ID, b.BreadTags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Delete removes a bakery. The join table cascades.
func (r *Repo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bakeries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bakery: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrBakeryNotFound
	}
	return nil
}

// ListTags returns all known bread tags ordered by name.
func (r *Repo) ListTags(ctx context.Context) ([]domain.BreadTag, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(slug, '') FROM bread_tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tags []domain.BreadTag
	for rows.Next() {
		var t domain.BreadTag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// GetByTag returns bakeries that carry the named bread tag.
func (r *Repo) GetByTag(ctx context.Context, tagName string, limit int) ([]domain.Bakery, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+prefixedBakeryColumns("b")+`
		FROM bakeries b
		JOIN bakery_bread_tags bbt ON bbt.bakery_id = b.id
		JOIN bread_tags t ON t.id = bbt.tag_id
		WHERE t.name = ?
		ORDER BY b.name
		LIMIT ?`, tagName, limit)
	if err != nil {
		return nil, fmt.Errorf("bakeries by tag: %w", err)
	}
	defer func() { _ = rows.Close() }()

	bakeries, err := scanBakeries(rows)
	if err != nil {
		return nil, err
	}
	return r.attachTags(ctx, bakeries)
}

// replaceTags links the bakery to each named tag, creating tags on first use.
func replaceTags(ctx context.Context, tx *sql.Tx, bakeryID string, tags []string) error {
	for _, name := range tags {
		if name == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO bread_tags (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
			return fmt.Errorf("ensure tag %q: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bakery_bread_tags (bakery_id, tag_id)
			SELECT ?, id FROM bread_tags WHERE name = ?
			ON CONFLICT DO NOTHING`, bakeryID, name); err != nil {
			return fmt.Errorf("link tag %q: %w", name, err)
		}
	}
	return nil
}

// attachTags loads tag names for each bakery in one batched query.
func (r *Repo) attachTags(ctx context.Context, bakeries []domain.Bakery) ([]domain.Bakery, error) {
	if len(bakeries) == 0 {
		return bakeries, nil
	}
	ids := make([]string, len(bakeries))
	for i, b := range bakeries {
		ids[i] = b.ID
	}
	tags, err := r.tagsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range bakeries {
		bakeries[i].BreadTags = tags[bakeries[i].ID]
	}
	return bakeries, nil
}

func (r *Repo) tagsFor(ctx context.Context, ids []string) (map[string][]string, error) {
	query := `
		SELECT bbt.bakery_id, t.name
		FROM bakery_bread_tags bbt
		JOIN bread_tags t ON t.id = bbt.tag_id
		WHERE bbt.bakery_id IN (` + placeholders(len(ids)) + `)
		ORDER BY t.name`
	rows, err := r.db.QueryContext(ctx, query, toAny(ids)...)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string][]string)
	for rows.Next() {
		var bakeryID, name string
		if err := rows.Scan(&bakeryID, &name); err != nil {
			return nil, fmt.Errorf("scan tag link: %w", err)
		}
		out[bakeryID] = append(out[bakeryID], name)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBakery(row rowScanner) (domain.Bakery, error) {
	var b domain.Bakery
	err := row.Scan(&b.ID, &b.Name, &b.ShopID, &b.Rating, &b.Address, &b.District,
		&b.OpeningHours, &b.AISummary, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func scanBakeries(rows *sql.Rows) ([]domain.Bakery, error) {
	var out []domain.Bakery
	for rows.Next() {
		b, err := scanBakery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bakery: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func prefixedBakeryColumns(alias string) string {
	cols := []string{"id", "name", "COALESCE(shop_id, '')", "rating", "address",
		"district", "opening_hours", "ai_summary", "created_at", "updated_at"}
	for i, c := range cols {
		if strings.HasPrefix(c, "COALESCE") {
			cols[i] = fmt.Sprintf("COALESCE(%s.shop_id, '')", alias)
			continue
		}
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toAny(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// escapeLike neutralizes LIKE wildcards in user input. The backslash goes
// first so the added escapes are not themselves escaped; the query must carry
// a matching ESCAPE '\' clause.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
