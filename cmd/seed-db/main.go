// Command seed-db populates the database with demo accounts, products, and
// coupons for local development.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edumart/checkout/internal/repository"
)

func main() {
	var databaseURL string

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	for _, step := range []struct {
		name string
		fn   func(context.Context, *pgxpool.Pool) error
	}{
		{"accounts", seedAccounts},
		{"products", seedProducts},
		{"coupons", seedCoupons},
		{"carts", seedCarts},
	} {
		if err := step.fn(ctx, pool); err != nil {
			return errors.Wrapf(err, "seed %s", step.name)
		}
		slog.Info("seeded", slog.String("step", step.name))
	}

	return resetSequences(ctx, pool)
}

// seedAccounts creates one school, two of its students, and two sales
// executives (one of each role). The school is linked to the Field SE.
func seedAccounts(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []struct {
		sql  string
		args []any
	}{
		{`INSERT INTO se_employees (employee_id, name, role) VALUES ($1, $2, $3)
			ON CONFLICT (employee_id) DO UPDATE SET name = $2, role = $3`,
			[]any{"SE-001", "Rohan Iyer", "Calling SE"}},
		{`INSERT INTO se_employees (employee_id, name, role) VALUES ($1, $2, $3)
			ON CONFLICT (employee_id) DO UPDATE SET name = $2, role = $3`,
			[]any{"SE-002", "Meera Nair", "Field SE"}},

		{`INSERT INTO users (id, user_type, full_name, email) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET user_type = $2, full_name = $3, email = $4`,
			[]any{int64(1), "school", "Green Valley High", "admin@greenvalley.example"}},
		{`INSERT INTO users (id, user_type, full_name, email) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET user_type = $2, full_name = $3, email = $4`,
			[]any{int64(2), "student", "Asha Verma", "asha@example.com"}},
		{`INSERT INTO users (id, user_type, full_name, email) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET user_type = $2, full_name = $3, email = $4`,
			[]any{int64(3), "student", "Vikram Singh", "vikram@example.com"}},
		{`INSERT INTO users (id, user_type, full_name, email) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET user_type = $2, full_name = $3, email = $4`,
			[]any{int64(4), "se", "Meera Nair", "meera@edumart.example"}},

		{`INSERT INTO schools (id, user_id, school_name, employee_id) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET school_name = $3, employee_id = $4`,
			[]any{int64(1), int64(1), "Green Valley High", "SE-002"}},

		{`INSERT INTO students (user_id, school_id) VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE SET school_id = $2`,
			[]any{int64(2), int64(1)}},
		{`INSERT INTO students (user_id, school_id) VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE SET school_id = $2`,
			[]any{int64(3), int64(1)}},
	}

	for _, s := range stmts {
		if _, err := pool.Exec(ctx, s.sql, s.args...); err != nil {
			return err
		}
	}
	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool) error {
	const upsert = `INSERT INTO products (id, name, price, category, stock_quantity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = $2, price = $3, category = $4, stock_quantity = $5`

	products := []struct {
		id       int64
		name     string
		price    string
		category string
		stock    int
	}{
		{1, "Science Lab Kit", "249.00", "lab-equipment", 40},
		{2, "Classroom Projector", "899.00", "electronics", 12},
		{3, "Notebook Pack (10)", "59.50", "stationery", 500},
		{4, "Student Desk", "149.99", "furniture", 75},
		{5, "World Atlas", "34.00", "books", 200},
	}

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsert, p.id, p.name, p.price, p.category, p.stock); err != nil {
			return errors.Wrapf(err, "upsert product %d", p.id)
		}
		slog.Info("upserted product", slog.Int64("id", p.id), slog.String("name", p.name))
	}
	return nil
}

// seedCoupons puts one coupon in each pool: an SE-issued school coupon and a
// student coupon owned by the demo school, plus one universal code.
func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	scoped := `INSERT INTO %s (code, discount_percentage, valid_from, valid_until, max_uses, school_id)
		VALUES ($1, $2, now() - interval '1 day', now() + interval '365 days', $3, $4)
		ON CONFLICT (code) DO UPDATE SET discount_percentage = $2, max_uses = $3`

	stmts := []struct {
		sql  string
		args []any
	}{
		{stmt(scoped, "coupons"), []any{"SE-2026-LAUNCH", "5", 50, int64(1)}},
		{stmt(scoped, "student_coupons"), []any{"STU-0001-WELCOME", "15", 100, int64(1)}},
		{`INSERT INTO universal_coupons (code, discount_percentage, valid_from, valid_until, max_uses)
			VALUES ($1, $2, now() - interval '1 day', now() + interval '365 days', $3)
			ON CONFLICT (code) DO UPDATE SET discount_percentage = $2, max_uses = $3`,
			[]any{"WELCOME10", "10", 1000}},
	}

	for _, s := range stmts {
		if _, err := pool.Exec(ctx, s.sql, s.args...); err != nil {
			return errors.Wrapf(err, "upsert coupon %v", s.args[0])
		}
		slog.Info("upserted coupon", slog.Any("code", s.args[0]))
	}
	return nil
}

func seedCarts(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx,
		`INSERT INTO carts (id, user_id) VALUES (1, 2) ON CONFLICT (user_id) DO NOTHING`,
	); err != nil {
		return err
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO cart_items (cart_id, product_id, quantity)
		SELECT 1, 3, 2 WHERE NOT EXISTS
		(SELECT 1 FROM cart_items WHERE cart_id = 1 AND product_id = 3)`,
	)
	return err
}

// resetSequences bumps every serial sequence past the explicitly seeded IDs.
func resetSequences(ctx context.Context, pool *pgxpool.Pool) error {
	for _, table := range []string{"users", "schools", "products", "carts"} {
		sql := `SELECT setval(pg_get_serial_sequence($1, 'id'), (SELECT COALESCE(MAX(id), 1) FROM ` + table + `))`
		if _, err := pool.Exec(ctx, sql, table); err != nil {
			return errors.Wrapf(err, "reset sequence for %s", table)
		}
	}
	return nil
}

func stmt(format, table string) string {
	return fmt.Sprintf(format, table)
}
