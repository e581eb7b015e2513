package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/comanda-app/api/internal/config"
	"github.com/comanda-app/api/internal/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type menuSeed struct {
	category string
	name     string
	price    string
}

var defaultMenu = []menuSeed{
	{"Pizzas", "Muzzarella", "9500.00"},
	{"Pizzas", "Napolitana", "10800.00"},
	{"Empanadas", "Carne cortada a cuchillo", "1600.00"},
	{"Empanadas", "Jamón y queso", "1500.00"},
	{"Bebidas", "Agua sin gas 500ml", "1800.00"},
	{"Bebidas", "Gaseosa 1.5L", "3900.00"},
}

var defaultRegisters = []struct {
	name string
	kind string
}{
	{"Ventas", "ventas"},
	{"Alivio", "alivio"},
	{"Fuerte", "fuerte"},
}

func main() {
	// CLI flags
	email := flag.String("email", "", "Admin email address")
	password := flag.String("password", "", "Admin password")
	name := flag.String("name", "", "Admin full name")
	branchName := flag.String("branch", "", "Branch name")
	flag.Parse()

	// Fall back to environment variables, then defaults
	*email = firstNonEmpty(*email, os.Getenv("SEED_EMAIL"), "admin@comanda.local")
	*name = firstNonEmpty(*name, os.Getenv("SEED_NAME"), "Administrador")
	*branchName = firstNonEmpty(*branchName, os.Getenv("SEED_BRANCH"), "Casa Central")
	defaultPassword := *password == "" && os.Getenv("SEED_PASSWORD") == ""
	*password = firstNonEmpty(*password, os.Getenv("SEED_PASSWORD"), "password123")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if defaultPassword {
		log.Warn("using default password 'password123', change it immediately in production")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("connect database", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal("ping database", zap.Error(err))
	}

	// Everything or nothing.
	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatal("begin transaction", zap.Error(err))
	}
	defer tx.Rollback(ctx)

	s := seeder{tx: tx, log: log}
	branchID, err := s.branch(ctx, *branchName)
	if err != nil {
		log.Fatal("seed branch", zap.Error(err))
	}
	userID, err := s.admin(ctx, branchID, *email, *password, *name)
	if err != nil {
		log.Fatal("seed admin", zap.Error(err))
	}
	if err := s.registers(ctx, branchID); err != nil {
		log.Fatal("seed registers", zap.Error(err))
	}
	if err := s.menu(ctx, branchID); err != nil {
		log.Fatal("seed menu", zap.Error(err))
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatal("commit", zap.Error(err))
	}

	log.Info("seed completed",
		zap.String("branch_id", branchID.String()),
		zap.String("admin_id", userID.String()),
	)
}

type seeder struct {
	tx  pgx.Tx
	log *zap.Logger
}

// branch creates the branch unless one with the same slug exists.
func (s seeder) branch(ctx context.Context, name string) (uuid.UUID, error) {
	slug := slugify(name)

	var id uuid.UUID
	err := s.tx.QueryRow(ctx, `SELECT id FROM branches WHERE slug = $1`, slug).Scan(&id)
	if err == nil {
		s.log.Info("branch exists, skipping", zap.String("slug", slug), zap.String("id", id.String()))
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("check branch: %w", err)
	}

	err = s.tx.QueryRow(ctx,
		`INSERT INTO branches (name, slug) VALUES ($1, $2) RETURNING id`,
		name, slug,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert branch: %w", err)
	}
	s.log.Info("created branch", zap.String("name", name), zap.String("id", id.String()))
	return id, nil
}

// admin creates the ADMIN user if the email is free.
func (s seeder) admin(ctx context.Context, branchID uuid.UUID, email, password, fullName string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.tx.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&id)
	if err == nil {
		s.log.Info("user exists, skipping", zap.String("email", email))
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("check user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, fmt.Errorf("hash password: %w", err)
	}

	err = s.tx.QueryRow(ctx, `
		INSERT INTO users (branch_id, email, hashed_password, full_name, role)
		VALUES ($1, $2, $3, $4, 'ADMIN')
		RETURNING id
	`, branchID, email, string(hashed), fullName).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert user: %w", err)
	}
	s.log.Info("created admin", zap.String("email", email), zap.String("id", id.String()))
	return id, nil
}

func (s seeder) registers(ctx context.Context, branchID uuid.UUID) error {
	for _, reg := range defaultRegisters {
		tag, err := s.tx.Exec(ctx, `
			INSERT INTO cash_registers (branch_id, name, kind)
			VALUES ($1, $2, $3)
			ON CONFLICT (branch_id, name) DO NOTHING
		`, branchID, reg.name, reg.kind)
		if err != nil {
			return fmt.Errorf("insert register %s: %w", reg.name, err)
		}
		if tag.RowsAffected() > 0 {
			s.log.Info("created register", zap.String("name", reg.name))
		}
	}
	return nil
}

// menu loads the sample menu only into a branch that has none.
func (s seeder) menu(ctx context.Context, branchID uuid.UUID) error {
	var count int
	if err := s.tx.QueryRow(ctx, `SELECT count(*) FROM menu_items WHERE branch_id = $1`, branchID).Scan(&count); err != nil {
		return fmt.Errorf("count menu items: %w", err)
	}
	if count > 0 {
		s.log.Info("menu already loaded, skipping", zap.Int("items", count))
		return nil
	}

	for _, item := range defaultMenu {
		_, err := s.tx.Exec(ctx,
			`INSERT INTO menu_items (branch_id, category, name, price) VALUES ($1, $2, $3, $4::numeric)`,
			branchID, item.category, item.name, item.price,
		)
		if err != nil {
			return fmt.Errorf("insert menu item %s: %w", item.name, err)
		}
	}
	s.log.Info("created sample menu", zap.Int("items", len(defaultMenu)))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func slugify(s string) string {
	out := make([]rune, 0, len(s))
	dash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
			dash = false
		case r >= 'A' && r <= 'Z':
			out = append(out, r+'a'-'A')
			dash = false
		case !dash && len(out) > 0:
			out = append(out, '-')
			dash = true
		}
	}
	if dash {
		out = out[:len(out)-1]
	}
	return string(out)
}
