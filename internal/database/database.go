package database

import (
	"context"
	"database/sql"
	"time"

	"bot-cupons/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// DB encapsula a conexão com o banco de dados do histórico de publicações
type DB struct {
	conn *sql.DB
}

// New cria uma nova instância do banco de dados
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite só aceita um escritor por vez
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}

	if err := db.init(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// Close fecha a conexão com o banco de dados
func (db *DB) Close() error {
	return db.conn.Close()
}

// init cria as tabelas necessárias
func (db *DB) init() error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS publications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cycle_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		title TEXT,
		original_price REAL,
		coupon_code TEXT,
		final_price REAL,
		link TEXT,
		status TEXT NOT NULL,
		error TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_publications_created_at ON publications (created_at);
	`

	_, err := db.conn.Exec(createTableSQL)
	return err
}

// RecordPublication grava uma tentativa de publicação
func (db *DB) RecordPublication(ctx context.Context, p models.Publication) error {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO publications (cycle_id, product_id, title, original_price, coupon_code, final_price, link, status, error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		p.CycleID, p.ProductID, p.Title, p.OriginalPrice, nullString(p.CouponCode), p.FinalPrice, p.Link, p.Status, nullString(p.Error), createdAt.UTC(),
	)
	return err
}

// RecentPublications retorna as últimas publicações, mais recentes primeiro
func (db *DB) RecentPublications(ctx context.Context, limit int) ([]models.Publication, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, cycle_id, product_id, title, original_price, coupon_code, final_price, link, status, error, created_at FROM publications ORDER BY created_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pubs []models.Publication
	for rows.Next() {
		var p models.Publication
		var title, couponCode, link, errMsg sql.NullString
		var originalPrice, finalPrice sql.NullFloat64
		err := rows.Scan(&p.ID, &p.CycleID, &p.ProductID, &title, &originalPrice, &couponCode, &finalPrice, &link, &p.Status, &errMsg, &p.CreatedAt)
		if err != nil {
			return nil, err
		}
		p.Title = title.String
		p.CouponCode = couponCode.String
		p.Link = link.String
		p.Error = errMsg.String
		p.OriginalPrice = originalPrice.Float64
		p.FinalPrice = finalPrice.Float64
		pubs = append(pubs, p)
	}
	return pubs, rows.Err()
}

// CountByStatus retorna quantas publicações existem por status
func (db *DB) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT status, COUNT(*) FROM publications GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
