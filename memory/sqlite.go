package memory

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// SQLiteStore persists documents and their embeddings in a SQLite database.
// Search loads every vector and ranks in process.
type SQLiteStore struct {
	db       *sql.DB
	embedder Embedder
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at path. ":memory:" keeps
// the database in process. embedder may be nil, in which case Search falls
// back to substring matching.
func NewSQLiteStore(path string, embedder Embedder) (*SQLiteStore, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, embedder: embedder}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT NOT NULL UNIQUE,
			content    TEXT NOT NULL,
			metadata   TEXT,
			embedding  BLOB,
			created_at INTEGER NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Add implements Store.
func (s *SQLiteStore) Add(ctx context.Context, content string, metadata map[string]any) (string, error) {
	var blob []byte
	if s.embedder != nil {
		vec, err := embedOne(ctx, s.embedder, content)
		if err != nil {
			return "", fmt.Errorf("embed document: %w", err)
		}
		blob = encodeVector(vec)
	}

	var md []byte
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return "", fmt.Errorf("encode metadata: %w", err)
		}
		md = b
	}

	id := uuid.NewString()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, content, metadata, embedding, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, content, nullableString(md), blob, time.Now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}

	return id, nil
}

// Search implements Store.
func (s *SQLiteStore) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	var qvec []float32
	if s.embedder != nil {
		v, err := embedOne(ctx, s.embedder, query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		qvec = v
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, content, metadata, embedding FROM documents ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	needle := strings.ToLower(query)

	var results []SearchResult
	for rows.Next() {
		var (
			doc  Document
			md   sql.NullString
			blob []byte
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &md, &blob); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if md.Valid && md.String != "" {
			if err := json.Unmarshal([]byte(md.String), &doc.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata of %s: %w", doc.ID, err)
			}
		}

		if qvec != nil {
			results = append(results, SearchResult{Document: doc, Score: cosine(qvec, decodeVector(blob))})
			continue
		}
		if needle == "" || strings.Contains(strings.ToLower(doc.Content), needle) {
			results = append(results, SearchResult{Document: doc, Score: 1.0})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return topK(results, k), nil
}

func nullableString(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

// encodeVector stores a vector as little-endian IEEE 754 float32 values.
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
