package embed

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"

	appErr "codearena/pkg/errors"

	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"
)

// Cache memoizes embeddings on disk, keyed by the hash of the normalized
// code. The normalized text itself is stored zstd-compressed next to the
// vector so reruns skip both the normalizer and the model.
type Cache struct {
	db      *sql.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// OpenCache opens (and if needed creates) the cache database.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, appErr.Wrap(err, appErr.EmbeddingFailed)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS embeddings (
		code_hash  TEXT PRIMARY KEY,
		normalized BLOB NOT NULL,
		vector     BLOB NOT NULL,
		dimension  INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, appErr.Wrap(err, appErr.EmbeddingFailed)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, appErr.Wrap(err, appErr.EmbeddingFailed)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, appErr.Wrap(err, appErr.EmbeddingFailed)
	}

	return &Cache{db: db, encoder: encoder, decoder: decoder}, nil
}

// Close releases the database and codec resources.
func (c *Cache) Close() error {
	c.encoder.Close()
	c.decoder.Close()
	return c.db.Close()
}

// Key hashes normalized code into the cache key.
func Key(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached vector for a key, or (nil, nil) on a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]float32, error) {
	var blob []byte
	var dim int
	err := c.db.QueryRowContext(ctx,
		"SELECT vector, dimension FROM embeddings WHERE code_hash = ?", key,
	).Scan(&blob, &dim)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, appErr.Wrap(err, appErr.EmbeddingFailed)
	}

	vec := bytesToVector(blob)
	if len(vec) != dim {
		return nil, nil
	}
	return vec, nil
}

// Put stores one embedding with its normalized source text.
func (c *Cache) Put(ctx context.Context, key, normalized string, vector []float32) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO embeddings (code_hash, normalized, vector, dimension, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		key,
		c.encoder.EncodeAll([]byte(normalized), nil),
		vectorToBytes(vector),
		len(vector),
		time.Now().Unix(),
	)
	if err != nil {
		return appErr.Wrap(err, appErr.EmbeddingFailed)
	}
	return nil
}

// Normalized returns the stored normalized text for a key, or "" on a miss.
func (c *Cache) Normalized(ctx context.Context, key string) (string, error) {
	var blob []byte
	err := c.db.QueryRowContext(ctx,
		"SELECT normalized FROM embeddings WHERE code_hash = ?", key,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", appErr.Wrap(err, appErr.EmbeddingFailed)
	}
	text, err := c.decoder.DecodeAll(blob, nil)
	if err != nil {
		return "", appErr.Wrap(err, appErr.EmbeddingFailed)
	}
	return string(text), nil
}

// Vectors are stored as little-endian float32 sequences.

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func bytesToVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
