// Package collections stores texts in named collections and searches them by
// embedding similarity. Store is the libSQL-backed host side; Client is the
// caller-facing wrapper that turns failed statuses into errors.
package collections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"
	"go.uber.org/zap"

	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/embeddings"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/logging"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/metrics"
)

// Operation names reported in results.
const (
	OpUpsert    = "upsert"
	OpDelete    = "delete"
	OpSearch    = "search"
	OpRecompute = "recompute"
)

var errKeyNotFound = errors.New("key not found")

// Config holds the store's connection settings.
type Config struct {
	URL            string
	AuthToken      string
	EmbeddingDims  int
	MaxOpenConns   int
	MaxIdleConns   int
	ConnMaxIdleSec int
	ConnMaxLifeSec int
}

// Store is a libSQL-backed collection host. Every registered search method
// gets its own vector per stored text.
type Store struct {
	config    Config
	db        *sql.DB
	providers *embeddings.Registry
	logger    *zap.Logger

	stmtMu sync.RWMutex
	stmts  map[string]*sql.Stmt
}

// NewStore opens the database, creates the schema and binds the search
// method registry. The registry must have a default provider.
func NewStore(cfg Config, providers *embeddings.Registry, logger *zap.Logger) (*Store, error) {
	if cfg.EmbeddingDims <= 0 || cfg.EmbeddingDims > 65536 {
		return nil, fmt.Errorf("EMBEDDING_DIMS must be between 1 and 65536 inclusive, got %d", cfg.EmbeddingDims)
	}
	if providers == nil {
		return nil, fmt.Errorf("collections: nil provider registry")
	}
	if _, ok := providers.Get(embeddings.DefaultName); !ok {
		return nil, fmt.Errorf("collections: no %q search method registered", embeddings.DefaultName)
	}

	db, err := sql.Open("libsql", connURL(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create database connector: %w", err)
	}
	s := &Store{
		config:    cfg,
		db:        db,
		providers: providers,
		logger:    logging.OrNop(logger),
		stmts:     make(map[string]*sql.Stmt),
	}
	if err := s.initialize(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleSec > 0 {
		db.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleSec) * time.Second)
	}
	if cfg.ConnMaxLifeSec > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifeSec) * time.Second)
	}

	// An existing database keeps the width it was created with.
	if dbDims := detectDBEmbeddingDims(db); dbDims > 0 && dbDims != s.config.EmbeddingDims {
		s.logger.Warn("embedding dims mismatch, adopting database dims",
			zap.Int("db_dims", dbDims), zap.Int("config_dims", s.config.EmbeddingDims))
		s.config.EmbeddingDims = dbDims
	}
	return s, nil
}

// connURL appends the auth token for remote databases.
func connURL(cfg Config) string {
	if strings.HasPrefix(cfg.URL, "file:") || cfg.AuthToken == "" {
		return cfg.URL
	}
	if u, err := url.Parse(cfg.URL); err == nil {
		q := u.Query()
		q.Set("authToken", cfg.AuthToken)
		u.RawQuery = q.Encode()
		return u.String()
	}
	sep := "?"
	if strings.Contains(cfg.URL, "?") {
		sep = "&"
	}
	return cfg.URL + sep + "authToken=" + url.QueryEscape(cfg.AuthToken)
}

// initialize creates tables and indexes if they don't exist
func (s *Store) initialize(ctx context.Context) (err error) {
	done := metrics.TimeStoreOp("initialize")
	defer func() { done(err == nil) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for initialization: %w", err)
	}
	defer tx.Rollback()
	for _, statement := range dynamicSchema(s.config.EmbeddingDims) {
		if _, err := tx.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return tx.Commit()
}

// detectDBEmbeddingDims reads F32_BLOB(n) back from the vectors table DDL.
func detectDBEmbeddingDims(db *sql.DB) int {
	var sqlText string
	_ = db.QueryRow("SELECT sql FROM sqlite_master WHERE type='table' AND name='collection_vectors'").Scan(&sqlText)
	low := strings.ToLower(sqlText)
	idx := strings.Index(low, "f32_blob(")
	if idx < 0 {
		return 0
	}
	rest := low[idx+len("f32_blob("):]
	end := strings.Index(rest, ")")
	if end <= 0 {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest[:end]))
	if err != nil {
		return 0
	}
	return n
}

// Dims is the vector width of the store.
func (s *Store) Dims() int { return s.config.EmbeddingDims }

// SearchMethods lists the registered search methods.
func (s *Store) SearchMethods() []string { return s.providers.Names() }

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// PoolStats reports open connections in use and idle.
func (s *Store) PoolStats() (inUse, idle int) {
	st := s.db.Stats()
	return st.InUse, st.Idle
}

// Close releases prepared statements and the database handle.
func (s *Store) Close() error {
	s.closeStatements()
	return s.db.Close()
}

func (s *Store) provider(method string) (embeddings.Provider, error) {
	if method == "" {
		method = embeddings.DefaultName
	}
	p, ok := s.providers.Get(method)
	if !ok {
		return nil, fmt.Errorf("unknown search method %q", method)
	}
	return embeddings.WrapToDims(p, s.config.EmbeddingDims), nil
}

func (s *Store) embed(ctx context.Context, method string, texts []string) ([][]float32, error) {
	p, err := s.provider(method)
	if err != nil {
		return nil, err
	}
	vecs, err := p.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed with %q: %w", method, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embed with %q: got %d vectors for %d texts", method, len(vecs), len(texts))
	}
	return vecs, nil
}

func mutationResult(collection, op, key string, err error) apptype.CollectionMutationResult {
	res := apptype.CollectionMutationResult{Collection: collection, Operation: op, Key: key, Status: apptype.StatusSuccess}
	if err != nil {
		res.Status = err.Error()
		res.Error = err.Error()
	}
	return res
}

// UpsertToCollection stores text under key and embeds it with every
// registered search method. An empty key is replaced by a generated UUID.
func (s *Store) UpsertToCollection(ctx context.Context, collection, key, text string) apptype.CollectionMutationResult {
	if key == "" {
		key = uuid.NewString()
	}
	err := s.upsert(ctx, collection, key, text)
	if err != nil {
		s.logger.Warn("collection upsert failed", zap.String("collection", collection), zap.String("key", key), zap.Error(err))
	}
	return mutationResult(collection, OpUpsert, key, err)
}

func (s *Store) upsert(ctx context.Context, collection, key, text string) (err error) {
	done := metrics.TimeStoreOp(OpUpsert)
	defer func() { done(err == nil) }()

	methods := s.providers.Names()
	vectors := make(map[string]string, len(methods))
	for _, m := range methods {
		vecs, err := s.embed(ctx, m, []string{text})
		if err != nil {
			return err
		}
		vs, err := vectorToString(vecs[0], s.config.EmbeddingDims)
		if err != nil {
			return err
		}
		vectors[m] = vs
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collection_texts (collection, key, text) VALUES (?, ?, ?)
		 ON CONFLICT(collection, key) DO UPDATE SET text = excluded.text, updated_at = CURRENT_TIMESTAMP`,
		collection, key, text); err != nil {
		return fmt.Errorf("failed to store text: %w", err)
	}
	for _, m := range methods {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO collection_vectors (collection, search_method, key, embedding) VALUES (?, ?, ?, vector32(?))`,
			collection, m, key, vectors[m]); err != nil {
			return fmt.Errorf("failed to store vector for %q: %w", m, err)
		}
	}
	return tx.Commit()
}

// DeleteFromCollection removes key and all its vectors.
func (s *Store) DeleteFromCollection(ctx context.Context, collection, key string) apptype.CollectionMutationResult {
	err := s.remove(ctx, collection, key)
	if err != nil && !errors.Is(err, errKeyNotFound) {
		s.logger.Warn("collection delete failed", zap.String("collection", collection), zap.String("key", key), zap.Error(err))
	}
	return mutationResult(collection, OpDelete, key, err)
}

func (s *Store) remove(ctx context.Context, collection, key string) (err error) {
	done := metrics.TimeStoreOp(OpDelete)
	defer func() { done(err == nil) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM collection_vectors WHERE collection = ? AND key = ?`, collection, key); err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM collection_texts WHERE collection = ? AND key = ?`, collection, key)
	if err != nil {
		return fmt.Errorf("failed to delete text: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %q", errKeyNotFound, key)
	}
	return tx.Commit()
}

const searchSQL = `SELECT v.key, t.text, vector_distance_cos(v.embedding, vector32(?)) AS distance
FROM collection_vectors v
JOIN collection_texts t ON t.collection = v.collection AND t.key = v.key
WHERE v.collection = ? AND v.search_method = ?
ORDER BY distance ASC, v.key ASC
LIMIT ?`

// SearchCollection embeds text with searchMethod and returns up to limit
// stored texts by descending cosine similarity.
func (s *Store) SearchCollection(ctx context.Context, collection, searchMethod, text string, limit int, returnText bool) apptype.CollectionSearchResult {
	if searchMethod == "" {
		searchMethod = embeddings.DefaultName
	}
	res := apptype.CollectionSearchResult{Collection: collection, SearchMethod: searchMethod, Status: apptype.StatusSuccess}
	objects, err := s.search(ctx, collection, searchMethod, text, limit, returnText)
	if err != nil {
		s.logger.Warn("collection search failed", zap.String("collection", collection), zap.String("search_method", searchMethod), zap.Error(err))
		res.Status = err.Error()
		res.Error = err.Error()
		return res
	}
	res.Objects = objects
	return res
}

func (s *Store) search(ctx context.Context, collection, method, text string, limit int, returnText bool) (out []apptype.CollectionSearchResultObject, err error) {
	done := metrics.TimeStoreOp(OpSearch)
	defer func() { done(err == nil) }()

	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	vecs, err := s.embed(ctx, method, []string{text})
	if err != nil {
		return nil, err
	}
	vs, err := vectorToString(vecs[0], s.config.EmbeddingDims)
	if err != nil {
		return nil, err
	}

	stmt, err := s.prepared(ctx, searchSQL)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, vs, collection, method, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer rows.Close()

	out = []apptype.CollectionSearchResultObject{}
	for rows.Next() {
		var (
			obj      apptype.CollectionSearchResultObject
			stored   string
			distance float64
		)
		if err := rows.Scan(&obj.Key, &stored, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		obj.Score = 1 - distance
		if returnText {
			obj.Text = stored
		}
		out = append(out, obj)
	}
	return out, rows.Err()
}

// RecomputeSearchMethod re-embeds every text in collection with searchMethod.
func (s *Store) RecomputeSearchMethod(ctx context.Context, collection, searchMethod string) apptype.SearchMethodMutationResult {
	if searchMethod == "" {
		searchMethod = embeddings.DefaultName
	}
	res := apptype.SearchMethodMutationResult{Collection: collection, SearchMethod: searchMethod, Operation: OpRecompute, Status: apptype.StatusSuccess}
	if err := s.recompute(ctx, collection, searchMethod); err != nil {
		s.logger.Warn("recompute failed", zap.String("collection", collection), zap.String("search_method", searchMethod), zap.Error(err))
		res.Status = err.Error()
		res.Error = err.Error()
	}
	return res
}

func (s *Store) recompute(ctx context.Context, collection, method string) (err error) {
	done := metrics.TimeStoreOp(OpRecompute)
	defer func() { done(err == nil) }()

	texts, err := s.texts(ctx, collection)
	if err != nil {
		return err
	}
	if len(texts) == 0 {
		if _, err := s.provider(method); err != nil {
			return err
		}
		return nil
	}
	keys := make([]string, 0, len(texts))
	inputs := make([]string, 0, len(texts))
	for k, t := range texts {
		keys = append(keys, k)
		inputs = append(inputs, t)
	}
	vecs, err := s.embed(ctx, method, inputs)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM collection_vectors WHERE collection = ? AND search_method = ?`, collection, method); err != nil {
		return fmt.Errorf("failed to clear vectors: %w", err)
	}
	for i, k := range keys {
		vs, err := vectorToString(vecs[i], s.config.EmbeddingDims)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO collection_vectors (collection, search_method, key, embedding) VALUES (?, ?, ?, vector32(?))`,
			collection, method, k, vs); err != nil {
			return fmt.Errorf("failed to store vector for %q: %w", k, err)
		}
	}
	return tx.Commit()
}

// ComputeSimilarity returns the cosine similarity of the stored vectors of
// key1 and key2. The returned object carries key2.
func (s *Store) ComputeSimilarity(ctx context.Context, collection, searchMethod, key1, key2 string) (out apptype.CollectionSearchResultObject, err error) {
	done := metrics.TimeStoreOp("compute_similarity")
	defer func() { done(err == nil) }()

	if searchMethod == "" {
		searchMethod = embeddings.DefaultName
	}
	a, err := s.vector(ctx, collection, searchMethod, key1)
	if err != nil {
		return out, err
	}
	b, err := s.vector(ctx, collection, searchMethod, key2)
	if err != nil {
		return out, err
	}
	return apptype.CollectionSearchResultObject{Key: key2, Score: embeddings.Cosine(a, b)}, nil
}

func (s *Store) vector(ctx context.Context, collection, method, key string) ([]float32, error) {
	stmt, err := s.prepared(ctx, `SELECT embedding FROM collection_vectors WHERE collection = ? AND search_method = ? AND key = ?`)
	if err != nil {
		return nil, err
	}
	var blob []byte
	if err := stmt.QueryRowContext(ctx, collection, method, key).Scan(&blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", errKeyNotFound, key)
		}
		return nil, err
	}
	return extractVector(blob, s.config.EmbeddingDims)
}

// GetText returns the text stored under key.
func (s *Store) GetText(ctx context.Context, collection, key string) (text string, err error) {
	done := metrics.TimeStoreOp("get_text")
	defer func() { done(err == nil) }()

	stmt, err := s.prepared(ctx, `SELECT text FROM collection_texts WHERE collection = ? AND key = ?`)
	if err != nil {
		return "", err
	}
	if err := stmt.QueryRowContext(ctx, collection, key).Scan(&text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %q", errKeyNotFound, key)
		}
		return "", err
	}
	return text, nil
}

// GetTexts returns every key and text in collection.
func (s *Store) GetTexts(ctx context.Context, collection string) (texts map[string]string, err error) {
	done := metrics.TimeStoreOp("get_texts")
	defer func() { done(err == nil) }()
	return s.texts(ctx, collection)
}

func (s *Store) texts(ctx context.Context, collection string) (map[string]string, error) {
	stmt, err := s.prepared(ctx, `SELECT key, text FROM collection_texts WHERE collection = ?`)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list texts: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, t string
		if err := rows.Scan(&k, &t); err != nil {
			return nil, err
		}
		out[k] = t
	}
	return out, rows.Err()
}
