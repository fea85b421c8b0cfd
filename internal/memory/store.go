// Package memory implements the semantic memory: an append-only SQLite
// store of reasoning nodes with their embeddings.
//
// Nodes are scoped by session and queryable globally. Hooks only ever
// append; the single deletion path is Prune, used by explicit maintenance.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/HendryAvila/semantic-hooks/internal/embedding"
	"github.com/HendryAvila/semantic-hooks/internal/semantic"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ErrNotFound is returned when a node lookup has no match.
var ErrNotFound = errors.New("memory: not found")

// timeFormat is fixed-width so timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// exportLimit caps a global export.
const exportLimit = 1000

// ExportVersion is written into every export document.
const ExportVersion = "1.0"

// ─── Types ───────────────────────────────────────────────────────────────────

// ScoredNode is a node with its cosine similarity to a query vector.
type ScoredNode struct {
	Node       semantic.Node `json:"node"`
	Similarity float64       `json:"similarity"`
}

// RecentOptions filters Recent.
type RecentOptions struct {
	Limit          int
	SessionID      string // empty = all sessions
	WithEmbeddings bool
}

// Stats holds aggregate memory statistics.
type Stats struct {
	TotalNodes    int                   `json:"total_nodes"`
	TotalSessions int                   `json:"total_sessions"`
	Projects      []string              `json:"projects"`
	ZoneSummary   map[semantic.Zone]int `json:"zone_summary"`
	MeanDeltaS    float64               `json:"mean_delta_s"`
	Oldest        *time.Time            `json:"oldest,omitempty"`
	Newest        *time.Time            `json:"newest,omitempty"`
}

// ExportData is the serializable dump of a session or of the recent
// global history.
type ExportData struct {
	Version     string                `json:"version"`
	ExportedAt  time.Time             `json:"exported_at"`
	SessionID   string                `json:"session_id"`
	NodeCount   int                   `json:"node_count"`
	Nodes       []semantic.Node       `json:"nodes"`
	ZoneSummary map[semantic.Zone]int `json:"zone_summary"`
	// Thresholds classify the per-node zone when encoding. Zero means
	// semantic.DefaultThresholds.
	Thresholds semantic.Thresholds `json:"-"`
}

// MarshalJSON stamps every node with its zone under d.Thresholds, so the
// nodes agree with zone_summary.
func (d ExportData) MarshalJSON() ([]byte, error) {
	t := d.Thresholds
	if t == (semantic.Thresholds{}) {
		t = semantic.DefaultThresholds
	}
	nodes := make([]semantic.ZonedNode, len(d.Nodes))
	for i, n := range d.Nodes {
		nodes[i] = semantic.ZonedNode{Node: n, Thresholds: t}
	}
	type plain ExportData
	return json.Marshal(struct {
		plain
		Nodes []semantic.ZonedNode `json:"nodes"`
	}{plain: plain(d), Nodes: nodes})
}

// ImportResult holds counts of an import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	// Unembedded counts imported nodes stored without a vector because
	// the embedder failed.
	Unembedded int `json:"unembedded"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds memory store configuration.
type Config struct {
	DataDir    string              `yaml:"data_dir" mapstructure:"data_dir"`
	MaxNodes   int                 `yaml:"max_nodes" mapstructure:"max_nodes"`
	Thresholds semantic.Thresholds `yaml:"-" mapstructure:"-"`
}

// DefaultConfig returns the default configuration for the memory store.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:    filepath.Join(home, ".semantic-hooks"),
		MaxNodes:   10000,
		Thresholds: semantic.DefaultThresholds,
	}
}

// DBPath returns the database file inside dir.
func DBPath(dir string) string {
	return filepath.Join(dir, "memory.db")
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the persistent semantic memory backed by SQLite.
type Store struct {
	db       *sql.DB
	cfg      Config
	embedder embedding.Embedder
	hooks    storeHooks
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type storeHooks struct {
	exec    func(ctx context.Context, db execer, query string, args ...any) (sql.Result, error)
	query   func(ctx context.Context, db queryer, query string, args ...any) (*sql.Rows, error)
	beginTx func(ctx context.Context, db *sql.DB) (*sql.Tx, error)
	commit  func(tx *sql.Tx) error
}

func defaultStoreHooks() storeHooks {
	return storeHooks{
		exec: func(ctx context.Context, db execer, query string, args ...any) (sql.Result, error) {
			return db.ExecContext(ctx, query, args...)
		},
		query: func(ctx context.Context, db queryer, query string, args ...any) (*sql.Rows, error) {
			return db.QueryContext(ctx, query, args...)
		},
		beginTx: func(ctx context.Context, db *sql.DB) (*sql.Tx, error) {
			return db.BeginTx(ctx, nil)
		},
		commit: func(tx *sql.Tx) error {
			return tx.Commit()
		},
	}
}

func (s *Store) execHook(ctx context.Context, db execer, query string, args ...any) (sql.Result, error) {
	if s.hooks.exec != nil {
		return s.hooks.exec(ctx, db, query, args...)
	}
	return db.ExecContext(ctx, query, args...)
}

func (s *Store) queryHook(ctx context.Context, db queryer, query string, args ...any) (*sql.Rows, error) {
	if s.hooks.query != nil {
		return s.hooks.query(ctx, db, query, args...)
	}
	return db.QueryContext(ctx, query, args...)
}

func (s *Store) beginTxHook(ctx context.Context) (*sql.Tx, error) {
	if s.hooks.beginTx != nil {
		return s.hooks.beginTx(ctx, s.db)
	}
	return s.db.BeginTx(ctx, nil)
}

func (s *Store) commitHook(tx *sql.Tx) error {
	if s.hooks.commit != nil {
		return s.hooks.commit(tx)
	}
	return tx.Commit()
}

// New creates a Store with the given configuration. It creates the data
// directory if needed, opens SQLite with WAL mode, and runs migrations.
// emb may be nil, in which case nodes are stored without vectors unless
// they carry one.
func New(cfg Config, emb embedding.Embedder) (*Store, error) {
	if cfg.Thresholds == (semantic.Thresholds{}) {
		cfg.Thresholds = semantic.DefaultThresholds
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("memory: create data dir: %w", err)
	}

	db, err := openDB("sqlite", DBPath(cfg.DataDir))
	if err != nil {
		return nil, fmt.Errorf("memory: open database: %w", err)
	}

	// SQLite performance pragmas
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("memory: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg, embedder: emb, hooks: defaultStoreHooks()}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("memory: migration: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Thresholds returns the zone thresholds used for summaries.
func (s *Store) Thresholds() semantic.Thresholds {
	return s.cfg.Thresholds
}

// Embedder returns the store's embedder, which may be nil.
func (s *Store) Embedder() embedding.Embedder {
	return s.embedder
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS semantic_nodes (
			id             TEXT PRIMARY KEY,
			topic          TEXT NOT NULL,
			delta_s        REAL NOT NULL,
			lambda_observe TEXT NOT NULL,
			module_used    TEXT NOT NULL,
			insight        TEXT NOT NULL,
			timestamp      TEXT NOT NULL,
			session_id     TEXT NOT NULL DEFAULT '',
			project_id     TEXT NOT NULL DEFAULT '',
			parent_id      TEXT,
			embedding      BLOB,
			metadata       TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_nodes_session   ON semantic_nodes(session_id);
		CREATE INDEX IF NOT EXISTS idx_nodes_timestamp ON semantic_nodes(timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_nodes_delta_s   ON semantic_nodes(delta_s);

		CREATE TABLE IF NOT EXISTS store_meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ─── Nodes ───────────────────────────────────────────────────────────────────

const nodeColumns = `id, topic, delta_s, lambda_observe, module_used, insight,
	timestamp, session_id, project_id, parent_id, embedding, metadata`

// AddNode appends a node. A node without an ID or timestamp gets one.
// When the store has an embedder and the node has no vector, the node is
// embedded from "topic: insight" first. Existing IDs are never replaced.
func (s *Store) AddNode(ctx context.Context, n *semantic.Node) error {
	if n == nil {
		return errors.New("memory: add node: nil node")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}
	if n.LambdaObserve == "" {
		n.LambdaObserve = semantic.Convergent
	}
	if n.Embedding == nil && s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, n.EmbeddingText())
		if err != nil {
			return fmt.Errorf("memory: embed node: %w", err)
		}
		n.Embedding = vec
	}

	res, err := s.insertNode(ctx, s.db, n)
	if err != nil {
		return fmt.Errorf("memory: add node: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("memory: add node %s: id already exists", n.ID)
	}
	return nil
}

func (s *Store) insertNode(ctx context.Context, db execer, n *semantic.Node) (sql.Result, error) {
	var meta any
	if len(n.Metadata) > 0 {
		b, err := json.Marshal(n.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		meta = string(b)
	}
	deltaS := n.DeltaS
	if math.IsNaN(deltaS) || math.IsInf(deltaS, 0) {
		// SQLite has no NaN; MaxTension keeps the node in DANGER.
		deltaS = semantic.MaxTension
	}
	return s.execHook(ctx, db,
		`INSERT OR IGNORE INTO semantic_nodes (`+nodeColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Topic, deltaS, string(n.LambdaObserve), n.ModuleUsed, n.Insight,
		n.Timestamp.UTC().Format(timeFormat), n.SessionID, n.ProjectID,
		nullableString(n.ParentID), encodeVector(n.Embedding), meta,
	)
}

// Get returns the node with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*semantic.Node, error) {
	nodes, err := s.queryNodes(ctx, true,
		"SELECT "+nodeColumns+" FROM semantic_nodes WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("memory: get node: %w", err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	return &nodes[0], nil
}

// Recent returns the most recent nodes, newest first.
func (s *Store) Recent(ctx context.Context, opts RecentOptions) ([]semantic.Node, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	q := "SELECT " + nodeColumns + " FROM semantic_nodes"
	var args []any
	if opts.SessionID != "" {
		q += " WHERE session_id = ?"
		args = append(args, opts.SessionID)
	}
	q += " ORDER BY timestamp DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	nodes, err := s.queryNodes(ctx, opts.WithEmbeddings, q, args...)
	if err != nil {
		return nil, fmt.Errorf("memory: recent nodes: %w", err)
	}
	return nodes, nil
}

// LastConvergent returns the session's most recent CONVERGENT node.
func (s *Store) LastConvergent(ctx context.Context, sessionID string) (*semantic.Node, error) {
	nodes, err := s.queryNodes(ctx, false,
		"SELECT "+nodeColumns+` FROM semantic_nodes
		 WHERE session_id = ? AND lambda_observe = ?
		 ORDER BY timestamp DESC, rowid DESC LIMIT 1`,
		sessionID, string(semantic.Convergent))
	if err != nil {
		return nil, fmt.Errorf("memory: last convergent: %w", err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("convergent node in session %q: %w", sessionID, ErrNotFound)
	}
	return &nodes[0], nil
}

// ByZone returns nodes whose ΔS falls in zone under thresholds, newest
// first.
func (s *Store) ByZone(ctx context.Context, zone semantic.Zone, limit int, t semantic.Thresholds) ([]semantic.Node, error) {
	if limit <= 0 {
		limit = 50
	}
	lo, hi := zone.Range(t)
	if zone == semantic.ZoneSafe {
		// negative values classify as safe too
		lo = -semantic.MaxTension
	}
	nodes, err := s.queryNodes(ctx, false,
		"SELECT "+nodeColumns+` FROM semantic_nodes
		 WHERE delta_s >= ? AND delta_s < ?
		 ORDER BY timestamp DESC, rowid DESC LIMIT ?`,
		lo, hi, limit)
	if err != nil {
		return nil, fmt.Errorf("memory: nodes by zone: %w", err)
	}
	return nodes, nil
}

// SessionTree returns all nodes of a session, oldest first.
func (s *Store) SessionTree(ctx context.Context, sessionID string) ([]semantic.Node, error) {
	nodes, err := s.queryNodes(ctx, false,
		"SELECT "+nodeColumns+` FROM semantic_nodes
		 WHERE session_id = ?
		 ORDER BY timestamp ASC, rowid ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("memory: session tree: %w", err)
	}
	return nodes, nil
}

// Count returns the number of nodes in a session, or in total when
// sessionID is empty.
func (s *Store) Count(ctx context.Context, sessionID string) (int, error) {
	q := "SELECT COUNT(*) FROM semantic_nodes"
	var args []any
	if sessionID != "" {
		q += " WHERE session_id = ?"
		args = append(args, sessionID)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("memory: count nodes: %w", err)
	}
	return n, nil
}

// ─── Similarity ──────────────────────────────────────────────────────────────

// FindSimilar returns up to topK nodes whose cosine similarity to query is
// at least minSim, most similar first. Nodes whose vector length differs
// from the query (another provider) are skipped.
func (s *Store) FindSimilar(ctx context.Context, query []float32, topK int, minSim float64) ([]ScoredNode, error) {
	if len(query) == 0 || topK <= 0 {
		return nil, nil
	}
	nodes, err := s.queryNodes(ctx, true,
		"SELECT "+nodeColumns+` FROM semantic_nodes WHERE embedding IS NOT NULL
		 ORDER BY timestamp DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("memory: find similar: %w", err)
	}

	var out []ScoredNode
	for _, n := range nodes {
		if len(n.Embedding) != len(query) {
			continue
		}
		sim := semantic.CosineSimilarity(query, n.Embedding)
		if sim >= minSim {
			out = append(out, ScoredNode{Node: n, Similarity: sim})
		}
	}
	sortScored(out)
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// FindBridge looks for nodes that sit semantically between current and
// target. Candidates near the midpoint of the two embeddings qualify when
// their similarity to the midpoint exceeds 0.8 times their similarity to
// either endpoint. It returns nil without an embedder.
func (s *Store) FindBridge(ctx context.Context, current, target string, topK int) ([]semantic.Node, error) {
	if s.embedder == nil || topK <= 0 {
		return nil, nil
	}
	vecs, err := s.embedder.EmbedBatch(ctx, []string{current, target})
	if err != nil {
		return nil, fmt.Errorf("memory: find bridge: %w", err)
	}
	cur, tgt := vecs[0], vecs[1]
	if len(cur) != len(tgt) {
		return nil, fmt.Errorf("memory: find bridge: %w", semantic.ErrDimensionMismatch)
	}
	mid := make([]float32, len(cur))
	for i := range cur {
		mid[i] = (cur[i] + tgt[i]) / 2
	}

	candidates, err := s.FindSimilar(ctx, mid, topK*2, 0.3)
	if err != nil {
		return nil, err
	}
	var bridges []semantic.Node
	for _, c := range candidates {
		simCur := semantic.CosineSimilarity(c.Node.Embedding, cur)
		simTgt := semantic.CosineSimilarity(c.Node.Embedding, tgt)
		if c.Similarity > max(simCur, simTgt)*0.8 {
			bridges = append(bridges, c.Node)
			if len(bridges) >= topK {
				break
			}
		}
	}
	return bridges, nil
}

// ─── Stats ───────────────────────────────────────────────────────────────────

// Stats returns aggregate statistics over the whole store.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{ZoneSummary: map[semantic.Zone]int{}}
	for _, z := range semantic.Zones {
		st.ZoneSummary[z] = 0
	}

	var oldest, newest sql.NullString
	var mean sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT NULLIF(session_id, '')), AVG(delta_s), MIN(timestamp), MAX(timestamp)
		 FROM semantic_nodes`,
	).Scan(&st.TotalNodes, &st.TotalSessions, &mean, &oldest, &newest)
	if err != nil {
		return nil, fmt.Errorf("memory: stats: %w", err)
	}
	st.MeanDeltaS = mean.Float64
	st.Oldest = parseNullTime(oldest)
	st.Newest = parseNullTime(newest)

	t := s.cfg.Thresholds
	rows, err := s.queryHook(ctx, s.db,
		`SELECT CASE
			WHEN delta_s < ? THEN 'safe'
			WHEN delta_s < ? THEN 'transitional'
			WHEN delta_s < ? THEN 'risk'
			ELSE 'danger' END AS zone, COUNT(*)
		 FROM semantic_nodes GROUP BY zone`,
		t.Safe, t.Transitional, t.Risk)
	if err != nil {
		return nil, fmt.Errorf("memory: stats zones: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var zone string
		var n int
		if err := rows.Scan(&zone, &n); err != nil {
			return nil, err
		}
		st.ZoneSummary[semantic.Zone(zone)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	projRows, err := s.queryHook(ctx, s.db,
		"SELECT DISTINCT project_id FROM semantic_nodes WHERE project_id != '' ORDER BY project_id")
	if err != nil {
		return nil, fmt.Errorf("memory: stats projects: %w", err)
	}
	defer func() { _ = projRows.Close() }()
	for projRows.Next() {
		var p string
		if err := projRows.Scan(&p); err != nil {
			return nil, err
		}
		st.Projects = append(st.Projects, p)
	}
	if err := projRows.Err(); err != nil {
		return nil, err
	}
	return st, nil
}

// ─── Export / Import ─────────────────────────────────────────────────────────

// Export dumps a session's nodes, or the most recent global nodes when
// sessionID is empty, in chronological order.
func (s *Store) Export(ctx context.Context, sessionID string) (*ExportData, error) {
	var nodes []semantic.Node
	var err error
	if sessionID != "" {
		nodes, err = s.SessionTree(ctx, sessionID)
	} else {
		nodes, err = s.Recent(ctx, RecentOptions{Limit: exportLimit})
		for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
			nodes[i], nodes[j] = nodes[j], nodes[i]
		}
	}
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	if nodes == nil {
		nodes = []semantic.Node{}
	}
	return &ExportData{
		Version:     ExportVersion,
		ExportedAt:  time.Now().UTC(),
		SessionID:   sessionID,
		NodeCount:   len(nodes),
		Nodes:       nodes,
		ZoneSummary: semantic.ZoneSummary(nodes, s.cfg.Thresholds),
		Thresholds:  s.cfg.Thresholds,
	}, nil
}

// Import loads exported nodes. Nodes whose ID already exists are skipped.
// Missing vectors are computed when the store has an embedder; if that
// fails the nodes are still imported, without vectors.
func (s *Store) Import(ctx context.Context, data *ExportData) (*ImportResult, error) {
	result := &ImportResult{}
	if data == nil || len(data.Nodes) == 0 {
		return result, nil
	}

	nodes := make([]semantic.Node, len(data.Nodes))
	copy(nodes, data.Nodes)
	s.embedMissing(ctx, nodes, result)

	tx, err := s.beginTxHook(ctx)
	if err != nil {
		return nil, fmt.Errorf("import: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range nodes {
		n := &nodes[i]
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if n.Timestamp.IsZero() {
			n.Timestamp = data.ExportedAt
		}
		if n.LambdaObserve == "" {
			n.LambdaObserve = semantic.Convergent
		}
		res, err := s.insertNode(ctx, tx, n)
		if err != nil {
			return nil, fmt.Errorf("import node %s: %w", n.ID, err)
		}
		if affected, _ := res.RowsAffected(); affected > 0 {
			result.Imported++
		} else {
			result.Skipped++
		}
	}

	if err := s.commitHook(tx); err != nil {
		return nil, fmt.Errorf("import: commit: %w", err)
	}
	return result, nil
}

func (s *Store) embedMissing(ctx context.Context, nodes []semantic.Node, result *ImportResult) {
	var idx []int
	var texts []string
	for i := range nodes {
		if nodes[i].Embedding == nil {
			idx = append(idx, i)
			texts = append(texts, nodes[i].EmbeddingText())
		}
	}
	if len(texts) == 0 {
		return
	}
	if s.embedder == nil {
		result.Unembedded = len(texts)
		return
	}
	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil || len(vecs) != len(texts) {
		result.Unembedded = len(texts)
		return
	}
	for j, i := range idx {
		nodes[i].Embedding = vecs[j]
	}
}

// ImportFile imports an export document from path.
func (s *Store) ImportFile(ctx context.Context, path string) (*ImportResult, error) {
	data, err := ReadExportFile(path)
	if err != nil {
		return nil, err
	}
	return s.Import(ctx, data)
}

// ReadExportFile reads an export document. A bare JSON array of nodes is
// accepted as well. Only the nodes are kept; exported_at may come from a
// writer that omits the zone offset, so it is reset to now.
func ReadExportFile(path string) (*ExportData, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memory: read import file: %w", err)
	}
	var doc struct {
		Nodes []semantic.Node `json:"nodes"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		if err2 := json.Unmarshal(b, &doc.Nodes); err2 != nil {
			return nil, fmt.Errorf("memory: parse import file %s: %w", path, err)
		}
	}
	return &ExportData{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC(),
		NodeCount:  len(doc.Nodes),
		Nodes:      doc.Nodes,
	}, nil
}

// ─── Maintenance ─────────────────────────────────────────────────────────────

// Prune deletes the oldest nodes beyond maxNodes and returns how many were
// removed. Hooks never call it.
func (s *Store) Prune(ctx context.Context, maxNodes int) (int, error) {
	if maxNodes <= 0 {
		maxNodes = s.cfg.MaxNodes
	}
	if maxNodes <= 0 {
		return 0, nil
	}
	res, err := s.execHook(ctx, s.db,
		`DELETE FROM semantic_nodes WHERE id NOT IN (
			SELECT id FROM semantic_nodes ORDER BY timestamp DESC, rowid DESC LIMIT ?
		)`, maxNodes)
	if err != nil {
		return 0, fmt.Errorf("memory: prune: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Meta returns a value from the store's key/value table.
func (s *Store) Meta(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM store_meta WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("memory: read meta %q: %w", key, err)
	}
	return v, true, nil
}

// SetMeta writes a value to the store's key/value table.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.execHook(ctx, s.db,
		`INSERT INTO store_meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("memory: write meta %q: %w", key, err)
	}
	return nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func (s *Store) queryNodes(ctx context.Context, withEmbeddings bool, query string, args ...any) ([]semantic.Node, error) {
	rows, err := s.queryHook(ctx, s.db, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var nodes []semantic.Node
	for rows.Next() {
		var (
			n       semantic.Node
			dir, ts string
			parent  sql.NullString
			emb     []byte
			meta    sql.NullString
		)
		if err := rows.Scan(
			&n.ID, &n.Topic, &n.DeltaS, &dir, &n.ModuleUsed, &n.Insight,
			&ts, &n.SessionID, &n.ProjectID, &parent, &emb, &meta,
		); err != nil {
			return nil, err
		}
		n.LambdaObserve = semantic.Direction(dir)
		if parsed, err := semantic.ParseDirection(dir); err == nil {
			n.LambdaObserve = parsed
		}
		n.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		n.ParentID = parent.String
		if withEmbeddings && len(emb) > 0 {
			n.Embedding = decodeVector(emb)
		}
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &n.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata of %s: %w", n.ID, err)
			}
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil
	}
	return &t
}
