package cms

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

const gameSchema = `
CREATE TABLE IF NOT EXISTS games (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	slug TEXT NOT NULL,
	price TEXT NOT NULL DEFAULT '0',
	release_date TEXT,
	short_description TEXT,
	description TEXT,
	rating TEXT,
	publisher_id INTEGER REFERENCES publishers(id),
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS game_relations (
	game_id INTEGER NOT NULL REFERENCES games(id),
	kind TEXT NOT NULL,
	entity_id INTEGER NOT NULL,
	PRIMARY KEY (game_id, kind, entity_id)
);

CREATE TABLE IF NOT EXISTS files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	mime TEXT NOT NULL,
	size INTEGER NOT NULL,
	data BLOB NOT NULL,
	ref TEXT NOT NULL,
	ref_id TEXT NOT NULL,
	field TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_files_ref ON files(ref, ref_id, field);
`

func entitySchema(kind Kind) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	slug TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`, kind.Collection())
}

var _ Backend = (*SQLiteStore)(nil)

// SQLiteStore is a Backend backed by a local SQLite database. Names are
// unique per kind, so concurrent runs cannot create duplicates.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (and initialises) the database at path. Use MemoryDSN
// for a throwaway store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CMS database: %w", err)
	}
	// one connection keeps an in-memory database alive and serialises writes
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, stderrors.Join(fmt.Errorf("failed to connect to CMS database: %w", err), db.Close())
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.migrate(); err != nil {
		return nil, stderrors.Join(err, db.Close())
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	for _, kind := range RelatedKinds() {
		if _, err := s.db.Exec(entitySchema(kind)); err != nil {
			return fmt.Errorf("failed to create %s table: %w", kind.Collection(), err)
		}
	}
	if _, err := s.db.Exec(gameSchema); err != nil {
		return fmt.Errorf("failed to create game tables: %w", err)
	}
	return nil
}

// Path returns the database location.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Entities returns the service of a named-entity kind.
func (s *SQLiteStore) Entities(kind Kind) EntityService {
	return &sqliteEntities{db: s.db, kind: kind}
}

// Games returns the game service.
func (s *SQLiteStore) Games() GameService {
	return &sqliteGames{db: s.db}
}

// Upload stores the file and links it to upload.RefID's field.
func (s *SQLiteStore) Upload(ctx context.Context, upload Upload) (*File, error) {
	if len(upload.Data) == 0 {
		return nil, fmt.Errorf("failed to upload %s: empty file", upload.Filename)
	}

	mime := upload.ContentType
	if mime == "" {
		mime = "application/octet-stream"
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO files (name, mime, size, data, ref, ref_id, field) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		upload.Filename, mime, len(upload.Data), upload.Data, upload.Ref, string(upload.RefID), upload.Field,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", upload.Filename, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read file id: %w", err)
	}

	return &File{
		ID:   formatID(id),
		Name: upload.Filename,
		Mime: mime,
		Size: len(upload.Data),
		URL:  "/uploads/" + upload.Filename,
	}, nil
}

// Count returns the number of records of kind.
func (s *SQLiteStore) Count(ctx context.Context, kind Kind) (int, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("unknown kind %d", int(kind))
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+kind.Collection()).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", kind.Collection(), err)
	}
	return n, nil
}

// Files returns the files linked to a record field, oldest first.
func (s *SQLiteStore) Files(ctx context.Context, ref string, refID ID, field string) ([]File, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, mime, size FROM files WHERE ref = ? AND ref_id = ? AND field = ? ORDER BY id`,
		ref, string(refID), field,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var files []File
	for rows.Next() {
		var (
			id int64
			f  File
		)
		if err := rows.Scan(&id, &f.Name, &f.Mime, &f.Size); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		f.ID = formatID(id)
		f.URL = "/uploads/" + f.Name
		files = append(files, f)
	}
	return files, rows.Err()
}

// Relations returns the entity ids a game references, by kind. The publisher
// is included under Publisher.
func (s *SQLiteStore) Relations(ctx context.Context, gameID ID) (map[Kind][]ID, error) {
	id, err := parseID(gameID)
	if err != nil {
		return nil, err
	}

	out := make(map[Kind][]ID)

	var publisher sql.NullInt64
	err = s.db.QueryRowContext(ctx, `SELECT publisher_id FROM games WHERE id = ?`, id).Scan(&publisher)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("game %s: %w", gameID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query game: %w", err)
	}
	if publisher.Valid {
		out[Publisher] = []ID{formatID(publisher.Int64)}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT kind, entity_id FROM game_relations WHERE game_id = ? ORDER BY kind, entity_id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query relations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byName := make(map[string]Kind)
	for _, k := range RelatedKinds() {
		byName[k.String()] = k
	}
	for rows.Next() {
		var (
			kindName string
			entityID int64
		)
		if err := rows.Scan(&kindName, &entityID); err != nil {
			return nil, fmt.Errorf("failed to scan relation: %w", err)
		}
		kind := byName[kindName]
		out[kind] = append(out[kind], formatID(entityID))
	}
	return out, rows.Err()
}

type sqliteEntities struct {
	db   *sql.DB
	kind Kind
}

func (s *sqliteEntities) FindByName(ctx context.Context, name string) ([]Entity, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, name, slug FROM %s WHERE name = ? ORDER BY id`, s.kind.Collection()), name)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.kind.Collection(), err)
	}
	defer func() { _ = rows.Close() }()

	var found []Entity
	for rows.Next() {
		var (
			id int64
			e  Entity
		)
		if err := rows.Scan(&id, &e.Name, &e.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", s.kind, err)
		}
		e.ID = formatID(id)
		found = append(found, e)
	}
	return found, rows.Err()
}

func (s *sqliteEntities) Create(ctx context.Context, entity Entity) (*Entity, error) {
	if strings.TrimSpace(entity.Name) == "" {
		return nil, fmt.Errorf("failed to create %s: name is empty", s.kind)
	}

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (name, slug) VALUES (?, ?)`, s.kind.Collection()), entity.Name, entity.Slug)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s %q: %w", s.kind, entity.Name, ErrConflict)
		}
		return nil, fmt.Errorf("failed to create %s: %w", s.kind, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s id: %w", s.kind, err)
	}
	entity.ID = formatID(id)
	return &entity, nil
}

type sqliteGames struct {
	db *sql.DB
}

func (s *sqliteGames) FindByName(ctx context.Context, name string) ([]GameRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, slug, COALESCE(release_date, ''), COALESCE(short_description, ''),
		       COALESCE(description, ''), COALESCE(rating, '')
		FROM games WHERE name = ? ORDER BY id`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var found []GameRecord
	for rows.Next() {
		var (
			id int64
			g  GameRecord
		)
		if err := rows.Scan(&id, &g.Name, &g.Slug, &g.ReleaseDate, &g.ShortDescription, &g.Description, &g.Rating); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		g.ID = formatID(id)
		found = append(found, g)
	}
	return found, rows.Err()
}

func (s *sqliteGames) Create(ctx context.Context, game GameInput) (*GameRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// no-op after commit
		_ = tx.Rollback()
	}()

	var publisher any
	if game.Publisher != nil {
		pid, err := parseID(*game.Publisher)
		if err != nil {
			return nil, err
		}
		publisher = pid
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO games (name, slug, price, release_date, short_description, description, rating, publisher_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		game.Name, game.Slug, game.Price.String(), nullString(game.ReleaseDate),
		nullString(game.ShortDescription), nullString(game.Description), nullString(game.Rating), publisher,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("game %q: %w", game.Name, ErrConflict)
		}
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	gameID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read game id: %w", err)
	}

	relations := map[Kind][]ID{
		Category:  game.Categories,
		Platform:  game.Platforms,
		Developer: game.Developers,
	}
	for kind, ids := range relations {
		for _, rawID := range ids {
			entityID, err := parseID(rawID)
			if err != nil {
				return nil, err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO game_relations (game_id, kind, entity_id) VALUES (?, ?, ?)`,
				gameID, kind.String(), entityID,
			); err != nil {
				return nil, fmt.Errorf("failed to link %s: %w", kind, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit game: %w", err)
	}

	return &GameRecord{
		ID:               formatID(gameID),
		Name:             game.Name,
		Slug:             game.Slug,
		ReleaseDate:      game.ReleaseDate,
		ShortDescription: game.ShortDescription,
		Description:      game.Description,
		Rating:           game.Rating,
	}, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func formatID(id int64) ID {
	return ID(strconv.FormatInt(id, 10))
}

func parseID(id ID) (int64, error) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid record id %q: %w", id, err)
	}
	return n, nil
}
