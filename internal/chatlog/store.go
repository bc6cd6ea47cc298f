// Package chatlog is the durable side of the drawing surface: users, rooms,
// and the append-only per-room message log backed by SQLite.
package chatlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
	"pkt.systems/pslog"
	"pkt.systems/sketchroom/schema"
)

// User is one account row.
type User struct {
	ID           schema.UserID
	Username     string
	Name         string
	PasswordHash []byte
	TOTPSecret   string
	CreatedAt    time.Time
}

// Room is one room row. AdminID is the creating user; only the admin may
// delete the room over HTTP.
type Room struct {
	ID        schema.RoomID
	Slug      schema.RoomSlug
	AdminID   schema.UserID
	CreatedAt time.Time
}

// Store wraps the SQLite database. Safe for concurrent use; database/sql
// serializes access to the single connection pool.
type Store struct {
	db     *sql.DB
	logger pslog.Logger
}

// NewStore opens (creating if needed) the database at path and applies the
// schema.
func NewStore(path string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("missing database path")
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	logger.Debug("chatlog store opened", "path", path)
	return &Store{db: db, logger: logger}, nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		password_hash BLOB NOT NULL,
		totp_secret TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL UNIQUE,
		admin_id TEXT NOT NULL REFERENCES users(id),
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS chats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id INTEGER NOT NULL,
		user_id TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS chats_room_idx ON chats(room_id)`,
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateUser inserts a new account.
func (s *Store) CreateUser(ctx context.Context, user User) error {
	if err := schema.ValidateUserID(user.ID); err != nil {
		return err
	}
	if strings.TrimSpace(user.Username) == "" {
		return errors.New("missing username")
	}
	if len(user.PasswordHash) == 0 {
		return errors.New("missing password hash")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, name, password_hash, totp_secret, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		string(user.ID), user.Username, user.Name, user.PasswordHash, user.TOTPSecret, time.Now().Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return schema.ErrUserExists
		}
		return err
	}
	return nil
}

// UserByUsername looks up an account by its login name.
func (s *Store) UserByUsername(ctx context.Context, username string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, name, password_hash, totp_secret, created_at FROM users WHERE username = ?`, username))
}

// UserByID looks up an account by its identifier.
func (s *Store) UserByID(ctx context.Context, id schema.UserID) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, name, password_hash, totp_secret, created_at FROM users WHERE id = ?`, string(id)))
}

// ListUsers returns all accounts ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, name, password_hash, totp_secret, created_at FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var users []User
	for rows.Next() {
		user, err := s.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateUserPassword replaces an account's password hash.
func (s *Store) UpdateUserPassword(ctx context.Context, id schema.UserID, hash []byte) error {
	return s.updateUserColumn(ctx, id, `UPDATE users SET password_hash = ? WHERE id = ?`, hash)
}

// UpdateUserTOTP replaces an account's TOTP secret; empty disables it.
func (s *Store) UpdateUserTOTP(ctx context.Context, id schema.UserID, secret string) error {
	return s.updateUserColumn(ctx, id, `UPDATE users SET totp_secret = ? WHERE id = ?`, secret)
}

func (s *Store) updateUserColumn(ctx context.Context, id schema.UserID, stmt string, value any) error {
	res, err := s.db.ExecContext(ctx, stmt, value, string(id))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return schema.ErrUserNotFound
	}
	return nil
}

// DeleteUser removes an account.
func (s *Store) DeleteUser(ctx context.Context, id schema.UserID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, string(id))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return schema.ErrUserNotFound
	}
	return nil
}

// CreateRoom inserts a room owned by admin.
func (s *Store) CreateRoom(ctx context.Context, slug schema.RoomSlug, admin schema.UserID) (Room, error) {
	if strings.TrimSpace(string(slug)) == "" {
		return Room{}, errors.New("missing room slug")
	}
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO rooms (slug, admin_id, created_at) VALUES (?, ?, ?)`,
		string(slug), string(admin), now.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return Room{}, schema.ErrRoomExists
		}
		return Room{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Room{}, err
	}
	return Room{ID: schema.RoomID(id), Slug: slug, AdminID: admin, CreatedAt: now}, nil
}

// RoomBySlug looks up a room by its slug.
func (s *Store) RoomBySlug(ctx context.Context, slug schema.RoomSlug) (Room, error) {
	return s.scanRoom(s.db.QueryRowContext(ctx,
		`SELECT id, slug, admin_id, created_at FROM rooms WHERE slug = ?`, string(slug)))
}

// RoomByID looks up a room by its identifier.
func (s *Store) RoomByID(ctx context.Context, id schema.RoomID) (Room, error) {
	return s.scanRoom(s.db.QueryRowContext(ctx,
		`SELECT id, slug, admin_id, created_at FROM rooms WHERE id = ?`, int64(id)))
}

// ListRoomsByAdmin returns the rooms owned by one user, newest first.
func (s *Store) ListRoomsByAdmin(ctx context.Context, admin schema.UserID) ([]Room, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, slug, admin_id, created_at FROM rooms WHERE admin_id = ? ORDER BY id DESC`, string(admin))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var rooms []Room
	for rows.Next() {
		room, err := s.scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// DeleteRoom removes a room and its entire log in one transaction.
func (s *Store) DeleteRoom(ctx context.Context, id schema.RoomID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM chats WHERE room_id = ?`, int64(id)); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, int64(id))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return schema.ErrRoomNotFound
	}
	return tx.Commit()
}

// AppendChat appends one message to a room's log and returns the assigned
// durable id.
func (s *Store) AppendChat(ctx context.Context, roomID schema.RoomID, userID schema.UserID, message string) (schema.ChatID, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chats (room_id, user_id, message, created_at) VALUES (?, ?, ?, ?)`,
		int64(roomID), string(userID), message, time.Now().Unix())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return schema.ChatID(id), nil
}

// ChatsByRoom returns up to limit entries of a room's log, newest first.
func (s *Store) ChatsByRoom(ctx context.Context, roomID schema.RoomID, limit int) ([]schema.ChatEntry, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room_id, user_id, message FROM chats WHERE room_id = ? ORDER BY id DESC LIMIT ?`,
		int64(roomID), limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var entries []schema.ChatEntry
	for rows.Next() {
		var entry schema.ChatEntry
		var id, room int64
		var user string
		if err := rows.Scan(&id, &room, &user, &entry.Message); err != nil {
			return nil, err
		}
		entry.ID = schema.ChatID(id)
		entry.RoomID = schema.RoomID(room)
		entry.UserID = schema.UserID(user)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ChatByID looks up one log entry.
func (s *Store) ChatByID(ctx context.Context, id schema.ChatID) (schema.ChatEntry, error) {
	var entry schema.ChatEntry
	var rawID, room int64
	var user string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, room_id, user_id, message FROM chats WHERE id = ?`, int64(id)).
		Scan(&rawID, &room, &user, &entry.Message)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.ChatEntry{}, schema.ErrChatNotFound
	}
	if err != nil {
		return schema.ChatEntry{}, err
	}
	entry.ID = schema.ChatID(rawID)
	entry.RoomID = schema.RoomID(room)
	entry.UserID = schema.UserID(user)
	return entry, nil
}

// DeleteChat removes one log entry.
func (s *Store) DeleteChat(ctx context.Context, id schema.ChatID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, int64(id))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return schema.ErrChatNotFound
	}
	return nil
}

// UpdateChat replaces one log entry's payload wholesale.
func (s *Store) UpdateChat(ctx context.Context, id schema.ChatID, message string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE chats SET message = ? WHERE id = ?`, message, int64(id))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return schema.ErrChatNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanUser(row rowScanner) (User, error) {
	var user User
	var id, username, name, totp string
	var createdAt int64
	err := row.Scan(&id, &username, &name, &user.PasswordHash, &totp, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, schema.ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	user.ID = schema.UserID(id)
	user.Username = username
	user.Name = name
	user.TOTPSecret = totp
	user.CreatedAt = time.Unix(createdAt, 0).UTC()
	return user, nil
}

func (s *Store) scanRoom(row rowScanner) (Room, error) {
	var room Room
	var id int64
	var slug, admin string
	var createdAt int64
	err := row.Scan(&id, &slug, &admin, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Room{}, schema.ErrRoomNotFound
	}
	if err != nil {
		return Room{}, err
	}
	room.ID = schema.RoomID(id)
	room.Slug = schema.RoomSlug(slug)
	room.AdminID = schema.UserID(admin)
	room.CreatedAt = time.Unix(createdAt, 0).UTC()
	return room, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
