package delivery

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// timeLayout is fixed-width so received_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store persists verified deliveries in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a Store backed by db. The deliveries table must already exist.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Digest returns the hex BLAKE3-256 of body.
func Digest(body []byte) string {
	sum := blake3.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Record appends a verified delivery and returns its ID.
func (s *Store) Record(ctx context.Context, req RecordRequest) (string, error) {
	if req.Endpoint == "" {
		return "", fmt.Errorf("endpoint is empty")
	}
	if req.Method == "" {
		return "", fmt.Errorf("method is empty")
	}

	id := uuid.NewString()
	receivedAt := s.now().UTC().Format(timeLayout)

	var payload any
	if len(req.Body) > 0 && len(req.Body) <= maxStoredPayload {
		payload = string(req.Body)
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO deliveries(
  id, endpoint, method, path, topic, body_size, body_digest, payload, request_id, received_at
)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`, id, req.Endpoint, req.Method, req.Path, nullString(req.Topic), len(req.Body), Digest(req.Body), payload, nullString(req.RequestID), receivedAt)
	if err != nil {
		return "", fmt.Errorf("record delivery: %w", err)
	}
	return id, nil
}

// Get loads a single delivery by ID. Returns ErrNotFound if absent.
func (s *Store) Get(ctx context.Context, id string) (*Delivery, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, endpoint, method, path, topic, body_size, body_digest, payload, request_id, received_at
FROM deliveries
WHERE id = ?;
`, id)

	d, err := scanDelivery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get delivery: %w", err)
	}
	return d, nil
}

// List returns the most recent deliveries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Delivery, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, endpoint, method, path, topic, body_size, body_digest, payload, request_id, received_at
FROM deliveries
ORDER BY received_at DESC, rowid DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDelivery(row scanner) (*Delivery, error) {
	var (
		d           Delivery
		topic       sql.NullString
		payload     sql.NullString
		requestID   sql.NullString
		receivedAtS string
	)
	if err := row.Scan(
		&d.ID, &d.Endpoint, &d.Method, &d.Path, &topic, &d.BodySize, &d.BodyDigest, &payload, &requestID, &receivedAtS,
	); err != nil {
		return nil, err
	}

	if topic.Valid {
		d.Topic = &topic.String
	}
	if payload.Valid {
		d.Payload = []byte(payload.String)
	}
	if requestID.Valid {
		d.RequestID = &requestID.String
	}
	if t, err := time.Parse(time.RFC3339Nano, receivedAtS); err == nil {
		d.ReceivedAt = t
	}
	return &d, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
