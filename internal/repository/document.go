package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/idcard-reader/constants"
	"github.com/joseph-ayodele/idcard-reader/internal/common"
	"github.com/joseph-ayodele/idcard-reader/internal/entity"
)

type DocumentRepository interface {
	Save(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	List(ctx context.Context, fromDate, toDate *time.Time) ([]*entity.Document, error)
}

type documentRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewDocumentRepository(db *DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepository{db: db, logger: logger}
}

const documentColumns = `id, request_id, document_type, source, engine, status,
	id_number, full_name, date_of_birth, place_of_birth, gender, address, expiry_date,
	normalized_text, warnings, created_at`

// Save inserts doc, assigning ID, DocumentType and CreatedAt when unset.
func (r *documentRepository) Save(ctx context.Context, doc *entity.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.DocumentType == "" {
		doc.DocumentType = constants.DocumentTypeNationalID
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	doc.CreatedAt = doc.CreatedAt.UTC()

	q := r.db.rebind(`INSERT INTO documents (` + documentColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.SQL.ExecContext(ctx, q,
		doc.ID.String(), doc.RequestID, doc.DocumentType, doc.Source, string(doc.Engine), string(doc.Status),
		nullable(doc.IDNumber), nullable(doc.FullName), nullable(doc.DateOfBirth), nullable(doc.PlaceOfBirth),
		nullable(doc.Gender), nullable(doc.Address), nullable(doc.ExpiryDate),
		doc.NormalizedText, strings.Join(doc.Warnings, "\n"), doc.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to save document", "document_id", doc.ID, "error", err)
		return fmt.Errorf("%w: save document: %v", common.ErrDatabase, err)
	}
	r.logger.Debug("document saved", "document_id", doc.ID, "status", doc.Status)
	return nil
}

func (r *documentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	q := r.db.rebind(`SELECT ` + documentColumns + ` FROM documents WHERE id = ?`)
	doc, err := scanDocument(r.db.SQL.QueryRowContext(ctx, q, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("DOCUMENT_NOT_FOUND", "document "+id.String()+" not found", common.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("failed to get document", "document_id", id, "error", err)
		return nil, fmt.Errorf("%w: get document: %v", common.ErrDatabase, err)
	}
	return doc, nil
}

// List returns documents created within [fromDate, toDate], oldest first.
// A nil bound is open.
func (r *documentRepository) List(ctx context.Context, fromDate, toDate *time.Time) ([]*entity.Document, error) {
	var (
		where []string
		args  []any
	)
	if fromDate != nil {
		where = append(where, "created_at >= ?")
		args = append(args, fromDate.UTC())
	}
	if toDate != nil {
		where = append(where, "created_at <= ?")
		args = append(args, toDate.UTC())
	}
	q := `SELECT ` + documentColumns + ` FROM documents`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at, id"

	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(q), args...)
	if err != nil {
		r.logger.Error("failed to list documents", "error", err)
		return nil, fmt.Errorf("%w: list documents: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan document: %v", common.ErrDatabase, err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list documents: %v", common.ErrDatabase, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*entity.Document, error) {
	var (
		doc                                          entity.Document
		id, engine, status, warnings                 string
		idNumber, fullName, dob, place, gender, addr sql.NullString
		expiry                                       sql.NullString
	)
	err := s.Scan(&id, &doc.RequestID, &doc.DocumentType, &doc.Source, &engine, &status,
		&idNumber, &fullName, &dob, &place, &gender, &addr, &expiry,
		&doc.NormalizedText, &warnings, &doc.CreatedAt)
	if err != nil {
		return nil, err
	}
	if doc.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	doc.Engine = constants.EngineName(engine)
	doc.Status = constants.DocumentStatus(status)
	doc.IDNumber = ptr(idNumber)
	doc.FullName = ptr(fullName)
	doc.DateOfBirth = ptr(dob)
	doc.PlaceOfBirth = ptr(place)
	doc.Gender = ptr(gender)
	doc.Address = ptr(addr)
	doc.ExpiryDate = ptr(expiry)
	if warnings != "" {
		doc.Warnings = strings.Split(warnings, "\n")
	}
	doc.CreatedAt = doc.CreatedAt.UTC()
	return &doc, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func ptr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
