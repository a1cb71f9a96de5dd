// Package document wraps the external relational document index. The index is
// owned by the file-management side of the house; the engine only reads it to
// decide whether an upload task is already satisfied.
package document

import (
	"context"
	"database/sql"
	"time"

	"go-propflow/internal/database"
)

// Document is one active row of the external index.
type Document struct {
	ID         int64
	PropertyID string
	DocType    string
	OwnerID    *string
	FileName   string
	UploadedAt time.Time
}

// Registry looks up active documents for a property. ownerID narrows the match
// for owner-scoped tasks; pass "" for property-level documents.
type Registry interface {
	FindActive(ctx context.Context, propertyID, docType, ownerID string) (*Document, error)
}

type SQLRegistry struct {
	db *sql.DB
}

func NewRegistry(docsDB *database.DocumentDB) Registry {
	return &SQLRegistry{db: docsDB.DB}
}

func (r *SQLRegistry) FindActive(ctx context.Context, propertyID, docType, ownerID string) (*Document, error) {
	query := `SELECT id, property_id, doc_type, owner_id, file_name, uploaded_at
		FROM documents
		WHERE property_id = $1 AND doc_type = $2 AND active = true`
	args := []interface{}{propertyID, docType}

	if ownerID != "" {
		query += ` AND owner_id = $3`
		args = append(args, ownerID)
	}
	query += ` ORDER BY uploaded_at DESC LIMIT 1`

	var doc Document
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&doc.ID, &doc.PropertyID, &doc.DocType, &doc.OwnerID, &doc.FileName, &doc.UploadedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
