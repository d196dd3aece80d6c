package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Tender (Тендер)
type Tender struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Description    string    `db:"description" json:"description"`
	ServiceType    string    `db:"service_type" json:"serviceType"`
	Status         string    `db:"status" json:"status"`
	OrganizationID string    `db:"organization_id" json:"organizationId"`
	CreatorID      string    `db:"creator_id" json:"-"`
	Version        int       `db:"version" json:"version"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"-"`
}

// Именованные условия видимости: автору доступны его тендеры в любом
// статусе, всем остальным — только опубликованные.
const (
	filterTenderByCreator   = `t.creator_id = $1`
	filterTenderByPublished = `t.status = 'Published'`
)

// CreateTender создает тендер с версией 1 и пишет первый снимок в архив
// в той же транзакции.
func (s *Storage) CreateTender(ctx context.Context, t *Tender) error {
	t.ID = uuid.NewString()
	t.Version = 1
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		query := `
        INSERT INTO tender
            (id, name, description, service_type, status, organization_id, creator_id, version)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING created_at, updated_at`
		err := tx.QueryRowContext(ctx, query,
			t.ID, t.Name, t.Description, t.ServiceType, t.Status, t.OrganizationID, t.CreatorID, t.Version).
			Scan(&t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return err
		}
		return saveTenderVersion(ctx, tx, t)
	})
}

func (s *Storage) GetTender(ctx context.Context, id string) (*Tender, error) {
	t := &Tender{}
	query := `SELECT * FROM tender WHERE id=$1`
	err := s.db.GetContext(ctx, t, query, id)
	return t, err
}

// UpdateTender сохраняет измененный тендер: версия увеличивается ровно
// на 1, новый снимок пишется в той же транзакции. Если снимок не
// записался, откатывается вся операция.
func (s *Storage) UpdateTender(ctx context.Context, t *Tender) error {
	t.Version++
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		query := `
        UPDATE tender
        SET name=$1, description=$2, service_type=$3, status=$4, version=$5, updated_at=NOW()
        WHERE id=$6`
		_, err := tx.ExecContext(ctx, query,
			t.Name, t.Description, t.ServiceType, t.Status, t.Version, t.ID)
		if err != nil {
			return err
		}
		return saveTenderVersion(ctx, tx, t)
	})
}

// SetTenderStatus меняет только статус. Смена статуса не считается
// редактированием: версия не растет и снимок не пишется.
func (s *Storage) SetTenderStatus(ctx context.Context, t *Tender) error {
	query := `UPDATE tender SET status=$1, updated_at=NOW() WHERE id=$2`
	_, err := s.db.ExecContext(ctx, query, t.Status, t.ID)
	return err
}

// GetTenders возвращает тендеры, видимые пользователю creatorID
// (пустой creatorID означает анонимный запрос — только опубликованные).
// Для анонима условие по создателю не попадает в запрос вовсе: колонка
// creator_id имеет тип uuid, и пустая строка не пройдет приведение типа.
func (s *Storage) GetTenders(ctx context.Context, creatorID string, serviceTypes []string, limit, offset int) ([]Tender, error) {
	where := filterTenderByPublished
	args := []interface{}{}
	if creatorID != "" {
		where = `(` + filterTenderByCreator + ` OR ` + filterTenderByPublished + `)`
		args = append(args, creatorID)
	}
	query := `SELECT t.* FROM tender t WHERE ` + where

	if len(serviceTypes) > 0 {
		placeholders := make([]string, len(serviceTypes))
		for i, v := range serviceTypes {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, v)
		}
		query += fmt.Sprintf(" AND t.service_type IN (%s)", strings.Join(placeholders, ", "))
	}

	query += " ORDER BY t.name ASC"
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	tenders := []Tender{}
	err := s.db.SelectContext(ctx, &tenders, query, args...)
	if err != nil {
		return nil, err
	}
	return tenders, nil
}

func (s *Storage) GetUserTenders(ctx context.Context, creatorID string, limit, offset int) ([]Tender, error) {
	query := `
        SELECT * FROM tender
        WHERE creator_id = $1
        ORDER BY name ASC
        LIMIT $2 OFFSET $3`
	tenders := []Tender{}
	err := s.db.SelectContext(ctx, &tenders, query, creatorID, limit, offset)
	if err != nil {
		return nil, err
	}
	return tenders, nil
}

// saveTenderVersion пишет неизменяемый снимок текущих полей тендера.
func saveTenderVersion(ctx context.Context, tx *sqlx.Tx, t *Tender) error {
	query := `
        INSERT INTO tender_versions
            (id, tender_id, name, description, service_type, status, organization_id, creator_id, version)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := tx.ExecContext(ctx, query,
		uuid.NewString(), t.ID, t.Name, t.Description, t.ServiceType, t.Status, t.OrganizationID, t.CreatorID, t.Version)
	return err
}

// GetTenderVersion возвращает снимок тендера по номеру версии.
func (s *Storage) GetTenderVersion(ctx context.Context, tenderID string, version int) (*Tender, error) {
	var t Tender
	query := `
        SELECT tender_id AS id, name, description, service_type, status, organization_id, creator_id, version, created_at, created_at AS updated_at
        FROM tender_versions
        WHERE tender_id = $1 AND version = $2`
	err := s.db.GetContext(ctx, &t, query, tenderID, version)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
