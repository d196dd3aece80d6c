// Package db реализует хранилище сервиса поверх Postgres через sqlx.
// Все версионируемые изменения (создание, редактирование, откат) и
// голосование по предложениям выполняются в одной транзакции.
package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Статусы тендера.
const (
	TenderStatusCreated   = "Created"
	TenderStatusPublished = "Published"
	TenderStatusClosed    = "Closed"
)

// Статусы предложения.
const (
	BidStatusCreated   = "Created"
	BidStatusPublished = "Published"
	BidStatusCanceled  = "Canceled"
	BidStatusApproved  = "Approved"
	BidStatusRejected  = "Rejected"
)

// Типы автора предложения.
const (
	AuthorTypeUser         = "User"
	AuthorTypeOrganization = "Organization"
)

// Решения по предложению.
const (
	DecisionApproved = "Approved"
	DecisionRejected = "Rejected"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// withTx выполняет fn в транзакции и откатывает ее при любой ошибке.
func (s *Storage) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Employee (Пользователь)
type Employee struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	FirstName string    `db:"first_name" json:"firstName"`
	LastName  string    `db:"last_name" json:"lastName"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}

func (s *Storage) CreateEmployee(ctx context.Context, e *Employee) error {
	e.ID = uuid.NewString()
	query := `
        INSERT INTO employee (id, username, first_name, last_name)
        VALUES ($1, $2, $3, $4)
        RETURNING created_at, updated_at`
	return s.db.QueryRowContext(ctx, query, e.ID, e.Username, e.FirstName, e.LastName).
		Scan(&e.CreatedAt, &e.UpdatedAt)
}

func (s *Storage) GetEmployeeByUsername(ctx context.Context, username string) (*Employee, error) {
	e := &Employee{}
	query := `SELECT * FROM employee WHERE username=$1`
	err := s.db.GetContext(ctx, e, query, username)
	return e, err
}

func (s *Storage) GetEmployeeByID(ctx context.Context, id string) (*Employee, error) {
	e := &Employee{}
	query := `SELECT * FROM employee WHERE id=$1`
	err := s.db.GetContext(ctx, e, query, id)
	return e, err
}

// Organization (Организация)
type Organization struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Type        string    `db:"type" json:"type"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"-"`
}

func (s *Storage) CreateOrganization(ctx context.Context, o *Organization) error {
	o.ID = uuid.NewString()
	query := `
        INSERT INTO organization (id, name, description, type)
        VALUES ($1, $2, $3, $4)
        RETURNING created_at, updated_at`
	return s.db.QueryRowContext(ctx, query, o.ID, o.Name, o.Description, o.Type).
		Scan(&o.CreatedAt, &o.UpdatedAt)
}

func (s *Storage) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	o := &Organization{}
	query := `SELECT * FROM organization WHERE id=$1`
	err := s.db.GetContext(ctx, o, query, id)
	return o, err
}

// AddOrganizationResponsible дает сотруднику права действовать от имени организации.
func (s *Storage) AddOrganizationResponsible(ctx context.Context, organizationID, userID string) error {
	query := `
        INSERT INTO organization_responsible (id, organization_id, user_id)
        VALUES ($1, $2, $3)`
	_, err := s.db.ExecContext(ctx, query, uuid.NewString(), organizationID, userID)
	return err
}

func (s *Storage) IsUserResponsibleForOrganization(ctx context.Context, userID, organizationID string) (bool, error) {
	var count int
	query := `SELECT COUNT(1) FROM organization_responsible WHERE user_id=$1 AND organization_id=$2`
	err := s.db.GetContext(ctx, &count, query, userID, organizationID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetResponsibleOrganization возвращает организацию первой найденной записи
// ответственности сотрудника. Сотрудник, состоящий в нескольких организациях,
// не различается — берется первая запись.
func (s *Storage) GetResponsibleOrganization(ctx context.Context, userID string) (string, error) {
	var organizationID string
	query := `SELECT organization_id FROM organization_responsible WHERE user_id=$1 LIMIT 1`
	err := s.db.GetContext(ctx, &organizationID, query, userID)
	return organizationID, err
}

func (s *Storage) GetResponsibleCount(ctx context.Context, organizationID string) (int, error) {
	var count int
	query := `SELECT COUNT(1) FROM organization_responsible WHERE organization_id=$1`
	err := s.db.GetContext(ctx, &count, query, organizationID)
	return count, err
}
