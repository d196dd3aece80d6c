package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Bid (Предложение)
// CreatorID наружу отдается как authorId, организация, кворум и список
// проголосовавших в ответ не попадают.
type Bid struct {
	ID             string         `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	Description    string         `db:"description" json:"description"`
	Status         string         `db:"status" json:"status"`
	TenderID       string         `db:"tender_id" json:"tenderId"`
	OrganizationID sql.NullString `db:"organization_id" json:"-"`
	CreatorID      string         `db:"creator_id" json:"authorId"`
	AuthorType     string         `db:"author_type" json:"authorType"`
	Version        int            `db:"version" json:"version"`
	Quorum         int            `db:"quorum" json:"-"`
	ApprovedList   pq.StringArray `db:"approved_list" json:"-"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"-"`
}

// Именованные условия видимости предложений в общем списке.
const (
	filterBidByCreator   = `b.creator_id = $1`
	filterBidByPublished = `b.status = 'Published'`
)

// CreateBid создает предложение с версией 1, пустым списком голосов и
// первым снимком в архиве.
func (s *Storage) CreateBid(ctx context.Context, b *Bid) error {
	b.ID = uuid.NewString()
	b.Version = 1
	b.Quorum = 0
	if b.ApprovedList == nil {
		b.ApprovedList = pq.StringArray{}
	}
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		query := `
        INSERT INTO bid
            (id, name, description, status, tender_id, organization_id, creator_id, author_type, version, quorum, approved_list)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING created_at, updated_at`
		err := tx.QueryRowContext(ctx, query,
			b.ID, b.Name, b.Description, b.Status, b.TenderID, b.OrganizationID,
			b.CreatorID, b.AuthorType, b.Version, b.Quorum, b.ApprovedList).
			Scan(&b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return err
		}
		return saveBidVersion(ctx, tx, b)
	})
}

func (s *Storage) GetBid(ctx context.Context, id string) (*Bid, error) {
	b := &Bid{}
	query := `SELECT * FROM bid WHERE id=$1`
	err := s.db.GetContext(ctx, b, query, id)
	return b, err
}

// UpdateBid сохраняет отредактированное предложение: версия растет на 1,
// снимок пишется в той же транзакции.
func (s *Storage) UpdateBid(ctx context.Context, b *Bid) error {
	b.Version++
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		query := `
        UPDATE bid
        SET name=$1, description=$2, status=$3, tender_id=$4, organization_id=$5, creator_id=$6, author_type=$7, version=$8, updated_at=NOW()
        WHERE id=$9`
		_, err := tx.ExecContext(ctx, query,
			b.Name, b.Description, b.Status, b.TenderID, b.OrganizationID,
			b.CreatorID, b.AuthorType, b.Version, b.ID)
		if err != nil {
			return err
		}
		return saveBidVersion(ctx, tx, b)
	})
}

// SetBidStatus меняет только статус, без роста версии и снимка.
func (s *Storage) SetBidStatus(ctx context.Context, b *Bid) error {
	query := `UPDATE bid SET status=$1, updated_at=NOW() WHERE id=$2`
	_, err := s.db.ExecContext(ctx, query, b.Status, b.ID)
	return err
}

// GetBids возвращает предложения, видимые пользователю creatorID:
// свои в любом статусе плюс все опубликованные. Для анонима (пустой
// creatorID) условие по создателю не попадает в запрос: creator_id —
// uuid, пустая строка не пройдет приведение типа.
func (s *Storage) GetBids(ctx context.Context, creatorID string, limit, offset int) ([]Bid, error) {
	where := filterBidByPublished
	args := []interface{}{}
	if creatorID != "" {
		where = `(` + filterBidByCreator + ` OR ` + filterBidByPublished + `)`
		args = append(args, creatorID)
	}
	query := `SELECT b.* FROM bid b WHERE ` + where +
		` ORDER BY b.created_at DESC` +
		fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	bids := []Bid{}
	err := s.db.SelectContext(ctx, &bids, query, args...)
	return bids, err
}

func (s *Storage) GetUserBids(ctx context.Context, creatorID string, limit, offset int) ([]Bid, error) {
	query := `
        SELECT * FROM bid
        WHERE creator_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`
	bids := []Bid{}
	err := s.db.SelectContext(ctx, &bids, query, creatorID, limit, offset)
	return bids, err
}

// GetBidsForTender возвращает все предложения тендера; видимость для
// конкретного пользователя фильтруется на уровне обработчика, чтобы
// различать "предложений нет" и "нет видимых".
func (s *Storage) GetBidsForTender(ctx context.Context, tenderID string) ([]Bid, error) {
	query := `
        SELECT * FROM bid
        WHERE tender_id = $1
        ORDER BY created_at ASC`
	bids := []Bid{}
	err := s.db.SelectContext(ctx, &bids, query, tenderID)
	return bids, err
}

// GetFirstBidForTender возвращает первое по времени предложение тендера.
func (s *Storage) GetFirstBidForTender(ctx context.Context, tenderID string) (*Bid, error) {
	b := &Bid{}
	query := `
        SELECT * FROM bid
        WHERE tender_id = $1
        ORDER BY created_at ASC
        LIMIT 1`
	err := s.db.GetContext(ctx, b, query, tenderID)
	return b, err
}

// saveBidVersion пишет неизменяемый снимок текущих полей предложения.
func saveBidVersion(ctx context.Context, tx *sqlx.Tx, b *Bid) error {
	query := `
        INSERT INTO bid_versions
            (id, bid_id, name, description, status, tender_id, organization_id, creator_id, author_type, version)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := tx.ExecContext(ctx, query,
		uuid.NewString(), b.ID, b.Name, b.Description, b.Status, b.TenderID,
		b.OrganizationID, b.CreatorID, b.AuthorType, b.Version)
	return err
}

// GetBidVersion возвращает снимок предложения по номеру версии.
func (s *Storage) GetBidVersion(ctx context.Context, bidID string, version int) (*Bid, error) {
	var b Bid
	query := `
        SELECT bid_id AS id, name, description, status, tender_id, organization_id, creator_id, author_type, version, created_at, created_at AS updated_at
        FROM bid_versions
        WHERE bid_id = $1 AND version = $2`
	err := s.db.GetContext(ctx, &b, query, bidID, version)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
