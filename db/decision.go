package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/SoloMen88/tenderServise/internal/apperr"
)

// Сообщения движка решений, отдаются клиенту как есть.
const (
	MsgBidNotFound     = "Предложение не найдено."
	MsgForbidden       = "Недостаточно прав для выполнения действия."
	MsgAlreadyVoted    = "Вы уже голосовали за это предложение."
	MsgAlreadyRejected = "Предложение уже отклонено другим сотрудником."
)

// quorumCap — верхняя граница кворума вне зависимости от размера организации.
const quorumCap = 3

// applyDecision применяет голос к предложению и его тендеру в памяти.
// responsibleCount — текущее число ответственных организации тендера,
// кворум пересчитывается на каждом голосе. Ветки в порядке приоритета:
//  1. Approved по неотклоненному предложению: голос засчитывается,
//     при достижении кворума предложение принимается, тендер закрывается;
//  2. предложение уже отклонено — голосовать нельзя;
//  3. Rejected по принятому предложению: предложение отклоняется,
//     тендер возвращается в Published;
//  4. иначе статус ставится напрямую, без учета голоса.
func applyDecision(bid *Bid, tender *Tender, voterID, decision string, responsibleCount int) error {
	for _, id := range bid.ApprovedList {
		if id == voterID {
			return apperr.Forbidden(MsgAlreadyVoted)
		}
	}

	switch {
	case decision == DecisionApproved && bid.Status != BidStatusRejected:
		quorum := responsibleCount
		if quorum > quorumCap {
			quorum = quorumCap
		}
		bid.Quorum++
		bid.ApprovedList = append(bid.ApprovedList, voterID)
		if bid.Quorum >= quorum {
			bid.Status = BidStatusApproved
			tender.Status = TenderStatusClosed
		}
	case bid.Status == BidStatusRejected:
		return apperr.Forbidden(MsgAlreadyRejected)
	case decision == DecisionRejected && bid.Status == BidStatusApproved:
		bid.ApprovedList = append(bid.ApprovedList, voterID)
		bid.Status = BidStatusRejected
		tender.Status = TenderStatusPublished
	default:
		bid.Status = decision
	}
	return nil
}

// SubmitBidDecision проводит голос ответственного сотрудника по
// предложению. Предложение и его тендер блокируются на время транзакции
// (SELECT ... FOR UPDATE), поэтому два одновременных голоса по одному
// предложению сериализуются и не могут задвоить счетчик или каскад.
// Смена статусов голосованием не версионируется.
func (s *Storage) SubmitBidDecision(ctx context.Context, bidID, voterID, decision string) (*Bid, error) {
	bid := &Bid{}
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, bid, `SELECT * FROM bid WHERE id=$1 FOR UPDATE`, bidID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound(MsgBidNotFound)
			}
			return err
		}

		tender := &Tender{}
		if err := tx.GetContext(ctx, tender, `SELECT * FROM tender WHERE id=$1 FOR UPDATE`, bid.TenderID); err != nil {
			return err
		}

		var responsible int
		err := tx.GetContext(ctx, &responsible,
			`SELECT COUNT(1) FROM organization_responsible WHERE user_id=$1 AND organization_id=$2`,
			voterID, tender.OrganizationID)
		if err != nil {
			return err
		}
		if responsible == 0 {
			return apperr.Forbidden(MsgForbidden)
		}

		var responsibleCount int
		err = tx.GetContext(ctx, &responsibleCount,
			`SELECT COUNT(1) FROM organization_responsible WHERE organization_id=$1`,
			tender.OrganizationID)
		if err != nil {
			return err
		}

		if err := applyDecision(bid, tender, voterID, decision, responsibleCount); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE bid SET status=$1, quorum=$2, approved_list=$3, updated_at=NOW() WHERE id=$4`,
			bid.Status, bid.Quorum, bid.ApprovedList, bid.ID)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE tender SET status=$1, updated_at=NOW() WHERE id=$2`,
			tender.Status, tender.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}
