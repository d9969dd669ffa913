package pulls

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/ripbid/internal/domain/rarity"
	"github.com/fastprodman/ripbid/internal/repos/pulls"
	"github.com/google/uuid"
)

var _ pulls.Pulls = (*pullsRepo)(nil)

type pullsRepo struct{ db *sql.DB }

func New(db *sql.DB) *pullsRepo {
	return &pullsRepo{db: db}
}

const pullColumns = `p.id, p.round_id, p.pack_number, p.all_card_id, p.card_name, p.card_number,
	p.rarity, p.lottery_tier, p.awarded_to, p.award_kind, p.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPull(row rowScanner) (pulls.Pull, error) {
	var (
		p          pulls.Pull
		tier, kind *string
	)

	err := row.Scan(&p.ID, &p.RoundID, &p.PackNumber, &p.CardID, &p.CardName, &p.CardNumber,
		&p.Rarity, &tier, &p.AwardedTo, &kind, &p.CreatedAt)
	if err != nil {
		return pulls.Pull{}, fmt.Errorf("scan pull: %w", err)
	}

	if tier != nil {
		t := rarity.Tier(*tier)
		p.Tier = &t
	}

	if kind != nil {
		k := pulls.AwardKind(*kind)
		p.AwardKind = &k
	}

	return p, nil
}

func (r *pullsRepo) Insert(tx *sql.Tx, p pulls.Pull) (pulls.Pull, error) {
	var tier *string
	if p.Tier != nil {
		s := string(*p.Tier)
		tier = &s
	}

	return scanPull(tx.QueryRow(`
		INSERT INTO pulled_cards AS p (id, round_id, pack_number, all_card_id, card_name, card_number, rarity, lottery_tier)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+pullColumns,
		p.ID, p.RoundID, p.PackNumber, p.CardID, p.CardName, p.CardNumber, p.Rarity, tier))
}

func (r *pullsRepo) LockPack(tx *sql.Tx, roundID uuid.UUID, pack int) ([]pulls.Pull, error) {
	return collect(tx.Query(`
		SELECT `+pullColumns+`
		FROM pulled_cards p
		WHERE p.round_id = $1 AND p.pack_number = $2
		ORDER BY p.created_at, p.id
		FOR UPDATE
	`, roundID, pack))
}

func (r *pullsRepo) ListRound(ctx context.Context, roundID uuid.UUID) ([]pulls.Pull, error) {
	return collect(r.db.QueryContext(ctx, `
		SELECT `+pullColumns+`
		FROM pulled_cards p
		WHERE p.round_id = $1
		ORDER BY p.pack_number, p.created_at, p.id
	`, roundID))
}

func (r *pullsRepo) ListRoundPacks(tx *sql.Tx, roundID uuid.UUID) ([]int, error) {
	rows, err := tx.Query(`
		SELECT DISTINCT pack_number FROM pulled_cards
		WHERE round_id = $1
		ORDER BY pack_number
	`, roundID)
	if err != nil {
		return nil, fmt.Errorf("query round packs: %w", err)
	}
	defer rows.Close()

	var packs []int

	for rows.Next() {
		var pack int

		err = rows.Scan(&pack)
		if err != nil {
			return nil, fmt.Errorf("scan round pack: %w", err)
		}

		packs = append(packs, pack)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate round packs: %w", err)
	}

	return packs, nil
}

func (r *pullsRepo) PulledCardIDs(tx *sql.Tx, roundID uuid.UUID) (map[int64]bool, error) {
	rows, err := tx.Query(`
		SELECT DISTINCT all_card_id FROM pulled_cards
		WHERE round_id = $1 AND all_card_id IS NOT NULL
	`, roundID)
	if err != nil {
		return nil, fmt.Errorf("query pulled card ids: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]bool)

	for rows.Next() {
		var id int64

		err = rows.Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("scan pulled card id: %w", err)
		}

		out[id] = true
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate pulled card ids: %w", err)
	}

	return out, nil
}

func (r *pullsRepo) Award(tx *sql.Tx, pullID, userID uuid.UUID, kind pulls.AwardKind) error {
	_, err := tx.Exec(`
		UPDATE pulled_cards SET awarded_to = $2, award_kind = $3
		WHERE id = $1 AND awarded_to IS NULL
	`, pullID, userID, string(kind))
	if err != nil {
		return fmt.Errorf("award pull: %w", err)
	}

	return nil
}

func (r *pullsRepo) LastHit(ctx context.Context, streamID uuid.UUID) (*pulls.Pull, error) {
	p, err := scanPull(r.db.QueryRowContext(ctx, `
		SELECT `+pullColumns+`
		FROM pulled_cards p
		JOIN rounds rd ON rd.id = p.round_id
		WHERE rd.stream_id = $1 AND p.lottery_tier IS NOT NULL
		ORDER BY p.created_at DESC
		LIMIT 1
	`, streamID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return &p, nil
}

func collect(rows *sql.Rows, err error) ([]pulls.Pull, error) {
	if err != nil {
		return nil, fmt.Errorf("query pulls: %w", err)
	}
	defer rows.Close()

	var out []pulls.Pull

	for rows.Next() {
		p, err := scanPull(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, p)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate pulls: %w", err)
	}

	return out, nil
}
