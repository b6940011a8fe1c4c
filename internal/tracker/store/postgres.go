package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
)

// Postgres implementa o Store sobre uma tabela relacional. A deduplicação
// é delegada à constraint UNIQUE(unique_key): insert com ON CONFLICT DO
// NOTHING e releitura, nunca check-then-act na aplicação.
type Postgres struct{ db *sql.DB }

// NewPostgres retorna o repositório relacional de tracked bets
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// betColumns na ordem de scan de scanBet
const betColumns = `id, user_id, match_id, bet_type, bet_outcome, bookmaker, odds,
	ml_coefficient, profitability_level, status, tracked_at, result_updated_at,
	unique_key, home_team, away_team, league, match_date`

func (p *Postgres) InsertIfAbsent(ctx context.Context, bet *TrackedBet) (*TrackedBet, bool, error) {
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO tracked_bets (
			id, user_id, match_id, bet_type, bet_outcome, bookmaker, odds,
			ml_coefficient, profitability_level, status, tracked_at,
			unique_key, home_team, away_team, league, match_date
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (unique_key) DO NOTHING
		RETURNING `+betColumns,
		bet.ID, bet.UserID, bet.MatchID, bet.BetType, bet.BetOutcome, bet.Bookmaker, bet.Odds,
		nullFloat(bet.MLCoefficient), nullStr(bet.ProfitabilityLevel), bet.Status, bet.TrackedAt,
		bet.UniqueKey, nullStr(bet.HomeTeam), nullStr(bet.AwayTeam), nullStr(bet.League), nullStr(bet.MatchDate),
	)

	created, err := scanBet(row)
	if err == nil {
		return created, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, p.wrap("insert tracked bet", err)
	}

	// conflito na unique_key: outra requisição ganhou a corrida, devolve a linha original
	existing, err := scanBet(p.db.QueryRowContext(ctx,
		`SELECT `+betColumns+` FROM tracked_bets WHERE unique_key=$1 LIMIT 1`, bet.UniqueKey))
	if err != nil {
		return nil, false, p.wrap("reread tracked bet", err)
	}
	return existing, true, nil
}

func (p *Postgres) GetByID(ctx context.Context, id string) (*TrackedBet, error) {
	bet, err := scanBet(p.db.QueryRowContext(ctx,
		`SELECT `+betColumns+` FROM tracked_bets WHERE id=$1 LIMIT 1`, id))
	if err != nil {
		return nil, p.wrap("get tracked bet", err)
	}
	return bet, nil
}

func (p *Postgres) DeleteByIDForOwner(ctx context.Context, id, userID string) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM tracked_bets WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return false, p.wrap("delete tracked bet", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (p *Postgres) ListByOwner(ctx context.Context, userID string, opts ListOptions) (*ListResult, error) {
	clampPage(&opts)

	where := `WHERE user_id=$1`
	args := []any{userID}
	if opts.Status != StatusAll {
		where += ` AND status=$2`
		args = append(args, opts.Status)
	}

	var total int
	if err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tracked_bets `+where, args...).Scan(&total); err != nil {
		return nil, p.wrap("count tracked bets", err)
	}

	// busca limit+1 pra detectar se há próxima página
	query := fmt.Sprintf(`SELECT `+betColumns+` FROM tracked_bets %s
		ORDER BY tracked_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, opts.Limit+1, opts.Offset)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, p.wrap("list tracked bets", err)
	}
	defer rows.Close()

	bets := make([]TrackedBet, 0, opts.Limit)
	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, p.wrap("scan tracked bet", err)
		}
		bets = append(bets, *bet)
	}
	if err := rows.Err(); err != nil {
		return nil, p.wrap("list tracked bets", err)
	}

	hasMore := len(bets) > opts.Limit
	if hasMore {
		bets = bets[:opts.Limit]
	}
	return &ListResult{Bets: bets, Total: total, HasMore: hasMore}, nil
}

func (p *Postgres) UpdateStatus(ctx context.Context, id, userID, status string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE tracked_bets SET status=$3, result_updated_at=NOW()
		WHERE id=$1 AND user_id=$2`, id, userID, status)
	if err != nil {
		return false, p.wrap("update bet status", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// wrap classifica o erro do driver: not-found, indisponibilidade ou erro genérico
func (p *Postgres) wrap(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if isConnErr(err) {
		return unavailable(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isConnErr detecta falhas de conectividade/autenticação com o banco
// (DNS, connection refused, conexão morta, credencial expirada)
func isConnErr(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// classe 08 = connection exception, 28 = invalid authorization, 57P03 = cannot_connect_now
		class := pqErr.Code.Class()
		return class == "08" || class == "28" || pqErr.Code == "57P03"
	}
	return false
}

type rowScanner interface{ Scan(dest ...any) error }

// scanBet materializa uma linha na ordem de betColumns
func scanBet(r rowScanner) (*TrackedBet, error) {
	var (
		bet        TrackedBet
		mlCoef     sql.NullFloat64
		profit     sql.NullString
		updatedAt  sql.NullTime
		home, away sql.NullString
		league     sql.NullString
		matchDate  sql.NullString
	)
	err := r.Scan(
		&bet.ID, &bet.UserID, &bet.MatchID, &bet.BetType, &bet.BetOutcome, &bet.Bookmaker, &bet.Odds,
		&mlCoef, &profit, &bet.Status, &bet.TrackedAt, &updatedAt,
		&bet.UniqueKey, &home, &away, &league, &matchDate,
	)
	if err != nil {
		return nil, err
	}
	if mlCoef.Valid {
		bet.MLCoefficient = &mlCoef.Float64
	}
	bet.ProfitabilityLevel = profit.String
	if updatedAt.Valid {
		bet.ResultUpdatedAt = &updatedAt.Time
	}
	bet.HomeTeam = home.String
	bet.AwayTeam = away.String
	bet.League = league.String
	bet.MatchDate = matchDate.String
	return &bet, nil
}

// nullStr converte "" em NULL no insert, mantendo a convenção "ausente = NULL"
func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
