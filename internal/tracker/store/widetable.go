package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/radieske/odds-tracker-poc/internal/tracker/tableservice"
)

// Executor é o contrato mínimo do client de table service usado pelo backend
// wide-table (injetado; os testes usam um fake)
type Executor interface {
	Execute(ctx context.Context, query string, params map[string]tableservice.Value) ([]tableservice.ResultSet, error)
}

// WideTable implementa o Store sobre o table service distribuído. As linhas
// chegam como listas de células tipadas em ordem alfabética de coluna; a
// reconstrução do objeto é posicional, via a tabela de mapeamento abaixo.
type WideTable struct {
	exec Executor
}

func NewWideTable(exec Executor) *WideTable { return &WideTable{exec: exec} }

// Posições das colunas de tracked_bets em ordem alfabética estrita de nome.
// Essa tabela é o ÚNICO lugar do código que conhece posições; qualquer
// mudança de schema reordena as posições silenciosamente, então o teste do
// pacote fixa o mapeamento contra uma linha de amostra.
const (
	posAwayTeam = iota
	posBetOutcome
	posBetType
	posBookmaker
	posHomeTeam
	posID
	posLeague
	posMatchDate
	posMatchID
	posMLCoefficient
	posOdds
	posProfitabilityLevel
	posResultUpdatedAt
	posStatus
	posTrackedAt
	posUniqueKey
	posUserID

	wideColumnCount
)

// wideColumns, indexada pelas constantes pos*, documenta o mapeamento
var wideColumns = [wideColumnCount]string{
	"awayTeam", "betOutcome", "betType", "bookmaker", "homeTeam", "id",
	"league", "matchDate", "matchId", "mlCoefficient", "odds",
	"profitabilityLevel", "resultUpdatedAt", "status", "trackedAt",
	"uniqueKey", "userId",
}

func (w *WideTable) InsertIfAbsent(ctx context.Context, bet *TrackedBet) (*TrackedBet, bool, error) {
	// insert condicional + releitura num único round-trip; o gateway executa
	// os dois statements na mesma transação serializável, então a constraint
	// de unicidade vale sem check-then-act
	const query = `
		DECLARE $id AS Utf8;
		DECLARE $userId AS Utf8;
		DECLARE $matchId AS Utf8;
		DECLARE $betType AS Utf8;
		DECLARE $betOutcome AS Utf8;
		DECLARE $bookmaker AS Utf8;
		DECLARE $odds AS Double;
		DECLARE $mlCoefficient AS Double?;
		DECLARE $profitabilityLevel AS Utf8?;
		DECLARE $status AS Utf8;
		DECLARE $trackedAt AS Timestamp;
		DECLARE $uniqueKey AS Utf8;
		DECLARE $homeTeam AS Utf8?;
		DECLARE $awayTeam AS Utf8?;
		DECLARE $league AS Utf8?;
		DECLARE $matchDate AS Utf8?;

		INSERT INTO tracked_bets (
			id, userId, matchId, betType, betOutcome, bookmaker, odds,
			mlCoefficient, profitabilityLevel, status, trackedAt, uniqueKey,
			homeTeam, awayTeam, league, matchDate
		)
		SELECT * FROM (
			SELECT $id AS id, $userId AS userId, $matchId AS matchId,
				$betType AS betType, $betOutcome AS betOutcome,
				$bookmaker AS bookmaker, $odds AS odds,
				$mlCoefficient AS mlCoefficient,
				$profitabilityLevel AS profitabilityLevel, $status AS status,
				$trackedAt AS trackedAt, $uniqueKey AS uniqueKey,
				$homeTeam AS homeTeam, $awayTeam AS awayTeam,
				$league AS league, $matchDate AS matchDate
		)
		WHERE NOT EXISTS (SELECT 1 FROM tracked_bets WHERE uniqueKey = $uniqueKey);

		SELECT * FROM tracked_bets WHERE uniqueKey = $uniqueKey LIMIT 1;`

	sets, err := w.exec.Execute(ctx, query, map[string]tableservice.Value{
		"$id":                 tableservice.Utf8(bet.ID),
		"$userId":             tableservice.Utf8(bet.UserID),
		"$matchId":            tableservice.Utf8(bet.MatchID),
		"$betType":            tableservice.Utf8(bet.BetType),
		"$betOutcome":         tableservice.Utf8(bet.BetOutcome),
		"$bookmaker":          tableservice.Utf8(bet.Bookmaker),
		"$odds":               tableservice.Double(bet.Odds),
		"$mlCoefficient":      tableservice.OptionalDouble(bet.MLCoefficient),
		"$profitabilityLevel": tableservice.OptionalUtf8(bet.ProfitabilityLevel),
		"$status":             tableservice.Utf8(bet.Status),
		"$trackedAt":          tableservice.Timestamp(bet.TrackedAt),
		"$uniqueKey":          tableservice.Utf8(bet.UniqueKey),
		"$homeTeam":           tableservice.OptionalUtf8(bet.HomeTeam),
		"$awayTeam":           tableservice.OptionalUtf8(bet.AwayTeam),
		"$league":             tableservice.OptionalUtf8(bet.League),
		"$matchDate":          tableservice.OptionalUtf8(bet.MatchDate),
	})
	if err != nil {
		return nil, false, w.wrap("insert tracked bet", err)
	}

	row, ok := lastRow(sets)
	if !ok {
		return nil, false, fmt.Errorf("insert tracked bet: empty reread result")
	}
	stored, err := decodeWideRow(row)
	if err != nil {
		return nil, false, fmt.Errorf("insert tracked bet: %w", err)
	}
	// se a linha relida tem outro id, alguém ganhou a corrida antes de nós
	return stored, stored.ID != bet.ID, nil
}

func (w *WideTable) GetByID(ctx context.Context, id string) (*TrackedBet, error) {
	const query = `
		DECLARE $id AS Utf8;
		SELECT * FROM tracked_bets WHERE id = $id LIMIT 1;`

	sets, err := w.exec.Execute(ctx, query, map[string]tableservice.Value{
		"$id": tableservice.Utf8(id),
	})
	if err != nil {
		return nil, w.wrap("get tracked bet", err)
	}

	row, ok := lastRow(sets)
	if !ok {
		return nil, ErrNotFound
	}
	bet, err := decodeWideRow(row)
	if err != nil {
		return nil, fmt.Errorf("get tracked bet: %w", err)
	}
	return bet, nil
}

func (w *WideTable) DeleteByIDForOwner(ctx context.Context, id, userID string) (bool, error) {
	// o SELECT e o DELETE rodam na mesma transação; a presença de linha no
	// primeiro result set responde se a deleção de fato aconteceu
	const query = `
		DECLARE $id AS Utf8;
		DECLARE $userId AS Utf8;
		SELECT id FROM tracked_bets WHERE id = $id AND userId = $userId LIMIT 1;
		DELETE FROM tracked_bets WHERE id = $id AND userId = $userId;`

	sets, err := w.exec.Execute(ctx, query, map[string]tableservice.Value{
		"$id":     tableservice.Utf8(id),
		"$userId": tableservice.Utf8(userID),
	})
	if err != nil {
		return false, w.wrap("delete tracked bet", err)
	}

	return len(sets) > 0 && len(sets[0].Rows) > 0, nil
}

func (w *WideTable) ListByOwner(ctx context.Context, userID string, opts ListOptions) (*ListResult, error) {
	clampPage(&opts)

	statusFilter := ""
	params := map[string]tableservice.Value{
		"$userId": tableservice.Utf8(userID),
		"$limit":  tableservice.Uint64(uint64(opts.Limit + 1)), // +1 pra detectar próxima página
		"$offset": tableservice.Uint64(uint64(opts.Offset)),
	}
	declStatus := ""
	if opts.Status != StatusAll {
		declStatus = "DECLARE $status AS Utf8;"
		statusFilter = " AND status = $status"
		params["$status"] = tableservice.Utf8(opts.Status)
	}

	query := fmt.Sprintf(`
		DECLARE $userId AS Utf8;
		DECLARE $limit AS Uint64;
		DECLARE $offset AS Uint64;
		%s
		SELECT COUNT(*) AS total FROM tracked_bets WHERE userId = $userId%s;
		SELECT * FROM tracked_bets WHERE userId = $userId%s
		ORDER BY trackedAt DESC, id DESC
		LIMIT $limit OFFSET $offset;`, declStatus, statusFilter, statusFilter)

	sets, err := w.exec.Execute(ctx, query, params)
	if err != nil {
		return nil, w.wrap("list tracked bets", err)
	}
	if len(sets) < 2 {
		return nil, fmt.Errorf("list tracked bets: expected 2 result sets, got %d", len(sets))
	}

	total := 0
	if len(sets[0].Rows) > 0 && len(sets[0].Rows[0]) > 0 {
		if n, ok := sets[0].Rows[0][0].Uint64(); ok {
			total = int(n)
		}
	}

	bets := make([]TrackedBet, 0, opts.Limit)
	for _, row := range sets[1].Rows {
		bet, err := decodeWideRow(row)
		if err != nil {
			return nil, fmt.Errorf("list tracked bets: %w", err)
		}
		bets = append(bets, *bet)
	}

	hasMore := len(bets) > opts.Limit
	if hasMore {
		bets = bets[:opts.Limit]
	}
	return &ListResult{Bets: bets, Total: total, HasMore: hasMore}, nil
}

func (w *WideTable) UpdateStatus(ctx context.Context, id, userID, status string) (bool, error) {
	const query = `
		DECLARE $id AS Utf8;
		DECLARE $userId AS Utf8;
		DECLARE $status AS Utf8;
		DECLARE $now AS Timestamp;
		SELECT id FROM tracked_bets WHERE id = $id AND userId = $userId LIMIT 1;
		UPDATE tracked_bets SET status = $status, resultUpdatedAt = $now
		WHERE id = $id AND userId = $userId;`

	now := nowUTC()
	sets, err := w.exec.Execute(ctx, query, map[string]tableservice.Value{
		"$id":     tableservice.Utf8(id),
		"$userId": tableservice.Utf8(userID),
		"$status": tableservice.Utf8(status),
		"$now":    tableservice.Timestamp(now),
	})
	if err != nil {
		return false, w.wrap("update bet status", err)
	}
	return len(sets) > 0 && len(sets[0].Rows) > 0, nil
}

func (w *WideTable) wrap(op string, err error) error {
	if errors.Is(err, tableservice.ErrUnavailable) {
		return unavailable(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// lastRow pega a primeira linha do último result set não vazio
func lastRow(sets []tableservice.ResultSet) ([]tableservice.Cell, bool) {
	for i := len(sets) - 1; i >= 0; i-- {
		if len(sets[i].Rows) > 0 {
			return sets[i].Rows[0], true
		}
	}
	return nil, false
}

// decodeWideRow reconstrói o TrackedBet a partir das células posicionais.
// Campos opcionais ausentes ou com marcador de NULL ficam ausentes no
// objeto (nil/""), nunca zero.
func decodeWideRow(row []tableservice.Cell) (*TrackedBet, error) {
	if len(row) != wideColumnCount {
		return nil, fmt.Errorf("wide row has %d cells, schema has %d columns", len(row), wideColumnCount)
	}

	var bet TrackedBet
	var ok bool

	if bet.ID, ok = row[posID].Text(); !ok {
		return nil, fmt.Errorf("wide row missing id cell")
	}
	bet.UserID, _ = row[posUserID].Text()
	bet.MatchID, _ = row[posMatchID].Text()
	bet.BetType, _ = row[posBetType].Text()
	bet.BetOutcome, _ = row[posBetOutcome].Text()
	bet.Bookmaker, _ = row[posBookmaker].Text()
	bet.Odds, _ = row[posOdds].Double()
	bet.UniqueKey, _ = row[posUniqueKey].Text()

	if v, ok := row[posMLCoefficient].Double(); ok {
		bet.MLCoefficient = &v
	}
	bet.ProfitabilityLevel, _ = row[posProfitabilityLevel].Text()

	bet.Status, _ = row[posStatus].Text()
	if bet.Status == "" {
		bet.Status = StatusActive
	}

	if t, ok := row[posTrackedAt].TimestampValue(); ok {
		bet.TrackedAt = t
	}
	if t, ok := row[posResultUpdatedAt].TimestampValue(); ok {
		bet.ResultUpdatedAt = &t
	}

	bet.HomeTeam, _ = row[posHomeTeam].Text()
	bet.AwayTeam, _ = row[posAwayTeam].Text()
	bet.League, _ = row[posLeague].Text()
	bet.MatchDate, _ = row[posMatchDate].Text()

	return &bet, nil
}

// EnsureWideSchema cria a tabela tracked_bets no table service se preciso
func EnsureWideSchema(ctx context.Context, exec Executor) error {
	const query = `
		CREATE TABLE IF NOT EXISTS tracked_bets (
			id Utf8,
			userId Utf8,
			matchId Utf8,
			betType Utf8,
			betOutcome Utf8,
			bookmaker Utf8,
			odds Double,
			mlCoefficient Double,
			profitabilityLevel Utf8,
			status Utf8,
			trackedAt Timestamp,
			resultUpdatedAt Timestamp,
			uniqueKey Utf8,
			homeTeam Utf8,
			awayTeam Utf8,
			league Utf8,
			matchDate Utf8,
			PRIMARY KEY (id),
			INDEX idx_unique_key GLOBAL ON (uniqueKey),
			INDEX idx_user_tracked GLOBAL ON (userId, trackedAt)
		);`

	if _, err := exec.Execute(ctx, query, nil); err != nil {
		return fmt.Errorf("ensure wide schema: %w", err)
	}
	return nil
}
