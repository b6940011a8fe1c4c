package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Status de resolução de um tracked bet. A resolução em si fica fora deste
// serviço; o campo existe pra compatibilidade com o worker de resultados.
const (
	StatusActive = "active"
	StatusWon    = "won"
	StatusLost   = "lost"

	// StatusAll é aceito apenas como filtro de listagem
	StatusAll = "all"
)

// Níveis de lucratividade capturados no momento do track (snapshot, nunca recalculado)
const (
	ProfitExcellent = "excellent"
	ProfitGood      = "good"
	ProfitFair      = "fair"
	ProfitPoor      = "poor"
)

var (
	// ErrNotFound indica que o registro não existe
	ErrNotFound = errors.New("tracked bet not found")

	// ErrUnavailable indica falha de conectividade/infra com o backend de
	// armazenamento; o caller distingue isso de erro de validação ou not-found
	ErrUnavailable = errors.New("bet store unavailable")
)

// TrackedBet é o registro persistido de uma odd marcada pelo usuário.
// UniqueKey é derivada (identity.UniqueKey), nunca escolhida livremente.
type TrackedBet struct {
	ID                 string
	UserID             string
	MatchID            string
	BetType            string
	BetOutcome         string
	Bookmaker          string
	Odds               float64
	MLCoefficient      *float64 // nil = não informado
	ProfitabilityLevel string   // "" = não informado
	Status             string
	TrackedAt          time.Time
	ResultUpdatedAt    *time.Time
	UniqueKey          string

	// Snapshot de exibição capturado no track, pra UI não precisar rejuntar o feed
	HomeTeam  string
	AwayTeam  string
	League    string
	MatchDate string
}

// ListOptions filtra e pagina a listagem por dono
type ListOptions struct {
	Status string // "all" desliga o filtro
	Limit  int
	Offset int
}

// ListResult é a página retornada por ListByOwner
type ListResult struct {
	Bets    []TrackedBet
	Total   int
	HasMore bool
}

// Store abstrai o armazenamento de tracked bets. Duas implementações reais
// (Postgres e wide-table) e uma em memória pra dev/teste; a escolha acontece
// no boot, nunca nos handlers.
type Store interface {
	// InsertIfAbsent insere o bet se nenhuma linha com a mesma UniqueKey
	// existir; a operação é atômica em relação à constraint de unicidade.
	// Retorna a linha armazenada (a original, em caso de corrida perdida) e
	// alreadyExisted.
	InsertIfAbsent(ctx context.Context, bet *TrackedBet) (*TrackedBet, bool, error)

	// GetByID retorna o bet ou ErrNotFound
	GetByID(ctx context.Context, id string) (*TrackedBet, error)

	// DeleteByIDForOwner apaga a linha se ela existir e pertencer ao userID.
	// Retorna false (sem erro) quando não há linha correspondente.
	DeleteByIDForOwner(ctx context.Context, id, userID string) (bool, error)

	// ListByOwner pagina os bets do usuário, mais recentes primeiro
	// (trackedAt DESC, desempate por id DESC pra paginação determinística)
	ListByOwner(ctx context.Context, userID string, opts ListOptions) (*ListResult, error)

	// UpdateStatus marca o resultado do bet (won/lost) e o resultUpdatedAt
	UpdateStatus(ctx context.Context, id, userID, status string) (bool, error)
}

func nowUTC() time.Time { return time.Now().UTC() }

// unavailable embrulha uma falha de conectividade preservando a causa e o
// sentinel ErrUnavailable
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// clampPage normaliza os parâmetros de paginação já validados pela API
func clampPage(opts *ListOptions) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	if opts.Status == "" {
		opts.Status = StatusAll
	}
}
