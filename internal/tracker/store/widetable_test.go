package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/odds-tracker-poc/internal/tracker/tableservice"
)

type fakeExec struct {
	fn      func(query string, params map[string]tableservice.Value) ([]tableservice.ResultSet, error)
	queries []string
}

func (f *fakeExec) Execute(_ context.Context, query string, params map[string]tableservice.Value) ([]tableservice.ResultSet, error) {
	f.queries = append(f.queries, query)
	return f.fn(query, params)
}

func cellText(s string) tableservice.Cell { return tableservice.Cell{TextValue: &s} }
func cellDouble(f float64) tableservice.Cell { return tableservice.Cell{DoubleValue: &f} }

func cellUint64(n uint64) tableservice.Cell {
	s := strconv.FormatUint(n, 10)
	return tableservice.Cell{Uint64Value: &s}
}

func cellMicros(t time.Time) tableservice.Cell {
	return cellUint64(uint64(t.UnixMicro()))
}

func cellNull() tableservice.Cell {
	flag := "NULL_VALUE"
	return tableservice.Cell{NullFlag: &flag}
}

// rowFromCells monta a linha posicional a partir de células nomeadas;
// colunas não mencionadas ficam como célula vazia (ausente)
func rowFromCells(t *testing.T, cells map[string]tableservice.Cell) []tableservice.Cell {
	t.Helper()
	row := make([]tableservice.Cell, wideColumnCount)
	for name, cell := range cells {
		idx := -1
		for i, col := range wideColumns {
			if col == name {
				idx = i
				break
			}
		}
		require.NotEqual(t, -1, idx, "coluna desconhecida %q", name)
		row[idx] = cell
	}
	return row
}

var sampleTrackedAt = time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

func sampleCells() map[string]tableservice.Cell {
	return map[string]tableservice.Cell{
		"awayTeam":           cellText("Grêmio"),
		"betOutcome":         cellText("P1"),
		"betType":            cellText("1x2"),
		"bookmaker":          cellText("bet365"),
		"homeTeam":           cellText("Santos"),
		"id":                 cellText("bet-1"),
		"league":             cellText("Brasileirão"),
		"matchDate":          cellText("2026-03-01"),
		"matchId":            cellText("m1"),
		"mlCoefficient":      cellDouble(1.85),
		"odds":               cellDouble(2.10),
		"profitabilityLevel": cellText("good"),
		"resultUpdatedAt":    cellNull(),
		"status":             cellText("active"),
		"trackedAt":          cellMicros(sampleTrackedAt),
		"uniqueKey":          cellText("u1\x1fm1\x1f1x2\x1fP1"),
		"userId":             cellText("u1"),
	}
}

// O mapeamento posicional assume ordem alfabética estrita de nome de coluna;
// se alguém renomear ou inserir coluna fora de ordem, este teste quebra antes
// do decode passar a ler campo errado.
func TestWideColumnsAreAlphabetical(t *testing.T) {
	assert.True(t, sort.StringsAreSorted(wideColumns[:]), "colunas fora de ordem alfabética: %v", wideColumns)
}

func TestDecodeWideRowSample(t *testing.T) {
	bet, err := decodeWideRow(rowFromCells(t, sampleCells()))
	require.NoError(t, err)

	assert.Equal(t, "bet-1", bet.ID)
	assert.Equal(t, "u1", bet.UserID)
	assert.Equal(t, "m1", bet.MatchID)
	assert.Equal(t, "1x2", bet.BetType)
	assert.Equal(t, "P1", bet.BetOutcome)
	assert.Equal(t, "bet365", bet.Bookmaker)
	assert.Equal(t, 2.10, bet.Odds)
	require.NotNil(t, bet.MLCoefficient)
	assert.Equal(t, 1.85, *bet.MLCoefficient)
	assert.Equal(t, "good", bet.ProfitabilityLevel)
	assert.Equal(t, StatusActive, bet.Status)
	assert.True(t, bet.TrackedAt.Equal(sampleTrackedAt))
	assert.Nil(t, bet.ResultUpdatedAt)
	assert.Equal(t, "u1\x1fm1\x1f1x2\x1fP1", bet.UniqueKey)
	assert.Equal(t, "Santos", bet.HomeTeam)
	assert.Equal(t, "Grêmio", bet.AwayTeam)
	assert.Equal(t, "Brasileirão", bet.League)
	assert.Equal(t, "2026-03-01", bet.MatchDate)
}

func TestDecodeWideRowThreeStateNulls(t *testing.T) {
	// marcador explícito de NULL
	cells := sampleCells()
	cells["mlCoefficient"] = cellNull()
	cells["profitabilityLevel"] = cellNull()
	bet, err := decodeWideRow(rowFromCells(t, cells))
	require.NoError(t, err)
	assert.Nil(t, bet.MLCoefficient)
	assert.Empty(t, bet.ProfitabilityLevel)

	// célula completamente vazia (coluna ausente) se comporta igual
	cells = sampleCells()
	delete(cells, "mlCoefficient")
	delete(cells, "profitabilityLevel")
	bet, err = decodeWideRow(rowFromCells(t, cells))
	require.NoError(t, err)
	assert.Nil(t, bet.MLCoefficient)
	assert.Empty(t, bet.ProfitabilityLevel)

	// ausente nunca vira zero: double 0.0 presente é valor de verdade
	cells = sampleCells()
	cells["mlCoefficient"] = cellDouble(0)
	bet, err = decodeWideRow(rowFromCells(t, cells))
	require.NoError(t, err)
	require.NotNil(t, bet.MLCoefficient)
	assert.Zero(t, *bet.MLCoefficient)
}

func TestDecodeWideRowDefaultsStatus(t *testing.T) {
	cells := sampleCells()
	cells["status"] = cellNull()
	bet, err := decodeWideRow(rowFromCells(t, cells))
	require.NoError(t, err)
	assert.Equal(t, StatusActive, bet.Status)
}

func TestDecodeWideRowRejectsWrongWidth(t *testing.T) {
	row := rowFromCells(t, sampleCells())
	_, err := decodeWideRow(row[:wideColumnCount-1])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cells")
}

func TestWideInsertIfAbsentWinsRace(t *testing.T) {
	exec := &fakeExec{fn: func(_ string, params map[string]tableservice.Value) ([]tableservice.ResultSet, error) {
		// releitura devolve a linha com o id do próprio insert
		return []tableservice.ResultSet{
			{Columns: wideColumns[:], Rows: [][]tableservice.Cell{rowFromCells(t, sampleCells())}},
		}, nil
	}}
	w := NewWideTable(exec)

	bet := newBet("bet-1", "u1", "m1")
	stored, existed, err := w.InsertIfAbsent(context.Background(), bet)
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, "bet-1", stored.ID)
}

func TestWideInsertIfAbsentLosesRace(t *testing.T) {
	cells := sampleCells()
	cells["id"] = cellText("someone-elses-id")
	exec := &fakeExec{fn: func(_ string, _ map[string]tableservice.Value) ([]tableservice.ResultSet, error) {
		return []tableservice.ResultSet{
			{Columns: wideColumns[:], Rows: [][]tableservice.Cell{rowFromCells(t, cells)}},
		}, nil
	}}
	w := NewWideTable(exec)

	stored, existed, err := w.InsertIfAbsent(context.Background(), newBet("bet-1", "u1", "m1"))
	require.NoError(t, err)
	assert.True(t, existed, "id diferente na releitura significa corrida perdida")
	assert.Equal(t, "someone-elses-id", stored.ID)
}

func TestWideListByOwnerPagination(t *testing.T) {
	mkRow := func(id string) []tableservice.Cell {
		cells := sampleCells()
		cells["id"] = cellText(id)
		return rowFromCells(t, cells)
	}
	exec := &fakeExec{fn: func(_ string, params map[string]tableservice.Value) ([]tableservice.ResultSet, error) {
		// o backend pede limit+1 pra detectar próxima página
		assert.Equal(t, "3", params["$limit"].Value)
		return []tableservice.ResultSet{
			{Columns: []string{"total"}, Rows: [][]tableservice.Cell{{cellUint64(5)}}},
			{Columns: wideColumns[:], Rows: [][]tableservice.Cell{mkRow("c"), mkRow("b"), mkRow("a")}},
		}, nil
	}}
	w := NewWideTable(exec)

	res, err := w.ListByOwner(context.Background(), "u1", ListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	assert.True(t, res.HasMore)
	require.Len(t, res.Bets, 2)
	assert.Equal(t, "c", res.Bets[0].ID)
	assert.Equal(t, "b", res.Bets[1].ID)
}

func TestWideListByOwnerStatusFilter(t *testing.T) {
	exec := &fakeExec{fn: func(query string, params map[string]tableservice.Value) ([]tableservice.ResultSet, error) {
		assert.Contains(t, query, "status = $status")
		assert.Equal(t, StatusWon, params["$status"].Value)
		return []tableservice.ResultSet{
			{Columns: []string{"total"}, Rows: [][]tableservice.Cell{{cellUint64(0)}}},
			{Columns: wideColumns[:], Rows: nil},
		}, nil
	}}
	w := NewWideTable(exec)

	res, err := w.ListByOwner(context.Background(), "u1", ListOptions{Status: StatusWon})
	require.NoError(t, err)
	assert.Zero(t, res.Total)
	assert.False(t, res.HasMore)
	assert.Empty(t, res.Bets)
}

func TestWideDeleteByIDForOwner(t *testing.T) {
	found := true
	exec := &fakeExec{fn: func(_ string, _ map[string]tableservice.Value) ([]tableservice.ResultSet, error) {
		if !found {
			return []tableservice.ResultSet{{Rows: nil}}, nil
		}
		return []tableservice.ResultSet{
			{Columns: []string{"id"}, Rows: [][]tableservice.Cell{{cellText("bet-1")}}},
		}, nil
	}}
	w := NewWideTable(exec)

	deleted, err := w.DeleteByIDForOwner(context.Background(), "bet-1", "u1")
	require.NoError(t, err)
	assert.True(t, deleted)

	found = false
	deleted, err = w.DeleteByIDForOwner(context.Background(), "bet-1", "u2")
	require.NoError(t, err)
	assert.False(t, deleted, "linha de outro dono não é deletada")
}

func TestWideGetByIDNotFound(t *testing.T) {
	exec := &fakeExec{fn: func(_ string, _ map[string]tableservice.Value) ([]tableservice.ResultSet, error) {
		return []tableservice.ResultSet{{Rows: nil}}, nil
	}}
	w := NewWideTable(exec)

	_, err := w.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWideMapsTransportFailureToUnavailable(t *testing.T) {
	exec := &fakeExec{fn: func(_ string, _ map[string]tableservice.Value) ([]tableservice.ResultSet, error) {
		return nil, fmt.Errorf("http 503: %w", tableservice.ErrUnavailable)
	}}
	w := NewWideTable(exec)

	_, err := w.GetByID(context.Background(), "bet-1")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, _, err = w.InsertIfAbsent(context.Background(), newBet("bet-1", "u1", "m1"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestWideDoesNotMapQueryErrorToUnavailable(t *testing.T) {
	exec := &fakeExec{fn: func(_ string, _ map[string]tableservice.Value) ([]tableservice.ResultSet, error) {
		return nil, errors.New("syntax error near SELECT")
	}}
	w := NewWideTable(exec)

	_, err := w.GetByID(context.Background(), "bet-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
}
