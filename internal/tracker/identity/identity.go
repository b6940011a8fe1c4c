package identity

import "strings"

// separator é o ASCII unit separator (0x1F). Os identificadores vindos do
// provedor de auth e do feed contêm "_" e ":" (ex: "user_2abc", "over_2.5"),
// então um delimitador imprimível não garante unicidade da chave composta.
const separator = "\x1f"

// UniqueKey deriva a chave canônica de deduplicação de um tracked bet:
// mesmo usuário + mesma partida + mesmo mercado + mesmo resultado => mesma chave.
// Função pura; o cliente e o servidor calculam a chave com o mesmo código.
func UniqueKey(userID, matchID, betType, betOutcome string) string {
	return strings.Join([]string{userID, matchID, betType, betOutcome}, separator)
}
