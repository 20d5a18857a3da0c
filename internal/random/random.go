// Package random define a fonte de aleatoriedade injetável usada nas escolhas
// de categoria, produto e cupom.
package random

import "math/rand"

// Source devolve um inteiro em [0, n). *rand.Rand satisfaz a interface,
// mas não é seguro para uso concorrente.
type Source interface {
	Intn(n int) int
}

type global struct{}

func (global) Intn(n int) int { return rand.Intn(n) }

// Global usa o gerador padrão de math/rand, seguro para uso concorrente
var Global Source = global{}

// OrDefault retorna src ou Global quando src é nil
func OrDefault(src Source) Source {
	if src == nil {
		return Global
	}
	return src
}
