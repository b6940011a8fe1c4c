// Package value classifica o quanto a odd de um bookmaker é melhor que o
// preço justo estimado pelo modelo. Os limiares variaram entre revisões da
// UI, então a política é injetada por configuração em vez de fixada aqui.
package value

// Level é o snapshot de lucratividade gravado junto com o tracked bet
type Level = string

const (
	Excellent Level = "excellent"
	Good      Level = "good"
	Fair      Level = "fair"
	Poor      Level = "poor"
)

// Thresholds são os cortes da razão odds/coeficiente ML
type Thresholds struct {
	Excellent float64 // ex: 1.15 => odd 15%+ acima do preço do modelo
	Good      float64 // ex: 1.08
	Fair      float64 // ex: 1.02
}

// DefaultThresholds é a política vigente da última revisão da UI
func DefaultThresholds() Thresholds {
	return Thresholds{Excellent: 1.15, Good: 1.08, Fair: 1.02}
}

// Classifier aplica os limiares configurados
type Classifier struct{ t Thresholds }

func NewClassifier(t Thresholds) *Classifier { return &Classifier{t: t} }

// Classify compara a odd do bookmaker com o coeficiente do modelo.
// Só há valor quando a odd do bookmaker paga MAIS que o preço justo
// (coeficiente ML menor = probabilidade maior).
func (c *Classifier) Classify(mlCoefficient, bookmakerOdds float64) Level {
	if mlCoefficient <= 0 || bookmakerOdds <= 0 {
		return Poor
	}
	if bookmakerOdds <= mlCoefficient {
		return Poor
	}

	ratio := bookmakerOdds / mlCoefficient
	switch {
	case ratio >= c.t.Excellent:
		return Excellent
	case ratio >= c.t.Good:
		return Good
	case ratio >= c.t.Fair:
		return Fair
	default:
		return Poor
	}
}

// FromProbability classifica pela probabilidade do modelo sozinha
// (coeficiente implícito 1/prob), usada quando não há odd de referência
func FromProbability(prob float64) Level {
	if prob <= 0 || prob > 1 {
		return Poor
	}
	coef := 1 / prob
	switch {
	case coef <= 1.4:
		return Excellent
	case coef <= 2.0:
		return Good
	case coef <= 3.5:
		return Fair
	default:
		return Poor
	}
}
