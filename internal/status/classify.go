package status

import (
	"strings"

	"github.com/BearBump/ShipWatch/internal/models"
)

// Classifier превращает сырой текст статуса источника в канонический статус.
type Classifier interface {
	Classify(raw string) string
}

type rule struct {
	status   string
	keywords []string
}

// KeywordClassifier ищет ключевые слова в тексте без учёта регистра.
// Порядок правил значим: DELIVERED не должен перекрываться более
// "специфичным" ключом ниже по списку.
type KeywordClassifier struct {
	rules []rule
}

// Default покрывает словарь источников (pt-BR + английский).
func Default() *KeywordClassifier {
	return &KeywordClassifier{rules: []rule{
		{models.StatusDelivered, []string{"entregue", "delivered"}},
		{models.StatusOutForDelivery, []string{"saiu para entrega", "out for delivery"}},
		{models.StatusInTransit, []string{"trânsito", "transito", "transit"}},
		{models.StatusPosted, []string{"postado", "posted"}},
		{models.StatusProcessing, []string{"processamento", "processing"}},
	}}
}

func (c *KeywordClassifier) Classify(raw string) string {
	low := strings.ToLower(raw)
	for _, r := range c.rules {
		for _, kw := range r.keywords {
			if strings.Contains(low, kw) {
				return r.status
			}
		}
	}
	return models.StatusUnknown
}
