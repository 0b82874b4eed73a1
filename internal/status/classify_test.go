package status

import (
	"testing"

	"github.com/BearBump/ShipWatch/internal/models"
	"github.com/stretchr/testify/require"
)

func TestKeywordClassifier_Classify(t *testing.T) {
	c := Default()

	require.Equal(t, models.StatusDelivered, c.Classify("Pedido entregue ao destinatário"))
	require.Equal(t, models.StatusDelivered, c.Classify("Delivered"))
	require.Equal(t, models.StatusOutForDelivery, c.Classify("Saiu para entrega"))
	require.Equal(t, models.StatusOutForDelivery, c.Classify("OUT FOR DELIVERY"))
	require.Equal(t, models.StatusInTransit, c.Classify("Em trânsito para o centro de distribuição"))
	require.Equal(t, models.StatusInTransit, c.Classify("in transit"))
	require.Equal(t, models.StatusPosted, c.Classify("Objeto postado"))
	require.Equal(t, models.StatusProcessing, c.Classify("Em processamento"))
	require.Equal(t, models.StatusUnknown, c.Classify("something else entirely"))
	require.Equal(t, models.StatusUnknown, c.Classify(""))
}

func TestKeywordClassifier_Precedence(t *testing.T) {
	c := Default()

	// "entregue" встречается и в "saiu para entrega"-подобных текстах;
	// DELIVERED всегда выигрывает у менее терминальных статусов.
	require.Equal(t, models.StatusDelivered, c.Classify("Saiu para entrega e foi entregue"))
	require.Equal(t, models.StatusDelivered, c.Classify("posted, in transit, delivered"))
	require.Equal(t, models.StatusOutForDelivery, c.Classify("postado, saiu para entrega"))
}
