package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDocument(t *testing.T) {
	for _, empty := range []string{"", "  ", "null", "{}", `{"unrelated": 1}`} {
		p, err := decodeDocument([]byte(empty))
		require.NoError(t, err, "payload %q", empty)
		assert.Nil(t, p, "payload %q", empty)
	}

	p, err := decodeDocument([]byte(`{"pump_active": true, "food_reservoir_pct": 42.5}`))
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, *p.PumpActive)
	assert.Equal(t, 42.5, *p.FoodReservoirPct)
	assert.Nil(t, p.WaterBowlWet, "absent fields stay nil")

	_, err = decodeDocument([]byte(`{"pump_active": "yes"`))
	assert.Error(t, err)
}
