package publisher

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDealEvent(t *testing.T) {
	event := domain.DealEvent{
		DealID:         "d-1",
		OurDealID:      "our-1",
		AggregatorID:   "agg-1",
		MerchantID:     "m-1",
		OldStatus:      domain.DealStatusInProgress,
		NewStatus:      domain.DealStatusReady,
		Source:         domain.SourceCallback,
		Amount:         1000,
		PlatformProfit: 30,
		OccurredAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	msg, err := EncodeDealEvent(event)

	require.NoError(t, err)
	assert.Equal(t, []byte("agg-1"), msg.Key)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "our-1", decoded["our_deal_id"])
	assert.Equal(t, "IN_PROGRESS", decoded["old_status"])
	assert.Equal(t, "READY", decoded["new_status"])
	assert.Equal(t, "callback", decoded["source"])
	assert.Equal(t, 30.0, decoded["platform_profit"])
}
