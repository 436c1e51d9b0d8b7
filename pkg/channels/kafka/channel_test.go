package kafka

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateChannel_RequiresBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")

	pub, sub, err := CreateChannel(watermill.NopLogger{}, "events")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
	assert.Nil(t, pub)
	assert.Nil(t, sub)
}
