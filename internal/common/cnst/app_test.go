package cnst

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppConstants(t *testing.T) {
	assert.Equal(t, "ranger", AppName)
	assert.Equal(t, "ranger", CommandName)
	assert.Equal(t, "ranger.yaml", RangerYaml)
}

func TestEventChannelConstants(t *testing.T) {
	assert.Equal(t, "peatio.events.ranger", EventsChannelPrefix)
	assert.Equal(t, "peatio.events.ranger.*", EventsPattern)
}

func TestBusTypeConstants(t *testing.T) {
	assert.Equal(t, "memory", BusTypeMemory)
	assert.Equal(t, "redis", BusTypeRedis)
}
