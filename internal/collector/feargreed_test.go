package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/cryptostrat/internal/clock"
)

func TestFearGreedCollector_Name(t *testing.T) {
	c := NewFearGreedCollector(NewRESTClient("fg_test", 50), clock.NewSystem(), nil)
	assert.Equal(t, "fear_greed", c.Name())
}
