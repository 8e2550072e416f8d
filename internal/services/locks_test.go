package services

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripedLock(t *testing.T) {
	var l stripedLock

	assert.Same(t, l.forKey("req-1"), l.forKey("req-1"))

	seen := make(map[interface{}]bool)
	for i := 0; i < 10000; i++ {
		seen[l.forKey("req-"+strconv.Itoa(i))] = true
	}
	assert.LessOrEqual(t, len(seen), lockStripes)
	assert.Greater(t, len(seen), 1)
}
