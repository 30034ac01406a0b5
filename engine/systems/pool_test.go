package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolAddressing(t *testing.T) {
	assert.Equal(t, 10, PoolCapacity(4))
	assert.Equal(t, 2, PoolCapacity(0))

	seen := make(map[int]bool)
	for pass := 0; pass <= 4; pass++ {
		for parity := 0; parity < HistoryLength; parity++ {
			slot := SlotIndex(pass, parity)
			assert.False(t, seen[slot], "slot %d used twice", slot)
			seen[slot] = true
			assert.Less(t, slot, PoolCapacity(4))
		}
	}
}

func TestCheckSlot(t *testing.T) {
	pool := NewTargetPool(1)
	assert.Equal(t, 4, pool.Size())
	assert.NoError(t, pool.CheckSlot(0))
	assert.NoError(t, pool.CheckSlot(3))
	assert.ErrorIs(t, pool.CheckSlot(4), ErrSlotOutOfRange)
	assert.ErrorIs(t, pool.CheckSlot(-1), ErrSlotOutOfRange)

	_, err := pool.Image(9)
	assert.ErrorIs(t, err, ErrSlotOutOfRange)
}
