package sig

import (
	"fmt"

	"fortio.org/safecast"
)

type arena[T any] struct {
	data []T
}

// Возвращает индекс нового элемента (1-based).
func (a *arena[T]) allocate(value T) uint32 {
	a.data = append(a.data, value)
	id, err := safecast.Conv[uint32](len(a.data))
	if err != nil {
		panic(fmt.Errorf("arena overflow: %w", err))
	}
	return id
}

func (a *arena[T]) get(index uint32) *T {
	if index == 0 || int(index) > len(a.data) {
		return nil
	}
	return &a.data[index-1]
}

func (a *arena[T]) len() uint32 {
	return uint32(len(a.data))
}
