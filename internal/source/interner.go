package source

import (
	"slices"
)

type StringID uint32

const NoStringID StringID = 0

// Interner deduplicates strings behind dense IDs. Snapshot files encode all
// names through one table built by an Interner, so identical names are stored
// once per file.
type Interner struct {
	byID  []string            // индекс -> строка (byID[0] = "" для NoStringID)
	index map[string]StringID // строка -> ID
}

func NewInterner() *Interner {
	return &Interner{
		byID:  []string{""},
		index: map[string]StringID{"": 0},
	}
}

// Intern вставляет строку и возвращает её ID.
// Если строка уже есть, возвращает существующий ID.
func (i *Interner) Intern(s string) StringID {
	if id, ok := i.index[s]; ok {
		return id
	}

	// Собственная копия, чтобы не держать исходный буфер.
	cpy := string([]byte(s))
	id := StringID(len(i.byID))
	i.byID = append(i.byID, cpy)
	i.index[cpy] = id
	return id
}

// Lookup возвращает строку по ID.
// Если ID не валиден, возвращает пустую строку и false.
func (i *Interner) Lookup(id StringID) (string, bool) {
	if !i.Has(id) {
		return "", false
	}
	return i.byID[id], true
}

// MustLookup возвращает строку по ID. Паникует на невалидном ID.
func (i *Interner) MustLookup(id StringID) string {
	s, ok := i.Lookup(id)
	if !ok {
		panic("invalid string ID")
	}
	return s
}

// Has проверяет, валиден ли ID.
func (i *Interner) Has(id StringID) bool {
	return int(id) < len(i.byID)
}

// Len возвращает количество строк, включая NoStringID. Не меньше 1.
func (i *Interner) Len() int {
	return len(i.byID)
}

// Snapshot возвращает копию всех строк в порядке ID.
func (i *Interner) Snapshot() []string {
	return slices.Clone(i.byID)
}
