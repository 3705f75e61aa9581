package sig

// TypeID references a type node inside one module's Types container.
type TypeID uint32

// NoTypeID marks an absent type (missing array key, void result, …).
const NoTypeID TypeID = 0

func (id TypeID) IsValid() bool { return id != NoTypeID }
