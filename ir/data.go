package ir

// DataID identifies a data segment.
type DataID = ID[Data]

// Data is a data segment. An active segment is copied into Memory at
// Offset on instantiation; a passive one is used by memory.init.
type Data struct {
	Name    string
	Value   []byte
	Offset  ConstExpr
	Memory  MemoryID
	Passive bool

	explicitMemory bool
	id             DataID
}

// ID returns the segment's identifier.
func (d *Data) ID() DataID { return d.id }

// DataSegments is the arena of data segments.
type DataSegments struct {
	Arena[Data]
}

func (ds *DataSegments) add(d *Data) DataID {
	d.id = ds.Alloc(d)
	return d.id
}

// AddActive creates a segment copied into mem at offset.
func (ds *DataSegments) AddActive(mem MemoryID, offset ConstExpr, value []byte) DataID {
	return ds.add(&Data{Memory: mem, Offset: offset, Value: value})
}

// AddPassive creates a passive segment.
func (ds *DataSegments) AddPassive(value []byte) DataID {
	return ds.add(&Data{Passive: true, Value: value})
}
