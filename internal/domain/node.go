package domain

type NodeRecord struct {
	Size         uint64
	LastModified uint64
	ScriptCount  uint64
	IsAllowed    bool
}

// Contribution is the part of a record that propagates to ancestors.
func (record NodeRecord) Contribution() NodeRecord {
	return NodeRecord{Size: record.Size, ScriptCount: record.ScriptCount}
}

type AggregateStore map[string]NodeRecord

func (store AggregateStore) Clone() AggregateStore {
	clone := make(AggregateStore, len(store))
	for path, record := range store {
		clone[path] = record
	}
	return clone
}

// Child is one entry of a directory listing. Cached is false when the store
// has no record for the path yet.
type Child struct {
	Path   string
	Name   string
	IsDir  bool
	Cached bool
	Record NodeRecord
}

// Unreadable reports an entry the last walk could not list.
func (child Child) Unreadable() bool {
	return child.Cached && !child.Record.IsAllowed
}
