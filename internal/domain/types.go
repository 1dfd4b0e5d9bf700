package domain

type SortMode string

const (
	SortBySize   SortMode = "size"
	SortByName   SortMode = "name"
	SortByScript SortMode = "script"
)

func ParseSortMode(value string, fallback SortMode) SortMode {
	switch SortMode(value) {
	case SortBySize, SortByName, SortByScript:
		return SortMode(value)
	default:
		return fallback
	}
}
