package cache

import "encoding/json"

// FallbackEntrySize is charged for values that cannot be JSON encoded.
const FallbackEntrySize int64 = 1024

// EstimateSize approximates the memory held by v as twice its JSON length,
// matching a two-byte-per-character string encoding. Values that fail to
// encode (channels, funcs, cyclic marshalers) cost FallbackEntrySize.
func EstimateSize(v any) (size int64) {
	defer func() {
		if recover() != nil {
			size = FallbackEntrySize
		}
	}()

	data, err := json.Marshal(v)
	if err != nil {
		return FallbackEntrySize
	}
	return int64(len(data)) * 2
}
