package importer

// KeyFunc extracts the natural key used to decide insert vs update. An empty
// result excludes the record from the batch.
type KeyFunc func(Record) string

// Operation is one idempotent insert-or-update-by-key write. Fields carries
// only the keys present on the source record.
type Operation struct {
	Key    string
	Fields Record
}

// BuildBatch converts normalized records into upsert operations, dropping and
// counting records without a usable key. When the same key appears on several
// rows of one file the operations collapse into one, later rows winning field
// by field, so re-running a file can never duplicate records.
func BuildBatch(records []Record, key KeyFunc) ([]Operation, int) {
	ops := make([]Operation, 0, len(records))
	index := make(map[string]int, len(records))
	skipped := 0

	for _, record := range records {
		k := key(record)
		if k == "" {
			skipped++
			continue
		}
		if at, ok := index[k]; ok {
			for field, value := range record {
				ops[at].Fields[field] = value
			}
			continue
		}
		index[k] = len(ops)
		ops = append(ops, Operation{Key: k, Fields: record})
	}

	return ops, skipped
}
