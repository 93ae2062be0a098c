package aggregate

import "github.com/perfgo/perfsweep/model"

// Merge combines a previously stored dataset with a newer one. Records of cur
// replace records of prev with the same key; failures of both are kept. The
// datasets are expected to describe the same family.
func Merge(prev, cur model.Dataset) model.Dataset {
	merged := model.Dataset{Family: cur.Family}
	if merged.Family == "" {
		merged.Family = prev.Family
	}

	index := make(map[model.RecordKey]int, len(prev.Records)+len(cur.Records))
	for _, records := range [][]model.MetricRecord{prev.Records, cur.Records} {
		for _, r := range records {
			if i, ok := index[r.Key()]; ok {
				merged.Records[i] = copyRecord(r)
				continue
			}
			index[r.Key()] = len(merged.Records)
			merged.Records = append(merged.Records, copyRecord(r))
		}
	}
	SortRecords(merged.Records)

	merged.Failures = append(merged.Failures, prev.Failures...)
	merged.Failures = append(merged.Failures, cur.Failures...)

	return merged
}
