package walker

import "github.com/joe/dropsentry/pkg/entry"

// CrossReference emits a record for every flat-list file whose name is in seen.
// Matching is by name only, so same-named files from different folders are
// indistinguishable.
func CrossReference(files []entry.FileObject, seen *SeenSet) []Record {
	if seen == nil || seen.Len() == 0 {
		return nil
	}

	var records []Record

	for _, f := range files {
		if seen.Contains(f.Name) {
			records = append(records, NewRecord(f))
		}
	}

	return records
}

// InputRecords normalizes every file of a file-input selection.
func InputRecords(files []entry.FileObject) []Record {
	if len(files) == 0 {
		return nil
	}

	records := make([]Record, 0, len(files))
	for _, f := range files {
		records = append(records, NewRecord(f))
	}

	return records
}
