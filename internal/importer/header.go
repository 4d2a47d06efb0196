package importer

const (
	// headerScanRows bounds how deep the header hunt goes. Real register
	// sheets put the header in the first handful of rows, under a title
	// block at most a few rows tall.
	headerScanRows = 12

	// garbledCellLimit rejects merged-cell title rows: a row whose single
	// non-empty cell is this long is a banner, not a header.
	garbledCellLimit = 120

	// minHeaderColumns is the least usable header width. One recognizable
	// column is not a table.
	minHeaderColumns = 2
)

// detectHeader scans the first rows of a sheet for the most plausible header
// row: the one with the most non-empty sanitized cells. Returns the header
// row index along with its sanitized cells, or ok=false when nothing in the
// window qualifies.
func detectHeader(rows [][]string) (headerIdx int, header []string, ok bool) {
	limit := len(rows)
	if limit > headerScanRows {
		limit = headerScanRows
	}

	bestIdx := -1
	bestCount := 0
	var bestCells []string

	for i := 0; i < limit; i++ {
		cells := make([]string, len(rows[i]))
		count := 0
		var only string
		for j, cell := range rows[i] {
			cells[j] = sanitizeCell(cell)
			if cells[j] != "" {
				count++
				only = cells[j]
			}
		}

		// A lone wide cell is a merged title banner, not a header.
		if count == 1 && len(only) > garbledCellLimit {
			continue
		}

		if count > bestCount {
			bestCount = count
			bestIdx = i
			bestCells = cells
		}
	}

	if bestIdx < 0 || bestCount < minHeaderColumns {
		return 0, nil, false
	}
	return bestIdx, bestCells, true
}

// columnIndex maps normalized header names to their column positions.
type columnIndex map[string]int

func buildColumnIndex(header []string) columnIndex {
	idx := make(columnIndex, len(header))
	for i, cell := range header {
		key := normalizeName(cell)
		if key == "" {
			continue
		}
		// First occurrence wins on duplicate headers.
		if _, exists := idx[key]; !exists {
			idx[key] = i
		}
	}
	return idx
}

// value returns the first non-empty cell matching any of the aliases, in
// alias priority order. Aliases are given pre-normalized.
func (ci columnIndex) value(row []string, aliases ...string) string {
	for _, alias := range aliases {
		col, ok := ci[alias]
		if !ok || col >= len(row) {
			continue
		}
		if v := sanitizeCell(row[col]); v != "" {
			return v
		}
	}
	return ""
}

// isBlankRow reports whether every cell sanitizes to empty.
func isBlankRow(row []string) bool {
	for _, cell := range row {
		if sanitizeCell(cell) != "" {
			return false
		}
	}
	return true
}
