package dataset

import (
	"context"
	"log/slog"
)

// Normalize produces the normalized form of a freshly ingested table:
//
//   - the quantity column is coerced to numeric, with unparsable values
//     becoming the missing marker (never zero, so mean reductions stay
//     honest),
//   - a Period column is derived from Year and Month, each value carrying a
//     first-of-month ordering key,
//   - rows whose Year/Month pair cannot be parsed are dropped and logged,
//   - when Year or Month is absent the table is marked periodless and the
//     Period column is skipped entirely.
//
// Normalize is idempotent: running it on an already normalized table returns
// an identical table.
func Normalize(ctx context.Context, t *Table, quantityCol string, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}

	out := coerceQuantity(t, quantityCol)

	if idx, ok := out.ColumnIndex(ColPeriod); ok {
		// A Period column is already present: either this table was
		// normalized before, or it is a re-upload of exported data whose
		// labels lost their ordering key and must be re-parsed.
		return revivePeriods(ctx, out, idx, logger)
	}
	if !out.HasColumn(ColYear) || !out.HasColumn(ColMonth) {
		out.periodless = true
		logger.WarnContext(ctx, "year or month column absent, skipping period derivation",
			slog.Bool("has_year", out.HasColumn(ColYear)),
			slog.Bool("has_month", out.HasColumn(ColMonth)))
		return out
	}

	yearIdx, _ := out.ColumnIndex(ColYear)
	monthIdx, _ := out.ColumnIndex(ColMonth)

	kept := NewTable(append(out.Columns(), ColPeriod))
	dropped := 0
	for i, row := range out.rows {
		period, err := ParsePeriod(i, row[yearIdx], row[monthIdx])
		if err != nil {
			dropped++
			logger.WarnContext(ctx, "dropping row with unparsable period",
				slog.Int("row", i),
				slog.String("error", err.Error()))
			continue
		}
		nr := make([]Value, 0, len(row)+1)
		nr = append(nr, row...)
		nr = append(nr, PeriodValue(period))
		kept.rows = append(kept.rows, nr)
	}

	logger.InfoContext(ctx, "normalized table",
		slog.Int("rows", kept.Len()),
		slog.Int("dropped_rows", dropped))

	return kept
}

// revivePeriods restores the chronological ordering key of a Period column
// that came in as plain text, the shape a re-uploaded export has. Cells that
// already carry a key pass through; labels that no longer parse drop their
// row, the same policy as Year/Month derivation.
func revivePeriods(ctx context.Context, t *Table, idx int, logger *slog.Logger) *Table {
	needsRevival := false
	for _, row := range t.rows {
		if row[idx].Kind != ValuePeriod {
			needsRevival = true
			break
		}
	}
	if !needsRevival {
		return t
	}

	kept := NewTable(t.cols)
	dropped := 0
	for i, row := range t.rows {
		cell := row[idx]
		if cell.Kind == ValuePeriod {
			kept.rows = append(kept.rows, row)
			continue
		}
		period, err := ParsePeriodLabel(cell.String())
		if err != nil {
			dropped++
			logger.WarnContext(ctx, "dropping row with unparsable period label",
				slog.Int("row", i),
				slog.String("label", cell.String()))
			continue
		}
		nr := append([]Value(nil), row...)
		nr[idx] = PeriodValue(period)
		kept.rows = append(kept.rows, nr)
	}

	logger.InfoContext(ctx, "restored period ordering keys",
		slog.Int("rows", kept.Len()),
		slog.Int("dropped_rows", dropped))
	return kept
}

// coerceQuantity rewrites the quantity column so every cell is numeric or
// missing. Tables without the column pass through untouched; schema
// validation happens later, at the stage that needs the column.
func coerceQuantity(t *Table, quantityCol string) *Table {
	idx, ok := t.ColumnIndex(quantityCol)
	if !ok {
		return t.clone()
	}

	out := NewTable(t.cols)
	out.periodless = t.periodless
	out.rows = make([][]Value, len(t.rows))
	for i, row := range t.rows {
		cell := row[idx]
		var coerced Value
		if f, ok := cell.Float(); ok {
			coerced = Number(f)
		} else {
			coerced = Missing()
		}
		if coerced.Equal(cell) && cell.Kind == coerced.Kind {
			out.rows[i] = row
			continue
		}
		nr := append([]Value(nil), row...)
		nr[idx] = coerced
		out.rows[i] = nr
	}
	return out
}
