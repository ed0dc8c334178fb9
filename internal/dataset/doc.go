// Package dataset implements the tabular core of the analytics pipeline:
// ingestion of CSV and workbook bytes into an in-memory Table, normalization
// of the quantity and Period columns, selection-based filtering, and
// group-by aggregation with sum/mean reductions and pivoting.
//
// Tables are immutable by convention. Every stage takes a Table and returns
// a new one, which is what lets the serving layer swap the current dataset
// wholesale under a single lock.
package dataset
