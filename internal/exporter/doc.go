// Package exporter renders pipeline outputs for download.
//
// This package contains two main components:
//
// CSVWriter: streams tables, aggregations and pivots as CSV with a UTF-8 BOM
// for Excel compatibility and fixed two-decimal number formatting.
//
// XLSXWriter: renders the same shapes as spreadsheet workbooks.
//
// Example usage:
//
//	w := exporter.NewCSVWriter(logger)
//	err := w.WritePivot(httpResponse, pivot)
package exporter
