package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Row is one parsed CSV data line.
type Row struct {
	Line            int
	NodeID          string
	ScopeIdentifier string
	InputType       string
	Date            string
	Time            string
	Payload         Payload
}

// RowError reports a CSV line that could not be read.
type RowError struct {
	Line int    `json:"line"`
	Err  string `json:"error"`
}

// reserved header names, squashed.
const (
	colNode      = "nodeid"
	colScope     = "scopeidentifier"
	colInputType = "inputtype"
	colDate      = "date"
	colTime      = "time"
)

type column struct {
	name     string
	reserved string
	unit     string
}

// parseHeader reads "name" or "name (unit)".
func parseHeader(h string) column {
	h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	var unit string
	if open := strings.LastIndex(h, "("); open > 0 && strings.HasSuffix(h, ")") {
		unit = strings.TrimSpace(h[open+1 : len(h)-1])
		h = strings.TrimSpace(h[:open])
	}
	c := column{name: h, unit: unit}
	switch squash(h) {
	case colNode, "node":
		c.reserved = colNode
	case colScope, "scope", "scopeid":
		c.reserved = colScope
	case colInputType:
		c.reserved = colInputType
	case colDate:
		c.reserved = colDate
	case colTime:
		c.reserved = colTime
	}
	return c
}

// ReadCSV parses a header row followed by data rows. Reserved columns
// (nodeId, scopeIdentifier, inputType, date, time) fill the row identity;
// every other non-empty cell becomes a payload value. A header of the form
// "wasteMass (t)" attaches a unit to its column.
//
// Malformed lines are returned as RowErrors and do not stop the read; an
// unreadable header is a hard error.
func ReadCSV(r io.Reader) ([]Row, []RowError, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading csv header: %w", err)
	}
	cols := make([]column, len(header))
	for i, h := range header {
		cols[i] = parseHeader(h)
	}

	var rows []Row
	var rowErrs []RowError
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return rows, rowErrs, fmt.Errorf("reading csv: %w", err)
			}
			rowErrs = append(rowErrs, RowError{Line: perr.StartLine, Err: perr.Err.Error()})
			continue
		}
		line, _ := cr.FieldPos(0)
		if len(record) != len(cols) {
			rowErrs = append(rowErrs, RowError{
				Line: line,
				Err:  fmt.Sprintf("expected %d fields, got %d", len(cols), len(record)),
			})
			continue
		}
		rows = append(rows, buildRow(line, cols, record))
	}
	return rows, rowErrs, nil
}

func buildRow(line int, cols []column, record []string) Row {
	row := Row{Line: line, Payload: Payload{Values: map[string]any{}, Units: map[string]string{}}}
	for i, cell := range record {
		cell = strings.TrimSpace(cell)
		c := cols[i]
		switch c.reserved {
		case colNode:
			row.NodeID = cell
		case colScope:
			row.ScopeIdentifier = cell
		case colInputType:
			row.InputType = cell
		case colDate:
			row.Date = cell
		case colTime:
			row.Time = cell
		default:
			if cell == "" || c.name == "" {
				continue
			}
			row.Payload.Values[c.name] = cell
			if c.unit != "" {
				row.Payload.Units[c.name] = c.unit
			}
		}
	}
	return row
}
