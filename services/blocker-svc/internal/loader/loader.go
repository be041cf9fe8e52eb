// Package loader reads a blocking instance from disk.
//
// Two layouts are understood:
//
//   - a directory holding node.csv, link.csv and service.txt
//   - an .xlsx workbook with the sheets nodes, links and service
//
// Both share the same columns. link data is addressed by header name, so
// column order is free and extra columns are ignored.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"netblock/pkg/apperror"
	"netblock/pkg/domain"
	"netblock/pkg/logger"
)

// Supported formats.
const (
	FormatAuto = ""
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// File and sheet names.
const (
	NodeFile    = "node.csv"
	LinkFile    = "link.csv"
	ServiceFile = "service.txt"

	NodeSheet    = "nodes"
	LinkSheet    = "links"
	ServiceSheet = "service"
)

// Link columns.
const (
	ColLinkID   = "LinkId"
	ColSrcNode  = "srcNodeId"
	ColSrcIntf  = "srcIntfId"
	ColDstNode  = "dstNodeId"
	ColDstIntf  = "dstIntfId"
	ColCapacity = "bandwidth"
	ColCost     = "cost"
)

// Loader reads one network.
type Loader interface {
	Load(ctx context.Context, path string) (*domain.Network, error)
}

// For picks a loader for path. With FormatAuto a directory is read as CSV
// and a .xlsx file as a workbook.
func For(path, format string) (Loader, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return CSV{}, nil
	case FormatXLSX:
		return XLSX{}, nil
	case FormatAuto, "auto":
	default:
		return nil, apperror.New(apperror.CodeInvalidArgument, fmt.Sprintf("unknown input format %q", format)).
			WithField("input.format")
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeMalformedInput, "cannot open input").
			WithDetails("file", path)
	}
	if info.IsDir() {
		return CSV{}, nil
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return XLSX{}, nil
	}
	return nil, apperror.Malformed("input must be a directory or an .xlsx workbook").
		WithDetails("file", path)
}

// Load reads path with the loader chosen by For.
func Load(ctx context.Context, path, format string) (*domain.Network, error) {
	l, err := For(path, format)
	if err != nil {
		return nil, err
	}
	net, err := l.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	req := net.Request()
	logger.WithContext(ctx).Debug("network loaded",
		"path", path,
		"nodes", net.NodeCount(),
		"links", net.LinkCount(),
		"source", req.Source,
		"destination", req.Destination)
	for _, w := range net.Warnings() {
		logger.WithContext(ctx).Warn("input warning", "path", path, "warning", w)
	}
	return net, nil
}

// ================== Table parsing ==================

// table is a header row plus data rows. lines[i] is the 1-based physical
// line (or sheet row) of rows[i] in the source.
type table struct {
	source string
	header []string
	rows   [][]string
	lines  []int
}

// newTable finds the header in all. lines gives the physical line of each
// record; nil means the records are consecutive from line 1.
func newTable(source string, all [][]string, lines []int) (*table, error) {
	if lines == nil {
		lines = make([]int, len(all))
		for i := range lines {
			lines[i] = i + 1
		}
	}
	for i, r := range all {
		if blank(r) {
			continue
		}
		return &table{source: source, header: trimAll(r), rows: all[i+1:], lines: lines[i+1:]}, nil
	}
	return nil, apperror.Malformed("missing header row").WithDetails("file", source)
}

// column finds name in the header, ignoring case.
func (t *table) column(name string, required bool) (int, error) {
	for i, h := range t.header {
		if strings.EqualFold(h, name) {
			return i, nil
		}
	}
	if required {
		return -1, apperror.Malformed(fmt.Sprintf("missing column %q", name)).
			WithDetails("file", t.source).
			WithDetails("header", t.header)
	}
	return -1, nil
}

func (t *table) number(row []string, col, line int, name string) (int64, error) {
	if col < 0 {
		return 0, nil
	}
	if col >= len(row) {
		return 0, rowError(t.source, line, fmt.Sprintf("missing value for %q", name))
	}
	v, err := strconv.ParseInt(strings.TrimSpace(row[col]), 10, 64)
	if err != nil {
		return 0, rowError(t.source, line, fmt.Sprintf("invalid %q value %q", name, row[col])).
			WithDetails("column", name)
	}
	return v, nil
}

func parseNodes(t *table) ([]int64, error) {
	nodes := make([]int64, 0, len(t.rows))
	for i, r := range t.rows {
		if blank(r) {
			continue
		}
		id, err := t.number(r, 0, t.lines[i], t.header[0])
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, id)
	}
	return nodes, nil
}

func parseLinks(t *table) ([]domain.Link, error) {
	var cols [7]int
	columns := []struct {
		name     string
		required bool
	}{
		{ColLinkID, false},
		{ColSrcNode, true},
		{ColSrcIntf, false},
		{ColDstNode, true},
		{ColDstIntf, false},
		{ColCapacity, true},
		{ColCost, true},
	}
	for i, c := range columns {
		idx, err := t.column(c.name, c.required)
		if err != nil {
			return nil, err
		}
		cols[i] = idx
	}

	links := make([]domain.Link, 0, len(t.rows))
	for i, r := range t.rows {
		if blank(r) {
			continue
		}
		line := t.lines[i]
		var v [7]int64
		for j, c := range columns {
			n, err := t.number(r, cols[j], line, c.name)
			if err != nil {
				return nil, err
			}
			v[j] = n
		}
		links = append(links, domain.Link{
			ID:       v[0],
			Head:     v[1],
			HeadIntf: v[2],
			Tail:     v[3],
			TailIntf: v[4],
			Capacity: v[5],
			Cost:     v[6],
		})
	}
	return links, nil
}

// parseService reads "source;destination". A ',' separator is accepted
// too.
func parseService(source string, line int, fields []string) (domain.ServiceRequest, error) {
	if len(fields) == 1 {
		fields = strings.FieldsFunc(fields[0], func(r rune) bool { return r == ';' || r == ',' })
	}
	fields = trimAll(fields)
	for len(fields) > 0 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	if len(fields) != 2 {
		return domain.ServiceRequest{}, rowError(source, line, "service must be \"source;destination\"")
	}
	src, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return domain.ServiceRequest{}, rowError(source, line, fmt.Sprintf("invalid source %q", fields[0]))
	}
	dst, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return domain.ServiceRequest{}, rowError(source, line, fmt.Sprintf("invalid destination %q", fields[1]))
	}
	return domain.ServiceRequest{Source: src, Destination: dst}, nil
}

func rowError(source string, line int, msg string) *apperror.Error {
	return apperror.Malformed(msg).
		WithDetails("file", source).
		WithDetails("row", line)
}

func blank(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func trimAll(r []string) []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))
	}
	return out
}

// build validates the parsed pieces and tags any error with the input path.
func build(path string, nodes []int64, links []domain.Link, req domain.ServiceRequest) (*domain.Network, error) {
	net, err := domain.NewNetwork(nodes, links, req)
	if err != nil {
		var ae *apperror.Error
		if errors.As(err, &ae) {
			return nil, ae.WithDetails("file", path)
		}
		return nil, err
	}
	return net, nil
}
