package loader

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"netblock/pkg/apperror"
	"netblock/pkg/domain"
)

// CSV reads the directory layout.
type CSV struct{}

// Load reads node.csv, link.csv and service.txt from dir.
func (CSV) Load(ctx context.Context, dir string) (*domain.Network, error) {
	nodeRows, nodeLines, err := readCSV(filepath.Join(dir, NodeFile))
	if err != nil {
		return nil, err
	}
	nt, err := newTable(NodeFile, nodeRows, nodeLines)
	if err != nil {
		return nil, err
	}
	nodes, err := parseNodes(nt)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "loading canceled")
	}

	linkRows, linkLines, err := readCSV(filepath.Join(dir, LinkFile))
	if err != nil {
		return nil, err
	}
	lt, err := newTable(LinkFile, linkRows, linkLines)
	if err != nil {
		return nil, err
	}
	links, err := parseLinks(lt)
	if err != nil {
		return nil, err
	}

	req, err := readService(filepath.Join(dir, ServiceFile))
	if err != nil {
		return nil, err
	}

	return build(dir, nodes, links, req)
}

// readCSV returns the records of path with the physical line each one
// starts on. encoding/csv skips blank lines, so record indexes alone would
// drift from the file.
func readCSV(path string) ([][]string, []int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, apperror.Wrap(err, apperror.CodeMalformedInput, "cannot open input file").
			WithDetails("file", filepath.Base(path))
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var (
		rows  [][]string
		lines []int
	)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, lines, nil
		}
		if err != nil {
			e := apperror.Wrap(err, apperror.CodeMalformedInput, "cannot parse csv").
				WithDetails("file", filepath.Base(path))
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				e = e.WithDetails("row", pe.Line)
			}
			return nil, nil, e
		}
		line, _ := r.FieldPos(0)
		rows = append(rows, rec)
		lines = append(lines, line)
	}
}

// readService reads the first non-empty line of service.txt.
func readService(path string) (domain.ServiceRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.ServiceRequest{}, apperror.Wrap(err, apperror.CodeMalformedInput, "cannot open input file").
			WithDetails("file", ServiceFile)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		if text == "" {
			continue
		}
		return parseService(ServiceFile, line, []string{text})
	}
	if err := sc.Err(); err != nil {
		return domain.ServiceRequest{}, apperror.Wrap(err, apperror.CodeMalformedInput, "cannot read input file").
			WithDetails("file", ServiceFile)
	}
	return domain.ServiceRequest{}, apperror.Malformed("service file is empty").WithDetails("file", ServiceFile)
}
