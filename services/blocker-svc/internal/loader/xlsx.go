package loader

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"netblock/pkg/apperror"
	"netblock/pkg/domain"
)

// XLSX reads the workbook layout.
type XLSX struct{}

// Load reads the nodes, links and service sheets of the workbook at path.
func (XLSX) Load(ctx context.Context, path string) (*domain.Network, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeMalformedInput, "cannot open workbook").
			WithDetails("file", path)
	}
	defer f.Close()

	nodeRows, err := sheetRows(f, NodeSheet)
	if err != nil {
		return nil, err
	}
	nt, err := newTable(NodeSheet, nodeRows, nil)
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

	linkRows, err := sheetRows(f, LinkSheet)
	if err != nil {
		return nil, err
	}
	lt, err := newTable(LinkSheet, linkRows, nil)
	if err != nil {
		return nil, err
	}
	links, err := parseLinks(lt)
	if err != nil {
		return nil, err
	}

	serviceRows, err := sheetRows(f, ServiceSheet)
	if err != nil {
		return nil, err
	}
	req, err := serviceFromRows(serviceRows)
	if err != nil {
		return nil, err
	}

	return build(path, nodes, links, req)
}

// sheetRows finds name among the sheets ignoring case.
func sheetRows(f *excelize.File, name string) ([][]string, error) {
	for _, s := range f.GetSheetList() {
		if strings.EqualFold(s, name) {
			rows, err := f.GetRows(s)
			if err != nil {
				return nil, apperror.Wrap(err, apperror.CodeMalformedInput, "cannot read sheet").
					WithDetails("file", name)
			}
			return rows, nil
		}
	}
	return nil, apperror.Malformed(fmt.Sprintf("missing sheet %q", name)).
		WithDetails("file", name).
		WithDetails("sheets", f.GetSheetList())
}

// serviceFromRows accepts either a "source;destination" cell or a
// source/destination pair. The first row may be a header.
func serviceFromRows(rows [][]string) (domain.ServiceRequest, error) {
	var header error
	for i, r := range rows {
		if blank(r) {
			continue
		}
		req, err := parseService(ServiceSheet, i+1, r)
		if err == nil {
			return req, nil
		}
		if header != nil {
			return domain.ServiceRequest{}, err
		}
		header = err
	}
	if header != nil {
		return domain.ServiceRequest{}, header
	}
	return domain.ServiceRequest{}, apperror.Malformed("service sheet is empty").WithDetails("file", ServiceSheet)
}

// WriteWorkbook writes net in the layout XLSX reads.
func WriteWorkbook(w io.Writer, net *domain.Network) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", NodeSheet); err != nil {
		return err
	}
	_ = f.SetCellValue(NodeSheet, "A1", "NodeId")
	for i, id := range net.Nodes() {
		_ = f.SetCellValue(NodeSheet, cellAddr("A", i+2), id)
	}

	if _, err := f.NewSheet(LinkSheet); err != nil {
		return err
	}
	header := []any{ColLinkID, ColSrcNode, ColSrcIntf, ColDstNode, ColDstIntf, ColCapacity, ColCost}
	if err := f.SetSheetRow(LinkSheet, "A1", &header); err != nil {
		return err
	}
	for i, l := range net.Links() {
		row := []any{l.ID, l.Head, l.HeadIntf, l.Tail, l.TailIntf, l.Capacity, l.Cost}
		if err := f.SetSheetRow(LinkSheet, cellAddr("A", i+2), &row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(ServiceSheet); err != nil {
		return err
	}
	req := net.Request()
	service := []any{"source", "destination"}
	_ = f.SetSheetRow(ServiceSheet, "A1", &service)
	service = []any{req.Source, req.Destination}
	_ = f.SetSheetRow(ServiceSheet, "A2", &service)

	return f.Write(w)
}

func cellAddr(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
