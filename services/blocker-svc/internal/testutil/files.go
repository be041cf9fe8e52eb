package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"netblock/pkg/domain"
)

// WriteCSVDir writes net in the node.csv/link.csv/service.txt layout into a
// fresh temporary directory and returns its path.
func WriteCSVDir(t testing.TB, net *domain.Network) string {
	t.Helper()
	dir := t.TempDir()

	var nodes strings.Builder
	nodes.WriteString("nodeId\n")
	for _, id := range net.Nodes() {
		fmt.Fprintf(&nodes, "%d\n", id)
	}

	var links strings.Builder
	links.WriteString("LinkId,srcNodeId,srcIntfId,dstNodeId,dstIntfId,bandwidth,cost\n")
	for i, l := range net.Links() {
		id := l.ID
		if id == 0 {
			id = int64(i + 1)
		}
		fmt.Fprintf(&links, "%d,%d,%d,%d,%d,%d,%d\n", id, l.Head, l.HeadIntf, l.Tail, l.TailIntf, l.Capacity, l.Cost)
	}

	req := net.Request()
	files := map[string]string{
		"node.csv":    nodes.String(),
		"link.csv":    links.String(),
		"service.txt": fmt.Sprintf("%d;%d\n", req.Source, req.Destination),
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}
