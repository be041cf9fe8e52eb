package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"netblock/pkg/domain"
)

// NetworkHash вычисляет хеш сети для использования как ключ кэша.
// Порядок узлов и связей во входных данных на хеш не влияет.
func NetworkHash(net *domain.Network) string {
	if net == nil {
		return ""
	}

	hash := sha256.Sum256(networkToCanonical(net))
	return hex.EncodeToString(hash[:16])
}

// networkToCanonical создаёт детерминированное представление сети.
// LinkId и интерфейсы в редукции не участвуют и в хеш не входят.
func networkToCanonical(net *domain.Network) []byte {
	nodes := net.Nodes()
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })

	links := net.Links()
	sort.Slice(links, func(i, j int) bool {
		if links[i].Head != links[j].Head {
			return links[i].Head < links[j].Head
		}
		return links[i].Tail < links[j].Tail
	})

	var b strings.Builder
	req := net.Request()
	fmt.Fprintf(&b, "s:%d,t:%d;", req.Source, req.Destination)

	for _, id := range nodes {
		fmt.Fprintf(&b, "n:%d;", id)
	}
	for _, l := range links {
		fmt.Fprintf(&b, "l:%d:%d:%d:%d;", l.Head, l.Tail, l.Capacity, l.Cost)
	}

	return []byte(b.String())
}

// BuildSolveKey строит ключ кэша для результата решения.
// ceiling <= 0 означает верхнюю границу по умолчанию (сумма стоимостей).
func BuildSolveKey(networkHash string, targetFlow, ceiling int64) string {
	if ceiling < 0 {
		ceiling = 0
	}
	return fmt.Sprintf("solve:%s:%d:%d", networkHash, targetFlow, ceiling)
}
