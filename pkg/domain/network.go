package domain

import (
	"fmt"
	"math"

	"netblock/pkg/apperror"
)

// LinkKey уникальный ключ связи (head -> tail)
type LinkKey struct {
	Head int64 `json:"head"`
	Tail int64 `json:"tail"`
}

// String возвращает строковое представление ключа связи
func (k LinkKey) String() string {
	return fmt.Sprintf("%d->%d", k.Head, k.Tail)
}

// Link направленная связь сети
type Link struct {
	ID       int64 // LinkId из входных данных, в редукции не участвует
	Head     int64
	Tail     int64
	HeadIntf int64
	TailIntf int64
	Capacity int64
	Cost     int64 // стоимость блокировки
}

// Key возвращает ключ связи
func (l Link) Key() LinkKey {
	return LinkKey{Head: l.Head, Tail: l.Tail}
}

// ServiceRequest пара исток/сток
type ServiceRequest struct {
	Source      int64
	Destination int64
}

// Network неизменяемое описание экземпляра задачи.
// После NewNetwork изменить сеть нельзя: все аксессоры возвращают копии.
type Network struct {
	nodes    []int64
	nodeSet  map[int64]struct{}
	links    []Link
	index    map[LinkKey]int
	request  ServiceRequest
	warnings []string

	totalCost     int64
	totalCapacity int64
}

// NewNetwork проверяет входные данные и строит сеть.
// Все нарушения собираются и возвращаются одной ошибкой MALFORMED_INPUT.
func NewNetwork(nodes []int64, links []Link, req ServiceRequest) (*Network, error) {
	ve := apperror.NewValidationErrors()

	n := &Network{
		nodes:   make([]int64, 0, len(nodes)),
		nodeSet: make(map[int64]struct{}, len(nodes)),
		links:   make([]Link, 0, len(links)),
		index:   make(map[LinkKey]int, len(links)),
		request: req,
	}

	for _, id := range nodes {
		if _, dup := n.nodeSet[id]; dup {
			ve.AddErrorWithField(apperror.CodeDuplicateNode,
				fmt.Sprintf("node %d is listed twice", id), "nodes").
				WithDetails("node", id)
			continue
		}
		n.nodeSet[id] = struct{}{}
		n.nodes = append(n.nodes, id)
	}

	// Исток и сток
	if !n.HasNode(req.Source) {
		ve.AddErrorWithField(apperror.CodeInvalidSource,
			fmt.Sprintf("source %d is not a known node", req.Source), "source").
			WithDetails("node", req.Source)
	}
	if !n.HasNode(req.Destination) {
		ve.AddErrorWithField(apperror.CodeInvalidSink,
			fmt.Sprintf("destination %d is not a known node", req.Destination), "destination").
			WithDetails("node", req.Destination)
	}
	if req.Source == req.Destination {
		ve.AddErrorWithField(apperror.CodeSourceEqualsSink,
			fmt.Sprintf("source and destination are both %d", req.Source), "destination").
			WithDetails("node", req.Source)
	}

	// Связи
	for i, l := range links {
		key := l.Key()
		field := fmt.Sprintf("links[%d]", i)
		ok := true

		for _, end := range [2]int64{l.Head, l.Tail} {
			if !n.HasNode(end) {
				ve.AddErrorWithField(apperror.CodeUnknownNode,
					fmt.Sprintf("link %s references unknown node %d", key, end), field).
					WithDetails("link", key.String()).
					WithDetails("node", end)
				ok = false
			}
		}
		if _, dup := n.index[key]; dup {
			ve.AddErrorWithField(apperror.CodeDuplicateLink,
				fmt.Sprintf("link %s appears more than once", key), field).
				WithDetails("link", key.String())
			ok = false
		}
		if l.Capacity < 0 {
			ve.AddErrorWithField(apperror.CodeNegativeCapacity,
				fmt.Sprintf("link %s has negative capacity %d", key, l.Capacity), field).
				WithDetails("link", key.String())
			ok = false
		}
		if l.Cost < 0 {
			ve.AddErrorWithField(apperror.CodeNegativeCost,
				fmt.Sprintf("link %s has negative cost %d", key, l.Cost), field).
				WithDetails("link", key.String())
			ok = false
		}
		if !ok {
			continue
		}
		if l.Head == l.Tail {
			// Петля никогда не пересекает разрез
			ve.AddWarning(apperror.CodeSelfLoop, fmt.Sprintf("link %s is a self loop", key))
		}

		if n.totalCost > math.MaxInt64-l.Cost || n.totalCapacity > math.MaxInt64-l.Capacity {
			ve.AddErrorWithField(apperror.CodeMalformedInput,
				"total link cost or capacity overflows int64", field).
				WithDetails("link", key.String())
			continue
		}
		n.totalCost += l.Cost
		n.totalCapacity += l.Capacity

		n.index[key] = len(n.links)
		n.links = append(n.links, l)
	}

	if err := ve.Err(apperror.CodeMalformedInput); err != nil {
		return nil, err
	}

	n.warnings = ve.WarningMessages()
	return n, nil
}

// MustNetwork как NewNetwork, но паникует при ошибке (для тестов и примеров)
func MustNetwork(nodes []int64, links []Link, req ServiceRequest) *Network {
	n, err := NewNetwork(nodes, links, req)
	if err != nil {
		panic(err)
	}
	return n
}

// Nodes возвращает копию списка узлов в порядке ввода
func (n *Network) Nodes() []int64 {
	out := make([]int64, len(n.nodes))
	copy(out, n.nodes)
	return out
}

// Links возвращает копию списка связей в порядке ввода
func (n *Network) Links() []Link {
	out := make([]Link, len(n.links))
	copy(out, n.links)
	return out
}

// Link возвращает связь по ключу
func (n *Network) Link(key LinkKey) (Link, bool) {
	i, ok := n.index[key]
	if !ok {
		return Link{}, false
	}
	return n.links[i], true
}

// HasNode проверяет наличие узла
func (n *Network) HasNode(id int64) bool {
	_, ok := n.nodeSet[id]
	return ok
}

// Request возвращает пару исток/сток
func (n *Network) Request() ServiceRequest {
	return n.request
}

// NodeCount количество узлов
func (n *Network) NodeCount() int {
	return len(n.nodes)
}

// LinkCount количество связей
func (n *Network) LinkCount() int {
	return len(n.links)
}

// TotalCost сумма стоимостей блокировки всех связей
func (n *Network) TotalCost() int64 {
	return n.totalCost
}

// TotalCapacity сумма пропускных способностей всех связей
func (n *Network) TotalCapacity() int64 {
	return n.totalCapacity
}

// Warnings предупреждения, найденные при проверке
func (n *Network) Warnings() []string {
	out := make([]string, len(n.warnings))
	copy(out, n.warnings)
	return out
}

// CostOf сумма стоимостей указанных связей; неизвестные ключи игнорируются
func (n *Network) CostOf(keys []LinkKey) int64 {
	var total int64
	for _, k := range keys {
		if l, ok := n.Link(k); ok {
			total += l.Cost
		}
	}
	return total
}

// Without возвращает связи сети за вычетом заблокированных
func (n *Network) Without(blocked []LinkKey) []Link {
	skip := make(map[LinkKey]struct{}, len(blocked))
	for _, k := range blocked {
		skip[k] = struct{}{}
	}
	out := make([]Link, 0, len(n.links))
	for _, l := range n.links {
		if _, ok := skip[l.Key()]; !ok {
			out = append(out, l)
		}
	}
	return out
}
