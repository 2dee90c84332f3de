package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

var (
	ErrDuplicateNode = errors.New("duplicate node")
	ErrUnknownDep    = errors.New("unknown dependency")
	ErrCycle         = errors.New("dependency cycle")
)

// Node is one named unit of work in the execution graph.
type Node interface {
	Name() string
	DependsOn() []string
	// Execute computes the node's output and writes it to its slot.
	Execute(ctx context.Context, st *ExecutionState) error
	// Fallback writes the node's documented default after Execute failed.
	Fallback(st *ExecutionState)
}

// step adapts a compute function into a Node that owns exactly one slot.
type step[T any] struct {
	name     string
	deps     []string
	slot     func(*ExecutionState) *Slot[T]
	compute  func(ctx context.Context, st *ExecutionState) (T, error)
	fallback func(st *ExecutionState) T
}

func (s *step[T]) Name() string        { return s.name }
func (s *step[T]) DependsOn() []string { return s.deps }

func (s *step[T]) Execute(ctx context.Context, st *ExecutionState) error {
	v, err := s.compute(ctx, st)
	if err != nil {
		return err
	}
	s.slot(st).Set(v)
	return nil
}

func (s *step[T]) Fallback(st *ExecutionState) {
	slot := s.slot(st)
	if slot.IsSet() {
		return
	}
	slot.Set(s.fallback(st))
}

// NodeResult records how one node finished.
type NodeResult struct {
	Node     string        `json:"node"`
	Duration time.Duration `json:"duration"`
	FellBack bool          `json:"fell_back"`
	Error    string        `json:"error,omitempty"`
	Err      error         `json:"-"`
}

// Graph is a static, validated DAG of nodes. It is built once and reused for every run.
type Graph struct {
	nodes []Node
	index map[string]int
	deps  [][]int
	order []int
}

func NewGraph(nodes ...Node) (*Graph, error) {
	g := &Graph{
		nodes: nodes,
		index: make(map[string]int, len(nodes)),
		deps:  make([][]int, len(nodes)),
	}
	for i, n := range nodes {
		if _, ok := g.index[n.Name()]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, n.Name())
		}
		g.index[n.Name()] = i
	}
	for i, n := range nodes {
		for _, d := range n.DependsOn() {
			j, ok := g.index[d]
			if !ok {
				return nil, fmt.Errorf("%w: %s depends on %s", ErrUnknownDep, n.Name(), d)
			}
			g.deps[i] = append(g.deps[i], j)
		}
	}

	// Kahn's algorithm; declaration order breaks ties.
	indegree := make([]int, len(nodes))
	dependents := make([][]int, len(nodes))
	for i, ds := range g.deps {
		indegree[i] = len(ds)
		for _, j := range ds {
			dependents[j] = append(dependents[j], i)
		}
	}
	var ready []int
	for i, d := range indegree {
		if d == 0 {
			ready = append(ready, i)
		}
	}
	for len(ready) > 0 {
		sort.Ints(ready)
		i := ready[0]
		ready = ready[1:]
		g.order = append(g.order, i)
		for _, k := range dependents[i] {
			indegree[k]--
			if indegree[k] == 0 {
				ready = append(ready, k)
			}
		}
	}
	if len(g.order) != len(nodes) {
		return nil, ErrCycle
	}
	return g, nil
}

// Order returns node names in a valid topological order.
func (g *Graph) Order() []string {
	out := make([]string, len(g.order))
	for i, idx := range g.order {
		out[i] = g.nodes[idx].Name()
	}
	return out
}

// Edges maps every node to its declared dependencies.
func (g *Graph) Edges() map[string][]string {
	out := make(map[string][]string, len(g.nodes))
	for _, n := range g.nodes {
		out[n.Name()] = append([]string{}, n.DependsOn()...)
	}
	return out
}

// Run executes every node once. Each node waits for its dependencies to finish,
// independent nodes run concurrently, and failures are replaced by the node's fallback.
// The returned trace follows topological order.
func (g *Graph) Run(ctx context.Context, st *ExecutionState, logger *slog.Logger, m *Metrics) []NodeResult {
	if logger == nil {
		logger = slog.Default()
	}
	done := make([]chan struct{}, len(g.nodes))
	for i := range done {
		done[i] = make(chan struct{})
	}
	results := make([]NodeResult, len(g.nodes))

	var wg sync.WaitGroup
	for i, n := range g.nodes {
		wg.Add(1)
		go func(i int, n Node) {
			defer wg.Done()
			defer close(done[i])
			for _, d := range g.deps[i] {
				<-done[d]
			}
			results[i] = g.runNode(ctx, st, n, logger, m)
		}(i, n)
	}
	wg.Wait()

	trace := make([]NodeResult, 0, len(g.order))
	for _, idx := range g.order {
		trace = append(trace, results[idx])
	}
	return trace
}

func (g *Graph) runNode(ctx context.Context, st *ExecutionState, n Node, logger *slog.Logger, m *Metrics) NodeResult {
	logger = logger.With("node", n.Name())
	ctx = WithLogger(ctx, logger)
	start := time.Now()
	logger.Debug("Node started")

	err := safeExecute(ctx, st, n)
	res := NodeResult{Node: n.Name(), Duration: time.Since(start)}
	if err != nil {
		n.Fallback(st)
		res.FellBack = true
		res.Err = err
		res.Error = err.Error()
		logger.Warn("Node failed, using fallback", "error", err)
	} else {
		logger.Info("Node finished", "duration", res.Duration)
	}
	m.observe(res)
	return res
}

func safeExecute(ctx context.Context, st *ExecutionState, n Node) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("node %s panicked: %v", n.Name(), r)
		}
	}()
	return n.Execute(ctx, st)
}
