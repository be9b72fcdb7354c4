package neighborhood

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/toucan4life/gamemap/pkg/errors"
	"github.com/toucan4life/gamemap/pkg/graph"
	"github.com/toucan4life/gamemap/pkg/observability"
)

// Loader returns the graph of a cluster. *fetch.Fetcher implements it.
type Loader interface {
	Fetch(ctx context.Context, id graph.ClusterID) (*graph.Graph, error)
}

// ProgressFunc receives human-readable status lines. It never affects
// control flow.
type ProgressFunc func(msg string)

// Options configures a [Builder].
type Options struct {
	// SummaryEvery emits a node-count summary each time this many more nodes
	// have been visited. Defaults to 50.
	SummaryEvery int

	// Parallelism bounds concurrent cluster loads per level. Defaults to 4.
	Parallelism int

	// Logger receives debug output. Defaults to a discarding logger.
	Logger *log.Logger
}

// Builder builds neighborhoods. It is safe for concurrent use when its
// Loader is.
type Builder struct {
	loader Loader
	opts   Options
	logger *log.Logger
}

// New creates a Builder reading clusters from loader.
func New(loader Loader, opts Options) *Builder {
	if opts.SummaryEvery <= 0 {
		opts.SummaryEvery = 50
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Builder{loader: loader, opts: opts, logger: logger}
}

type item struct {
	node    graph.NodeID
	cluster graph.ClusterID
	depth   int
}

// Build returns the neighborhood of startNode up to depth hops.
//
// The start node must exist in startCluster's graph; otherwise Build fails
// with [errors.ErrCodeNodeNotFound]. Nodes discovered at exactly depth are
// included without expanding their links. Any load failure aborts the build
// and no graph is returned. onProgress may be nil.
func (b *Builder) Build(ctx context.Context, startCluster graph.ClusterID, startNode graph.NodeID, depth int, onProgress ProgressFunc) (*graph.Graph, error) {
	if err := errors.ValidateDepth(depth); err != nil {
		return nil, err
	}
	hooks := observability.Pipeline()
	hooks.OnBuildStart(ctx, int64(startCluster), int64(startNode), depth)
	start := time.Now()

	out, err := b.build(ctx, startCluster, startNode, depth, progress(onProgress))
	if err != nil {
		hooks.OnBuildComplete(ctx, 0, 0, time.Since(start), err)
		return nil, err
	}
	hooks.OnBuildComplete(ctx, out.NodeCount(), out.LinkCount(), time.Since(start), nil)
	b.logger.Debug("neighborhood built", "node", startNode, "cluster", startCluster, "depth", depth,
		"nodes", out.NodeCount(), "links", out.LinkCount(), "elapsed", time.Since(start).Round(time.Millisecond))
	return out, nil
}

func progress(fn ProgressFunc) ProgressFunc {
	if fn == nil {
		return func(string) {}
	}
	return fn
}

func (b *Builder) build(ctx context.Context, startCluster graph.ClusterID, startNode graph.NodeID, depth int, report ProgressFunc) (*graph.Graph, error) {
	report(fmt.Sprintf("Building neighborhood of node %d in cluster %d (depth %d)", startNode, startCluster, depth))

	loaded := make(map[graph.ClusterID]*graph.Graph)
	if err := b.loadLevel(ctx, []graph.ClusterID{startCluster}, loaded, report); err != nil {
		return nil, err
	}
	root, ok := loaded[startCluster].Node(startNode)
	if !ok {
		return nil, errors.New(errors.ErrCodeNodeNotFound, "node %d not found in cluster %d", startNode, startCluster)
	}

	out := graph.New()
	data := root.Data.Clone()
	if data.Cluster == nil {
		data.Cluster = graph.Cluster(startCluster)
	}
	out.AddNode(startNode, data)
	visited := map[graph.NodeID]bool{startNode: true}
	queue := []item{{node: startNode, cluster: startCluster, depth: 0}}
	nextSummary := b.opts.SummaryEvery
	level := -1

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= depth {
			continue
		}

		if cur.depth != level {
			level = cur.depth
			if err := b.loadLevel(ctx, pendingClusters(cur, queue, depth, loaded), loaded, report); err != nil {
				return nil, err
			}
		}

		owner := loaded[cur.cluster]
		for n, l := range owner.Neighbors(cur.node) {
			if !out.HasLinkBetween(l.From, l.To) {
				out.AddLink(l.From, l.To, l.Data)
			}
			if visited[n.ID] {
				continue
			}
			visited[n.ID] = true
			nd := n.Data.Clone()
			if nd.Cluster == nil {
				nd.Cluster = graph.Cluster(cur.cluster)
			}
			out.AddNode(n.ID, nd)
			queue = append(queue, item{node: n.ID, cluster: *nd.Cluster, depth: cur.depth + 1})

			if out.NodeCount() >= nextSummary {
				report(fmt.Sprintf("Visited %d nodes, %d links", out.NodeCount(), out.LinkCount()))
				nextSummary += b.opts.SummaryEvery
			}
		}
	}

	report(fmt.Sprintf("Neighborhood ready: %d nodes, %d links across %d clusters",
		out.NodeCount(), out.LinkCount(), len(loaded)))
	return out, nil
}

// pendingClusters lists, in queue order, the unloaded owner clusters of the
// items that will be expanded at cur's depth.
func pendingClusters(cur item, queue []item, depth int, loaded map[graph.ClusterID]*graph.Graph) []graph.ClusterID {
	var ids []graph.ClusterID
	seen := make(map[graph.ClusterID]bool)
	add := func(it item) {
		if it.depth >= depth || seen[it.cluster] {
			return
		}
		seen[it.cluster] = true
		if _, ok := loaded[it.cluster]; !ok {
			ids = append(ids, it.cluster)
		}
	}
	add(cur)
	for _, it := range queue {
		if it.depth != cur.depth {
			break
		}
		add(it)
	}
	return ids
}

// loadLevel loads ids concurrently into loaded. Progress lines are emitted
// in ids order regardless of completion order.
func (b *Builder) loadLevel(ctx context.Context, ids []graph.ClusterID, loaded map[graph.ClusterID]*graph.Graph, report ProgressFunc) error {
	if len(ids) == 0 {
		return nil
	}
	for _, id := range ids {
		report(fmt.Sprintf("Loading cluster %d", id))
	}

	graphs := make([]*graph.Graph, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Parallelism)
	for i, id := range ids {
		g.Go(func() error {
			cg, err := b.loader.Fetch(gctx, id)
			if err != nil {
				return err
			}
			graphs[i] = cg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, id := range ids {
		loaded[id] = graphs[i]
		report(fmt.Sprintf("Loaded cluster %d (%d nodes)", id, graphs[i].NodeCount()))
	}
	return nil
}
