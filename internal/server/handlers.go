package server

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/toucan4life/gamemap/pkg/errors"
	"github.com/toucan4life/gamemap/pkg/graph"
	"github.com/toucan4life/gamemap/pkg/render/nodelink"
	"github.com/toucan4life/gamemap/pkg/store"
	"github.com/toucan4life/gamemap/pkg/viewer"
)

// =============================================================================
// Neighborhoods
// =============================================================================

type neighborJSON struct {
	ID         graph.NodeID     `json:"id"`
	Label      string           `json:"label"`
	Weight     float64          `json:"weight"`
	Status     string           `json:"status,omitempty"`
	Cluster    *graph.ClusterID `json:"cluster_id,omitempty"`
	Rating     float64          `json:"rating,omitempty"`
	Complexity float64          `json:"complexity,omitempty"`
}

func (s *Server) neighbors(w http.ResponseWriter, r *http.Request) {
	cluster, node, err := clusterNodeParams(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	list, err := s.opts.Builder.Neighbors(r.Context(), cluster, node)
	if err != nil {
		s.respondError(w, err)
		return
	}
	out := make([]neighborJSON, len(list))
	for i, n := range list {
		out[i] = neighborJSON{
			ID:         n.ID,
			Label:      n.Data.Label,
			Weight:     n.Weight,
			Status:     n.Status,
			Cluster:    n.Data.Cluster,
			Rating:     n.Data.Rating,
			Complexity: n.Data.Complexity,
		}
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) neighborhood(w http.ResponseWriter, r *http.Request) {
	cluster, node, err := clusterNodeParams(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	depth := s.opts.Depth
	if q := r.URL.Query().Get("depth"); q != "" {
		depth, err = strconv.Atoi(q)
		if err != nil {
			s.respondError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid depth %q", q))
			return
		}
	}
	if err := errors.ValidateDepth(depth); err != nil {
		s.respondError(w, err)
		return
	}
	g, err := s.opts.Builder.Build(r.Context(), cluster, node, depth, nil)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, graph.ToDocument(g))
}

// =============================================================================
// Viewer sessions
// =============================================================================

type createViewerRequest struct {
	Cluster graph.ClusterID `json:"cluster"`
	Node    graph.NodeID    `json:"node"`
	Depth   *int            `json:"depth,omitempty"`
}

type viewerStatusJSON struct {
	ID        string        `json:"id"`
	Cluster   int64         `json:"cluster"`
	Root      graph.NodeID  `json:"root"`
	State     viewer.State  `json:"state"`
	Running   bool          `json:"running"`
	StepsLeft int           `json:"steps_left"`
	Selected  *graph.NodeID `json:"selected,omitempty"`
	Error     string        `json:"error,omitempty"`
	Log       []string      `json:"log"`
}

func (s *Server) createViewer(w http.ResponseWriter, r *http.Request) {
	var req createViewerRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	depth := s.opts.Depth
	if req.Depth != nil {
		depth = *req.Depth
	}
	if err := errors.ValidateDepth(depth); err != nil {
		s.respondError(w, err)
		return
	}

	sess, err := s.startSession(req.Cluster, req.Node, depth)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.logger.Info("viewer created", "id", sess.id, "cluster", req.Cluster, "node", req.Node, "depth", depth)
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": sess.id})
}

// startSession registers a session whose viewer loads the neighborhood in
// the background. The load is cancelled when the session is disposed.
func (s *Server) startSession(cluster graph.ClusterID, node graph.NodeID, depth int) (*session, error) {
	now := time.Now()
	sess := &session{
		id:       uuid.NewString(),
		cluster:  cluster,
		node:     node,
		depth:    depth,
		created:  now,
		lastUsed: now,
		surface:  viewer.NewMemorySurface(),
		feed:     viewer.NewFeed(),
	}
	if s.opts.Viewer.HitRadius > 0 {
		sess.surface.HitRadius = s.opts.Viewer.HitRadius
	}
	style := s.opts.Style

	v, err := viewer.New(viewer.Options{
		Load: func(ctx context.Context) (*graph.Graph, error) {
			return s.opts.Builder.Build(ctx, cluster, node, depth, sess.appendLog)
		},
		RootNodeID:           node,
		Surface:              sess.surface,
		Scheduler:            viewer.NewTimerScheduler(s.opts.Viewer.FrameInterval),
		Layout:               s.opts.Layout,
		Style:                &style,
		Steps:                s.opts.Viewer.Steps,
		ScaleFactor:          s.opts.Viewer.ScaleFactor,
		FitPadding:           s.opts.Viewer.FitPadding,
		OnLayoutStatusChange: sess.setRunning,
		OnNodeClicked:        sess.setClicked,
		OnError: func(err error) {
			sess.appendLog("error: " + errors.UserMessage(err))
		},
		Feed:   sess.feed,
		Logger: s.logger.With("viewer", sess.id),
	})
	if err != nil {
		return nil, err
	}
	sess.v = v
	sess.surface.Load()
	s.sessions.add(sess)
	return sess, nil
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session, bool) {
	id := chi.URLParam(r, "id")
	sess, ok := s.sessions.get(id)
	if !ok {
		s.respondError(w, errors.New(errors.ErrCodeSessionNotFound, "viewer %q not found", id))
		return nil, false
	}
	return sess, true
}

func (s *Server) status(sess *session) viewerStatusJSON {
	out := viewerStatusJSON{
		ID:        sess.id,
		Cluster:   int64(sess.cluster),
		Root:      sess.node,
		State:     sess.v.State(),
		StepsLeft: sess.v.StepsLeft(),
		Log:       sess.logLines(),
	}
	sess.mu.Lock()
	out.Running = sess.running
	sess.mu.Unlock()
	if id, ok := sess.v.Selected(); ok {
		out.Selected = &id
	}
	if err := sess.v.Err(); err != nil {
		out.Error = errors.UserMessage(err)
	}
	return out
}

func (s *Server) viewerStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, s.status(sess))
}

func (s *Server) deleteViewer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, ok := s.sessions.remove(id)
	if !ok {
		s.respondError(w, errors.New(errors.ErrCodeSessionNotFound, "viewer %q not found", id))
		return
	}
	sess.dispose()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) viewerSource(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "source")
	switch name {
	case viewer.SourceNodes, viewer.SourceSelectedNodes, viewer.SourceEdges:
	default:
		s.respondError(w, errors.New(errors.ErrCodeNotFound, "unknown source %q", name))
		return
	}
	fc, ok := sess.surface.Data(name)
	if !ok {
		fc = geojson.NewFeatureCollection()
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		s.respondError(w, errors.Wrap(errors.ErrCodeInternal, err, "encode source"))
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type clickRequest struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

func (s *Server) viewerClick(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req clickRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	sess.clickMu.Lock()
	defer sess.clickMu.Unlock()
	sess.takeClicked()
	if !sess.surface.Click(orb.Point{req.Lng, req.Lat}) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if info := sess.takeClicked(); info != nil {
		s.respondJSON(w, http.StatusOK, info)
		return
	}
	// The hit node was already selected.
	if id, ok := sess.v.Selected(); ok {
		if info, ok := sess.v.Coordinates(id); ok {
			s.respondJSON(w, http.StatusOK, info)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

type selectRequest struct {
	Node graph.NodeID `json:"node"`
}

func (s *Server) viewerSelect(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	sess.feed.Publish(req.Node)
	s.respondJSON(w, http.StatusAccepted, s.status(sess))
}

func (s *Server) viewerStop(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.v.StopLayout()
	s.respondJSON(w, http.StatusOK, s.status(sess))
}

func (s *Server) viewerResume(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.v.ResumeLayout()
	s.respondJSON(w, http.StatusOK, s.status(sess))
}

func (s *Server) viewerNode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, err := graph.ParseNodeID(chi.URLParam(r, "node"))
	if err != nil {
		s.respondError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid node id"))
		return
	}
	info, ok := sess.v.Coordinates(id)
	if !ok {
		s.respondError(w, errors.New(errors.ErrCodeNodeNotFound, "node %d has no position", id))
		return
	}
	s.respondJSON(w, http.StatusOK, info)
}

func (s *Server) viewerSVG(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	snap, ok := sess.v.Snapshot()
	if !ok {
		s.respondError(w, errors.New(errors.ErrCodeNotFound, "viewer %s has not started its layout", sess.id))
		return
	}
	opts := nodelink.Options{Style: &s.opts.Style}
	if id, ok := sess.v.Selected(); ok {
		opts.Selected = &id
	}
	svg, err := nodelink.RenderSVG(r.Context(), nodelink.ToDOT(sess.v.Graph(), snap, opts))
	if err != nil {
		s.respondError(w, errors.Wrap(errors.ErrCodeInternal, err, "render svg"))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = bytes.NewReader(svg).WriteTo(w)
}

// =============================================================================
// Snapshots
// =============================================================================

func (s *Server) saveSnapshot(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	snap, ok := sess.v.Snapshot()
	if !ok {
		s.respondError(w, errors.New(errors.ErrCodeNotFound, "viewer %s has not started its layout", sess.id))
		return
	}
	rec, err := s.opts.Store.Save(r.Context(), store.Record{
		Cluster:  int64(sess.cluster),
		Depth:    sess.depth,
		Snapshot: snap,
	})
	if err != nil {
		s.respondError(w, errors.Wrap(errors.ErrCodeInternal, err, "save snapshot"))
		return
	}
	s.respondJSON(w, http.StatusCreated, rec)
}

func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	rec, err := s.opts.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

// =============================================================================
// Helpers
// =============================================================================

func clusterNodeParams(r *http.Request) (graph.ClusterID, graph.NodeID, error) {
	cluster, err := graph.ParseClusterID(chi.URLParam(r, "cluster"))
	if err != nil {
		return 0, 0, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid cluster id")
	}
	node, err := graph.ParseNodeID(chi.URLParam(r, "node"))
	if err != nil {
		return 0, 0, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid node id")
	}
	return cluster, node, nil
}
