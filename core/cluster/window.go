// ABOUTME: Window is the clusterer's working set: an arena of articles indexed by id
// ABOUTME: Clusters reference their members by arena index instead of by pointer

package cluster

import (
	"sort"
	"time"

	"digests-pipeline/core/domain"
)

// Window holds the recent articles and clusters an incoming article is compared against
type Window struct {
	since time.Time

	articles []*domain.Article
	byID     map[string]int

	clusters  []*slot
	clusterIx map[string]int
}

// slot is one cluster in the arena
type slot struct {
	cluster *domain.StoryCluster
	rep     int
	members map[int]struct{}
	dirty   bool
}

// NewWindow creates an empty window whose candidate clusters are those created at or after since
func NewWindow(since time.Time) *Window {
	return &Window{
		since:     since,
		byID:      make(map[string]int),
		clusterIx: make(map[string]int),
	}
}

// Since returns the recency cutoff
func (w *Window) Since() time.Time {
	return w.since
}

// add puts article into the arena and returns its index; re-adding an id returns the existing slot
func (w *Window) add(article *domain.Article) int {
	if i, ok := w.byID[article.ID]; ok {
		w.articles[i] = article
		return i
	}
	w.articles = append(w.articles, article)
	w.byID[article.ID] = len(w.articles) - 1
	return len(w.articles) - 1
}

// AddCluster loads a previously persisted cluster together with the member articles that could be found.
// A cluster whose representative is missing uses its first present member instead; one with no
// present members is ignored.
func (w *Window) AddCluster(c *domain.StoryCluster, members []*domain.Article) {
	if c == nil || len(members) == 0 {
		return
	}
	if _, exists := w.clusterIx[c.ID]; exists {
		return
	}
	s := &slot{cluster: c, rep: -1, members: make(map[int]struct{}, len(members))}
	for _, m := range members {
		if m == nil {
			continue
		}
		i := w.add(m)
		s.members[i] = struct{}{}
		if m.ID == c.RepresentativeID {
			s.rep = i
		}
	}
	if len(s.members) == 0 {
		return
	}
	if s.rep < 0 {
		s.rep = w.byID[firstPresent(c.MemberIDs, w.byID, members)]
	}
	w.clusters = append(w.clusters, s)
	w.clusterIx[c.ID] = len(w.clusters) - 1
}

func firstPresent(ids []string, index map[string]int, members []*domain.Article) string {
	for _, id := range ids {
		if _, ok := index[id]; ok {
			return id
		}
	}
	for _, m := range members {
		if m != nil {
			return m.ID
		}
	}
	return ""
}

// Article returns the arena article with id
func (w *Window) Article(id string) (*domain.Article, bool) {
	i, ok := w.byID[id]
	if !ok {
		return nil, false
	}
	return w.articles[i], true
}

// Cluster returns the cluster with id
func (w *Window) Cluster(id string) (*domain.StoryCluster, bool) {
	i, ok := w.clusterIx[id]
	if !ok {
		return nil, false
	}
	return w.clusters[i].cluster, true
}

// Members returns the arena articles of a cluster ordered by publish time then id
func (w *Window) Members(clusterID string) []*domain.Article {
	i, ok := w.clusterIx[clusterID]
	if !ok {
		return nil
	}
	s := w.clusters[i]
	out := make([]*domain.Article, 0, len(s.members))
	for ix := range s.members {
		out = append(out, w.articles[ix])
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].PublishedAt.Equal(out[b].PublishedAt) {
			return out[a].PublishedAt.Before(out[b].PublishedAt)
		}
		return out[a].ID < out[b].ID
	})
	return out
}

// Len returns the number of clusters in the window
func (w *Window) Len() int {
	return len(w.clusters)
}

// Dirty returns the clusters created or extended since the window was loaded, ordered by id
func (w *Window) Dirty() []*domain.StoryCluster {
	var out []*domain.StoryCluster
	for _, s := range w.clusters {
		if s.dirty {
			out = append(out, s.cluster)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// candidates returns the slots eligible for comparison, oldest created first
func (w *Window) candidates() []*slot {
	out := make([]*slot, 0, len(w.clusters))
	for _, s := range w.clusters {
		if s.cluster.CreatedAt.Before(w.since) {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ci, cj := out[i].cluster, out[j].cluster
		if !ci.CreatedAt.Equal(cj.CreatedAt) {
			return ci.CreatedAt.Before(cj.CreatedAt)
		}
		return ci.ID < cj.ID
	})
	return out
}
