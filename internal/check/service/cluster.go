package service

import "codearena/internal/check/model"

// unionFind groups submission ids with path compression.
type unionFind struct {
	parent map[string]string
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[string]string)}
}

func (u *unionFind) find(x string) string {
	root, ok := u.parent[x]
	if !ok {
		u.parent[x] = x
		return x
	}
	if root == x {
		return x
	}
	top := u.find(root)
	u.parent[x] = top
	return top
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

// clusterPairs unions every above-threshold pair and returns the connected
// components of size >= 2. Member order inside a cluster follows first
// appearance in the pair list.
func clusterPairs(pairs []model.SuspiciousPair, threshold float32) [][]model.ClusterMember {
	uf := newUnionFind()
	members := make(map[string]model.ClusterMember)
	var order []string

	record := func(m model.ClusterMember) {
		if _, seen := members[m.SubmissionID]; !seen {
			members[m.SubmissionID] = m
			order = append(order, m.SubmissionID)
		}
	}

	for _, p := range pairs {
		if p.Similarity <= threshold {
			continue
		}
		record(p.First)
		record(p.Second)
		uf.union(p.First.SubmissionID, p.Second.SubmissionID)
	}

	groups := make(map[string][]model.ClusterMember)
	var roots []string
	for _, id := range order {
		root := uf.find(id)
		if _, seen := groups[root]; !seen {
			roots = append(roots, root)
		}
		groups[root] = append(groups[root], members[id])
	}

	var clusters [][]model.ClusterMember
	for _, root := range roots {
		if cluster := groups[root]; len(cluster) >= 2 {
			clusters = append(clusters, cluster)
		}
	}
	return clusters
}
