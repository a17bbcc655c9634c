package models

// ClusterPair is an unordered pair of lpars belonging to one logical cluster.
type ClusterPair struct {
	Lpar1  string `json:"lpar1"`
	Lpar2  string `json:"lpar2"`
	Group  string `json:"group,omitempty"`
	Active string `json:"active,omitempty"`
}

// Key identifies the pair independent of member order.
func (p ClusterPair) Key() [2]string {
	if p.Lpar2 < p.Lpar1 {
		return [2]string{p.Lpar2, p.Lpar1}
	}
	return [2]string{p.Lpar1, p.Lpar2}
}

func (p ClusterPair) Members() []string {
	return []string{p.Lpar1, p.Lpar2}
}

func (p ClusterPair) String() string {
	return p.Lpar1 + "+" + p.Lpar2
}
