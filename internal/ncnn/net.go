package ncnn

// Magic is the first line of every ncnn .param file.
const Magic = 7767517

// Node places a converted layer in the network: its unique name plus the
// blobs it consumes and produces.
type Node struct {
	Layer
	Name    string
	Bottoms []string
	Tops    []string
}

// Net is an ordered ncnn layer list. Order must be topological.
type Net struct {
	Nodes []Node
}

// Add appends a node.
func (n *Net) Add(node Node) {
	n.Nodes = append(n.Nodes, node)
}

// LayerCount returns the number of layers.
func (n *Net) LayerCount() int {
	return len(n.Nodes)
}

// BlobCount returns the number of distinct blob names referenced by the net.
func (n *Net) BlobCount() int {
	seen := make(map[string]struct{})
	for i := range n.Nodes {
		for _, b := range n.Nodes[i].Bottoms {
			seen[b] = struct{}{}
		}
		for _, t := range n.Nodes[i].Tops {
			seen[t] = struct{}{}
		}
	}
	return len(seen)
}

// WeightCount returns the number of float32 values the .bin file will hold.
func (n *Net) WeightCount() int {
	total := 0
	for i := range n.Nodes {
		total += n.Nodes[i].WeightCount()
	}
	return total
}
