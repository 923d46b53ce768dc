package ast

// Visitor is called for each node in a depth-first walk.
//
// Calling next descends into the node's children. Not calling it skips them.
type Visitor func(node *Node, next func() error) error

// Walk the nodes of doc depth-first.
func Walk(doc *Document, visitor Visitor) error {
	return walkNodes(doc.Nodes, visitor)
}

func walkNodes(nodes []*Node, visitor Visitor) error {
	for _, node := range nodes {
		node := node
		err := visitor(node, func() error {
			return walkNodes(node.Children, visitor)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
