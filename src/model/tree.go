package model

// SessionTree wraps an immutable Session with the structure an interactive
// tree view needs: an ordered list of owned children and an expanded flag.
// This is the one intentionally mutable entity in the package. Each wrapper
// owns its session value and its children; two wrappers never share a child.
type SessionTree struct {
	Session  Session
	Children []*SessionTree
	Expanded bool
}

// NewSessionTree wraps a session in an expanded, childless node.
func NewSessionTree(s Session) *SessionTree {
	return &SessionTree{Session: s, Expanded: true}
}

// AddChild appends a child node, preserving insertion order.
func (t *SessionTree) AddChild(child *SessionTree) {
	t.Children = append(t.Children, child)
}

// ToggleExpanded flips the expand/collapse state.
func (t *SessionTree) ToggleExpanded() {
	t.Expanded = !t.Expanded
}

// Status derives the liveness state of the wrapped session.
func (t *SessionTree) Status(nowSeconds int64) SessionStatus {
	return t.Session.Status(nowSeconds)
}

// FindByID locates the node for a session id in this subtree, or nil.
// Traversal is an explicit-stack depth-first walk so a pathologically deep
// chain cannot blow the stack.
func (t *SessionTree) FindByID(id string) *SessionTree {
	stack := []*SessionTree{t}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node.Session.ID == id {
			return node
		}
		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, node.Children[i])
		}
	}
	return nil
}

// Count returns the number of nodes in this subtree, including the receiver.
func (t *SessionTree) Count() int {
	n := 0
	stack := []*SessionTree{t}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n++
		stack = append(stack, node.Children...)
	}
	return n
}

// WalkForest visits every node of the forest depth-first in display order,
// passing each node's depth. Returning false from visit stops the walk.
// Iterative on purpose; see FindByID.
func WalkForest(roots []*SessionTree, visit func(node *SessionTree, depth int) bool) {
	type frame struct {
		node  *SessionTree
		depth int
	}
	var stack []frame
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{roots[i], 0})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visit(f.node, f.depth) {
			return
		}
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.node.Children[i], f.depth + 1})
		}
	}
}

// FindInForest locates a session id across the forest roots, or nil.
func FindInForest(roots []*SessionTree, id string) *SessionTree {
	for _, root := range roots {
		if found := root.FindByID(id); found != nil {
			return found
		}
	}
	return nil
}

const (
	chainUnknown uint8 = iota
	chainOnPath
	chainTree
	chainCyclic
)

// BuildSessionTree assembles a flat session list into a forest of
// parent/child nodes in O(n). The first pass wraps every session in a node,
// the second attaches each node under the node named by its parent id. A
// parent id that is not in the input (filtered out, or plain dangling)
// demotes the session to a root rather than dropping it. Root and child
// ordering follow the input sequence.
//
// Attachment is single-level only, so a manufactured parent cycle cannot
// hang the builder. Sessions whose parent chain loops back onto themselves
// are demoted to roots instead of being attached, so every input node is
// reachable from exactly one root and the result is always a forest.
func BuildSessionTree(sessions []Session) []*SessionTree {
	if len(sessions) == 0 {
		return nil
	}

	nodes := make(map[string]*SessionTree, len(sessions))
	for _, s := range sessions {
		nodes[s.ID] = NewSessionTree(s)
	}

	state := classifyParentChains(sessions, nodes)

	var roots []*SessionTree
	for _, s := range sessions {
		node := nodes[s.ID]
		if state[s.ID] != chainCyclic && s.ParentID != nil {
			if parent, ok := nodes[*s.ParentID]; ok {
				parent.AddChild(node)
				continue
			}
		}
		roots = append(roots, node)
	}

	return roots
}

// classifyParentChains walks each session's parent chain once, marking the
// sessions that sit on a parent cycle. Every session is classified exactly
// once, so the whole pass stays linear in the input size.
func classifyParentChains(sessions []Session, nodes map[string]*SessionTree) map[string]uint8 {
	state := make(map[string]uint8, len(sessions))

	for _, s := range sessions {
		if state[s.ID] != chainUnknown {
			continue
		}

		var path []string
		cur := s.ID
		for {
			switch state[cur] {
			case chainOnPath:
				// The chain closed on itself. Everything from the repeat
				// point onward is on the cycle; nodes before it merely lead
				// into the cycle and attach normally.
				repeat := 0
				for i, id := range path {
					if id == cur {
						repeat = i
						break
					}
				}
				for _, id := range path[:repeat] {
					state[id] = chainTree
				}
				for _, id := range path[repeat:] {
					state[id] = chainCyclic
				}
			case chainTree, chainCyclic:
				for _, id := range path {
					state[id] = chainTree
				}
			default:
				state[cur] = chainOnPath
				path = append(path, cur)
				node := nodes[cur]
				pid := node.Session.ParentID
				if pid != nil {
					if _, ok := nodes[*pid]; ok {
						cur = *pid
						continue
					}
				}
				// Chain terminates at a root or a missing parent.
				for _, id := range path {
					state[id] = chainTree
				}
			}
			break
		}
	}

	return state
}
