// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package polymesh

// Components groups faces connected through shared points. Components are ordered by
// their lowest face index and list faces in increasing order.
func (m *Mesh) Components() [][]int {
	parent := make([]int, len(m.Points))
	for i := range parent {
		parent[i] = i
	}
	find := func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	for i := range m.NumFaces() {
		face := m.Face(i)
		root := find(face[0])
		for _, v := range face[1:] {
			if r := find(v); r != root {
				parent[r] = root
			}
		}
	}

	group := make(map[int]int)
	var components [][]int
	for i := range m.NumFaces() {
		root := find(m.Face(i)[0])
		g, ok := group[root]
		if !ok {
			g = len(components)
			group[root] = g
			components = append(components, nil)
		}
		components[g] = append(components[g], i)
	}
	return components
}

func (m *Mesh) NumComponents() int {
	return len(m.Components())
}

// LargestComponent returns the component with the most faces as a new mesh.
// Ties keep the component that comes first.
func (m *Mesh) LargestComponent() *Mesh {
	var largest []int
	for _, c := range m.Components() {
		if len(c) > len(largest) {
			largest = c
		}
	}
	return m.ExtractFaces(largest)
}
