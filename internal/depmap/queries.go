package depmap

// Read-only analyses over the dependency map. Nothing in this file mutates
// the graph; queries may be issued freely between mutations.

// GetDependencies returns node's transitive dependency set. The second
// return distinguishes "never seen" (false) from "known, no dependencies"
// (true with an empty slice). includeLayouts=false filters layout-typed nodes
// out: layouts are irrelevant to pure-content caching decisions.
func (m *Map) GetDependencies(node string, includeLayouts bool) ([]string, bool) {
	n, err := m.normalize(node)
	if err != nil || !m.graph.HasNode(n) {
		return nil, false
	}
	deps, err := m.graph.DependenciesOf(n)
	if err != nil {
		return nil, false
	}
	if includeLayouts {
		return deps, true
	}
	filtered := []string{}
	for _, dep := range deps {
		if !m.isLayoutNode(dep) {
			filtered = append(filtered, dep)
		}
	}
	return filtered, true
}

// GetDependantsFor returns the direct (non-transitive) dependants of node,
// empty for an unknown node.
func (m *Map) GetDependantsFor(node string) []string {
	n, err := m.normalize(node)
	if err != nil || !m.graph.HasNode(n) {
		return []string{}
	}
	dependants, err := m.graph.DirectDependantsOf(n)
	if err != nil {
		return []string{}
	}
	return dependants
}

// HasDependency reports whether to is in from's (optionally layout-filtered)
// transitive dependency set.
func (m *Map) HasDependency(from, to string, includeLayouts bool) bool {
	nt, err := m.normalize(to)
	if err != nil {
		return false
	}
	deps, ok := m.GetDependencies(from, includeLayouts)
	if !ok {
		return false
	}
	for _, dep := range deps {
		if dep == nt {
			return true
		}
	}
	return false
}

// IsFileRelevantTo reports whether a change to changed affects path: true
// when they are the same file or changed is one of path's dependencies.
func (m *Map) IsFileRelevantTo(path, changed string, includeLayouts bool) bool {
	np, errP := m.normalize(path)
	nc, errC := m.normalize(changed)
	if errP != nil || errC != nil {
		return false
	}
	if np == nc {
		return true
	}
	return m.HasDependency(np, nc, includeLayouts)
}

// IsFileUsedBy is the reverse view of IsFileRelevantTo: does by use file.
func (m *Map) IsFileUsedBy(file, by string, includeLayouts bool) bool {
	return m.IsFileRelevantTo(by, file, includeLayouts)
}

// FindCollectionsRemovedFrom compares the collections node previously
// belonged to (recorded as collection-node dependants) against the current
// membership and returns the names present before but absent now. The host
// invalidates those collections: the template no longer contributes to them.
func (m *Map) FindCollectionsRemovedFrom(node string, currentCollectionNames []string) []string {
	n, err := m.normalize(node)
	if err != nil || !m.graph.HasNode(n) {
		return []string{}
	}
	current := make(map[string]bool, len(currentCollectionNames))
	for _, name := range currentCollectionNames {
		current[name] = true
	}
	removed := []string{}
	for _, dependant := range m.GetDependantsFor(n) {
		name, ok := CollectionNameFromKey(dependant)
		if !ok {
			continue
		}
		if !current[name] {
			removed = append(removed, name)
		}
	}
	return removed
}

// GetTemplatesThatConsumeCollections returns every template that must be
// rebuilt when any of the named collections' contents change. Dependants are
// walked transitively, expanding one hop at a time through intermediate
// collection nodes; layouts and collections themselves are not templates and
// are excluded from the result.
func (m *Map) GetTemplatesThatConsumeCollections(collectionNames []string) []string {
	result := []string{}
	seen := make(map[string]bool)
	visited := make(map[string]bool)

	var walk func(key string)
	walk = func(key string) {
		if visited[key] {
			return
		}
		visited[key] = true
		for _, dependant := range m.GetDependantsFor(key) {
			if IsCollectionKey(dependant) {
				walk(dependant)
				continue
			}
			if m.isLayoutNode(dependant) {
				continue
			}
			if !seen[dependant] {
				seen[dependant] = true
				result = append(result, dependant)
			}
		}
	}

	for _, name := range collectionNames {
		key := CollectionKey(name)
		if !m.graph.HasNode(key) {
			continue
		}
		walk(key)
	}
	return result
}

// GetTemplatesRelevantToTemplateList returns, in valid build order, the
// templates that are dependencies of any of the given paths. The inputs
// themselves appear only when they are also a dependency of another relevant
// node: a template is not relevant to itself here.
func (m *Map) GetTemplatesRelevantToTemplateList(paths []string) []string {
	relevant := make(map[string]bool)
	for _, path := range paths {
		deps, ok := m.GetDependencies(path, false)
		if !ok {
			continue
		}
		for _, dep := range deps {
			relevant[dep] = true
		}
	}

	order := []string{}
	for _, node := range m.graph.OverallOrder() {
		if IsCollectionKey(node) || m.isLayoutNode(node) {
			continue
		}
		if relevant[node] {
			order = append(order, node)
		}
	}
	return order
}

// GetTemplateOrder returns the full topological order with the "all"
// collection guaranteed as the final entry exactly once. The mutual
// dependency between all and keys can leave the raw order ending in
// all, [keys], all; that duplicate is an artifact of the cycle and is
// collapsed before callers see it.
func (m *Map) GetTemplateOrder() []string {
	order := m.graph.OverallOrder()
	allKey := CollectionKey(CollectionAll)
	keysKey := CollectionKey(CollectionKeys)

	if len(order) == 0 || order[len(order)-1] != allKey {
		order = append(order, allKey)
	}
	if n := len(order); n >= 3 &&
		order[n-3] == allKey && order[n-2] == keysKey && order[n-1] == allKey {
		order = order[:n-2]
	}
	// The append above can shadow an occurrence earlier in the raw order;
	// only the trailing entry survives.
	for i := 0; i < len(order)-1; i++ {
		if order[i] == allKey {
			order = append(order[:i], order[i+1:]...)
			i--
		}
	}
	return order
}
