package depmap

import "strings"

// collectionPrefix turns a collection name into a node name that can never
// collide with a file path.
const collectionPrefix = "__collection:"

// Reserved meta-collection names. CollectionAll represents every content
// item; CollectionKeys represents every tag-derived collection. The two have
// an intentional mutual dependency: keys is computed from all, and all is
// computed from the tag collections keys enumerates. Consumers treat them as
// stable fixed points, which is why this specific cycle is permitted in an
// otherwise acyclic graph.
const (
	CollectionAll  = "all"
	CollectionKeys = "[keys]"
)

// Node metadata keys. nodeTypeKey tags layout nodes; nodeConsumesKey marks
// nodes whose collection membership came from the configuration API rather
// than a content tag.
const (
	nodeTypeKey     = "type"
	nodeTypeLayout  = "layout"
	nodeConsumesKey = "consumes"
)

// CollectionKey derives the graph node name for a collection name.
// CollectionNameFromKey is its exact inverse.
func CollectionKey(name string) string {
	return collectionPrefix + name
}

// CollectionNameFromKey recovers the collection name from a collection node
// name. ok is false when key is not a collection node.
func CollectionNameFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, collectionPrefix) {
		return "", false
	}
	return strings.TrimPrefix(key, collectionPrefix), true
}

// IsCollectionKey reports whether a node name denotes a collection.
func IsCollectionKey(name string) bool {
	return strings.HasPrefix(name, collectionPrefix)
}

// AddDependencyConsumesCollection records that from reads the named
// collection's contents. Beyond the from -> collection edge it maintains the
// meta-collection ordering contract: keys is computed from all, all from the
// tag collections, and configuration-API collections from all.
func (m *Map) AddDependencyConsumesCollection(from, collectionName string) error {
	nf, err := m.normalize(from)
	if err != nil {
		return err
	}
	key := CollectionKey(collectionName)
	m.graph.AddNode(nf, nil)
	m.graph.AddNode(key, nil)
	m.addEdge(nf, key)

	if m.isConfigCollection(collectionName) {
		m.mergeNodeData(nf, map[string]string{nodeConsumesKey: "true"})
	}

	switch {
	case collectionName == CollectionKeys:
		m.addEdge(CollectionKey(CollectionKeys), CollectionKey(CollectionAll))
	case collectionName == CollectionAll:
		m.addEdge(CollectionKey(CollectionAll), CollectionKey(CollectionKeys))
	case m.isConfigCollection(collectionName):
		m.addEdge(key, CollectionKey(CollectionAll))
	}
	return nil
}

// AddDependencyPublishesToCollection records that from is a tagged member of
// the named collection: the collection can only be assembled after from
// exists, so the edge runs collection -> from. The edge into "all" is skipped
// for configuration-API consumers because their chain into all is already
// settled through the consumption edges; re-adding it would reorder it. Tag
// collections are additionally aggregated under the keys meta-collection.
func (m *Map) AddDependencyPublishesToCollection(from, collectionName string) error {
	nf, err := m.normalize(from)
	if err != nil {
		return err
	}
	key := CollectionKey(collectionName)
	m.graph.AddNode(nf, nil)
	m.graph.AddNode(key, nil)

	skip := collectionName == CollectionAll && m.nodeDataValue(nf, nodeConsumesKey) == "true"
	if !skip {
		m.addEdge(key, nf)
	}
	if !m.isConfigCollection(collectionName) {
		m.addEdge(CollectionKey(CollectionKeys), key)
	}
	return nil
}

// isConfigCollection reports whether a collection name is defined through
// the configuration API. The name set is read once per build pass and
// memoized; InvalidateCollectionNames clears the memo.
func (m *Map) isConfigCollection(name string) bool {
	if m.configCollections == nil {
		m.configCollections = make(map[string]bool)
		if m.collections != nil {
			for _, n := range m.collections.CollectionNames() {
				m.configCollections[n] = true
			}
		}
	}
	return m.configCollections[name]
}

// InvalidateCollectionNames drops the memoized configuration collection
// names so the next check re-reads the source. Call at the start of a build
// pass.
func (m *Map) InvalidateCollectionNames() {
	m.configCollections = nil
}

// OverrideCollectionNames replaces the memoized configuration collection
// names directly. Test hook; production code injects a CollectionSource.
func (m *Map) OverrideCollectionNames(names []string) {
	m.configCollections = make(map[string]bool, len(names))
	for _, n := range names {
		m.configCollections[n] = true
	}
}
