package depmap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTemplatesThatConsumeCollections(t *testing.T) {
	m := NewMap(nil)
	require.NoError(t, m.AddDependencyPublishesToCollection("post1.md", "blog"))
	require.NoError(t, m.AddDependencyPublishesToCollection("post2.md", "blog"))
	require.NoError(t, m.AddDependencyConsumesCollection("index.md", "blog"))

	// Only the consumer must rebuild when the collection changes, not the
	// members that feed it.
	got := m.GetTemplatesThatConsumeCollections([]string{"blog"})
	assert.Equal(t, []string{"index.md"}, got)
}

func TestGetTemplatesThatConsumeCollections_TransitiveThroughCollections(t *testing.T) {
	m := NewMap(nil)
	// "featured" derives from "blog": blog's dependants include the featured
	// collection node, which is expanded rather than reported.
	require.NoError(t, m.AddDependency(CollectionKey("featured"), []string{CollectionKey("blog")}))
	require.NoError(t, m.AddDependencyConsumesCollection("home.md", "featured"))

	got := m.GetTemplatesThatConsumeCollections([]string{"blog"})
	assert.Equal(t, []string{"home.md"}, got)
}

func TestGetTemplatesThatConsumeCollections_ExcludesLayouts(t *testing.T) {
	m := NewMap(nil)
	require.NoError(t, m.AddLayoutsToMap(context.Background(), map[string][]string{
		"list.html": nil,
	}))
	require.NoError(t, m.AddDependency("list.html", []string{CollectionKey("blog")}))
	require.NoError(t, m.AddDependencyConsumesCollection("index.md", "blog"))

	got := m.GetTemplatesThatConsumeCollections([]string{"blog"})
	assert.Equal(t, []string{"index.md"}, got)
}

func TestGetTemplatesThatConsumeCollections_UnknownCollection(t *testing.T) {
	m := NewMap(nil)
	assert.Empty(t, m.GetTemplatesThatConsumeCollections([]string{"ghost"}))
}

func TestIsFileRelevantTo(t *testing.T) {
	m := NewMap(nil)
	require.NoError(t, m.AddDependency("index.md", []string{"data/site.json"}))
	require.NoError(t, m.AddLayoutsToMap(context.Background(), map[string][]string{
		"base.html": {"index.md"},
	}))

	assert.True(t, m.IsFileRelevantTo("index.md", "index.md", false))
	assert.True(t, m.IsFileRelevantTo("index.md", "data/site.json", false))
	assert.False(t, m.IsFileRelevantTo("data/site.json", "index.md", false))

	// Layout relevance depends on the filter.
	assert.True(t, m.IsFileRelevantTo("index.md", "base.html", true))
	assert.False(t, m.IsFileRelevantTo("index.md", "base.html", false))
}

func TestIsFileUsedBy(t *testing.T) {
	m := NewMap(nil)
	require.NoError(t, m.AddDependency("index.md", []string{"data/site.json"}))

	assert.True(t, m.IsFileUsedBy("data/site.json", "index.md", false))
	assert.False(t, m.IsFileUsedBy("index.md", "data/site.json", false))
}

func TestGetTemplatesRelevantToTemplateList(t *testing.T) {
	m := NewMap(nil)
	require.NoError(t, m.AddDependency("a.md", []string{"b.md"}))
	require.NoError(t, m.AddDependency("b.md", []string{"c.md"}))
	require.NoError(t, m.AddDependency("d.md", []string{"e.md"}))

	got := m.GetTemplatesRelevantToTemplateList([]string{"a.md"})
	// Dependencies in build order; a.md itself is not a dependency of
	// anything, so it is absent.
	assert.Equal(t, []string{"c.md", "b.md"}, got)
}

func TestGetTemplatesRelevantToTemplateList_InputIncludedWhenDepended(t *testing.T) {
	m := NewMap(nil)
	require.NoError(t, m.AddDependency("a.md", []string{"b.md"}))
	require.NoError(t, m.AddDependency("b.md", []string{"a.md"}))

	// a.md is a dependency of b.md, so querying both keeps a.md in play.
	got := m.GetTemplatesRelevantToTemplateList([]string{"a.md", "b.md"})
	assert.ElementsMatch(t, []string{"a.md", "b.md"}, got)
}

func TestGetTemplatesRelevantToTemplateList_StripsLayoutsAndCollections(t *testing.T) {
	m := NewMap(nil)
	require.NoError(t, m.AddLayoutsToMap(context.Background(), map[string][]string{
		"base.html": {"a.md"},
	}))
	require.NoError(t, m.AddDependencyConsumesCollection("a.md", "blog"))
	require.NoError(t, m.AddDependency("a.md", []string{"b.md"}))

	got := m.GetTemplatesRelevantToTemplateList([]string{"a.md"})
	assert.Equal(t, []string{"b.md"}, got)
}

func TestGetTemplateOrder_EndsWithAll(t *testing.T) {
	m := NewMap(nil)
	require.NoError(t, m.AddDependencyPublishesToCollection("post.md", "blog"))
	require.NoError(t, m.AddDependencyConsumesCollection("index.md", "blog"))

	order := m.GetTemplateOrder()
	allKey := CollectionKey(CollectionAll)
	require.NotEmpty(t, order)
	assert.Equal(t, allKey, order[len(order)-1])
	assert.Equal(t, 1, count(order, allKey))
}

func TestGetTemplateOrder_MutualAllKeysCollapses(t *testing.T) {
	m := NewMap(nil)
	// Both meta-collections independently asserted as dependencies of each
	// other: the raw order can end all, [keys], all.
	require.NoError(t, m.AddDependencyConsumesCollection("tags.md", CollectionKeys))
	require.NoError(t, m.AddDependencyConsumesCollection("index.md", CollectionAll))

	order := m.GetTemplateOrder()
	allKey := CollectionKey(CollectionAll)
	assert.Equal(t, allKey, order[len(order)-1])
	assert.Equal(t, 1, count(order, allKey))
}

func TestGetTemplateOrder_ValidBuildOrder(t *testing.T) {
	m := NewMap(nil)
	require.NoError(t, m.AddDependencyPublishesToCollection("post1.md", "blog"))
	require.NoError(t, m.AddDependencyPublishesToCollection("post2.md", "blog"))
	require.NoError(t, m.AddDependencyConsumesCollection("index.md", "blog"))

	order := m.GetTemplateOrder()
	blogKey := CollectionKey("blog")
	// Members before their collection, the collection before its consumer.
	assert.Less(t, indexOf(order, "post1.md"), indexOf(order, blogKey))
	assert.Less(t, indexOf(order, "post2.md"), indexOf(order, blogKey))
	assert.Less(t, indexOf(order, blogKey), indexOf(order, "index.md"))
}

func count(list []string, s string) int {
	n := 0
	for _, v := range list {
		if v == s {
			n++
		}
	}
	return n
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
