package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestSortByEmail(t *testing.T) {
	tests := []struct {
		name   string
		q      string
		status string
		want   bool
	}{
		{"email with active status", "user@example.com", "active", true},
		{"partial email with disabled status", "@domain", "disabled", true},
		{"status is case-insensitive", "user@", " ACTIVE ", true},
		{"email without status", "user@example.com", "", false},
		{"name with status", "john doe", "active", false},
		{"empty query", "", "active", false},
		{"unknown status", "user@example.com", "pending", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SortByEmail(tt.q, tt.status))
		})
	}
}

func TestManualFilter_Empty(t *testing.T) {
	assert.Empty(t, ManualFilter(Filter{}))
}

func TestManualFilter_TextIsEscapedAndCaseInsensitive(t *testing.T) {
	f := ManualFilter(Filter{Query: "a+b (clinic)"})

	or, ok := f["$or"].([]bson.M)
	require.True(t, ok, "expected $or clause")
	require.Len(t, or, 4)

	rx := or[0]["name"].(bson.M)
	assert.Equal(t, `a\+b \(clinic\)`, rx["$regex"])
	assert.Equal(t, "i", rx["$options"])
}

func TestManualFilter_CategoriesAndTags(t *testing.T) {
	f := ManualFilter(Filter{Categories: []string{"legal", "housing"}, Tags: []string{"free"}})

	assert.Equal(t, bson.M{"$in": []string{"legal", "housing"}}, f["category"])
	assert.Equal(t, bson.M{"$in": []string{"free"}}, f["tags"])
	assert.NotContains(t, f, "$or")
	assert.NotContains(t, f, "address.zip_code")
}

func TestManualFilter_ZipCode(t *testing.T) {
	f := ManualFilter(Filter{ZipCode: "62701"})
	assert.Equal(t, bson.M{"address.zip_code": "62701"}, f)
}

func TestAtlasPipeline(t *testing.T) {
	p := AtlasPipeline("", Filter{Query: "food bank", Categories: []string{"food"}}, true)
	require.Len(t, p, 2)

	stage := p[0][0]
	assert.Equal(t, "$search", stage.Key)
	s := stage.Value.(bson.M)
	assert.Equal(t, DefaultIndex, s["index"])

	compound := s["compound"].(bson.M)
	assert.Contains(t, compound, "must")
	assert.Len(t, compound["filter"], 1)

	assert.Equal(t, "$sort", p[1][0].Key)
}

func TestAtlasPipeline_RelevanceOrderWithoutFilters(t *testing.T) {
	p := AtlasPipeline("custom", Filter{Query: "shelter"}, false)
	require.Len(t, p, 1)

	s := p[0][0].Value.(bson.M)
	assert.Equal(t, "custom", s["index"])
	assert.NotContains(t, s["compound"].(bson.M), "filter")
}

func TestPageFacet(t *testing.T) {
	base := AtlasPipeline("", Filter{Query: "x"}, false)
	p := PageFacet(base, 20, 10)

	require.Len(t, p, 2)
	require.Len(t, base, 1, "base pipeline must not be modified")

	facet := p[1][0].Value.(bson.M)
	items := facet["items"].(bson.A)
	assert.Equal(t, bson.A{bson.M{"$skip": int64(20)}, bson.M{"$limit": int64(10)}}, items)

	all := PageFacet(base, 0, 0)
	require.Len(t, all, 1, "unpaged pipeline has no $facet stage")
	assert.Equal(t, "$search", all[0][0].Key)

	skipOnly := PageFacet(base, 5, 0)
	require.Len(t, skipOnly, 2)
	assert.NotEmpty(t, skipOnly[1][0].Value.(bson.M)["items"])
}
