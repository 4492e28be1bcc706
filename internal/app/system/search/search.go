// Package search builds the MongoDB queries behind resource search and the
// sort choices used by admin listings.
//
// Two query styles exist for the same Filter. AtlasPipeline targets a managed
// Atlas Search index; ManualFilter is a plain find filter that works on any
// deployment. Callers try Atlas first and fall back to the manual filter when
// the index is missing or the cluster is not on Atlas.
package search

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// DefaultIndex is the Atlas Search index name used when none is configured.
const DefaultIndex = "resources_search"

// TextPaths are the fields a free-text query matches against.
var TextPaths = []string{"name", "description", "tags", "category", "services_provided"}

// Filter is a normalized resource search.
type Filter struct {
	Query      string   // free text, trimmed
	Categories []string // any-of
	Tags       []string // any-of
	ZipCode    string   // exact match on address.zip_code
}

// HasText reports whether a free-text query was given.
func (f Filter) HasText() bool { return f.Query != "" }

// CreatedDesc is the default listing order: newest first, _id breaking ties.
var CreatedDesc = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

// ManualFilter returns a find filter equivalent to f. Text matching is a
// case-insensitive substring match on name, description, tags and services.
func ManualFilter(f Filter) bson.M {
	filter := bson.M{}
	if f.HasText() {
		rx := primitiveRegex(f.Query)
		filter["$or"] = []bson.M{
			{"name": rx},
			{"description": rx},
			{"tags": rx},
			{"services_provided": rx},
		}
	}
	if len(f.Categories) > 0 {
		filter["category"] = bson.M{"$in": f.Categories}
	}
	if len(f.Tags) > 0 {
		filter["tags"] = bson.M{"$in": f.Tags}
	}
	if f.ZipCode != "" {
		filter["address.zip_code"] = f.ZipCode
	}
	return filter
}

func primitiveRegex(q string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(q), "$options": "i"}
}

// AtlasPipeline returns the $search stages for f against index. When
// byCreated is true results are re-sorted newest first; otherwise Atlas
// relevance order is kept.
func AtlasPipeline(index string, f Filter, byCreated bool) mongo.Pipeline {
	if index == "" {
		index = DefaultIndex
	}
	compound := bson.M{
		"must": bson.A{
			bson.M{"text": bson.M{
				"query": f.Query,
				"path":  TextPaths,
				"fuzzy": bson.M{"maxEdits": 1},
			}},
		},
	}
	var filters bson.A
	if len(f.Categories) > 0 {
		filters = append(filters, bson.M{"in": bson.M{"path": "category", "value": f.Categories}})
	}
	if len(f.Tags) > 0 {
		filters = append(filters, bson.M{"in": bson.M{"path": "tags", "value": f.Tags}})
	}
	if f.ZipCode != "" {
		filters = append(filters, bson.M{"phrase": bson.M{"path": "address.zip_code", "query": f.ZipCode}})
	}
	if len(filters) > 0 {
		compound["filter"] = filters
	}

	p := mongo.Pipeline{
		{{Key: "$search", Value: bson.M{"index": index, "compound": compound}}},
	}
	if byCreated {
		p = append(p, bson.D{{Key: "$sort", Value: CreatedDesc}})
	}
	return p
}

// PageFacet appends a $facet stage that returns one page of items and the
// total match count in a single round trip. With skip and limit both 0 there
// is nothing to page, so p is returned as a copy without a $facet stage
// (MongoDB rejects an empty facet sub-pipeline).
func PageFacet(p mongo.Pipeline, skip, limit int64) mongo.Pipeline {
	out := append(mongo.Pipeline{}, p...)
	if skip <= 0 && limit <= 0 {
		return out
	}
	items := bson.A{}
	if skip > 0 {
		items = append(items, bson.M{"$skip": skip})
	}
	if limit > 0 {
		items = append(items, bson.M{"$limit": limit})
	}
	return append(out, bson.D{{Key: "$facet", Value: bson.M{
		"items": items,
		"total": bson.A{bson.M{"$count": "n"}},
	}}})
}

// SortByEmail reports whether it is safe and useful to pivot a paged user
// listing from name order to email order. That is the case when the query
// clearly targets an email address and the status filter is fixed, so the
// email index path stays selective.
//
//	sortField := "name_ci"
//	if search.SortByEmail(q, status) {
//	    sortField = "email"
//	}
func SortByEmail(q, status string) bool {
	return strings.Contains(q, "@") && equalsAnyFold(status, "active", "disabled")
}

func equalsAnyFold(s string, vals ...string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	for _, v := range vals {
		if s == strings.ToLower(v) {
			return true
		}
	}
	return false
}
