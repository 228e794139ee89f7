// Package dql builds Jaccard similarity and recommendation queries for a
// Dgraph-compatible engine.
//
// The similarity of two parents is computed over their child sets. For the
// target parent with m1 children and a sibling parent with m2 children that
// shares n of them, the distance is 1 - n/(m1+m2-n).
package dql

import (
	"strings"

	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/apperr"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/apptype"
)

// Result keys of the generated queries.
const (
	SimilarNodesKey = "similarNodes"
	ItemsKey        = "items"
)

var (
	varN         = MustVar("n")
	varM1        = MustVar("m1")
	varM1Norm    = MustVar("m1_norm")
	varM2        = MustVar("m2")
	varR         = MustVar("r")
	varDiff      = MustVar("diff")
	varIntersect = MustVar("intersect")
	varItems     = MustVar("items")
	varScore     = MustVar("score")
	varItemScore = MustVar("item_score")
)

// BuildSimilarityQuery renders the query returning the topK parents closest
// to parentID by Jaccard distance, ascending. With onlyMoreChildren, only
// parents with more children than the target are returned.
func BuildSimilarityQuery(parentID string, topK uint32, spec apptype.SchemaSpec, onlyMoreChildren bool) (string, error) {
	q, err := SimilarityQuery(parentID, topK, spec, onlyMoreChildren)
	if err != nil {
		return "", err
	}
	return q.String(), nil
}

// BuildRecommendationQuery renders the query returning the topK children of
// similar parents that parentID does not already have, by score descending.
// Only siblings with more children than the target contribute, and an item
// reached through several siblings accumulates their scores.
func BuildRecommendationQuery(parentID string, topK uint32, spec apptype.SchemaSpec) (string, error) {
	q, err := RecommendationQuery(parentID, topK, spec)
	if err != nil {
		return "", err
	}
	return q.String(), nil
}

// SimilarityQuery is BuildSimilarityQuery before rendering.
func SimilarityQuery(parentID string, topK uint32, spec apptype.SchemaSpec, onlyMoreChildren bool) (*Query, error) {
	p, id, err := prepare(parentID, spec)
	if err != nil {
		return nil, err
	}

	filter := Not(UID(varM1))
	if onlyMoreChildren {
		filter = Gt(Val(varDiff), 0)
	}
	result := &Block{
		Name: SimilarNodesKey,
		Args: []Arg{
			{Key: "func", Value: UID(varR)},
			{Key: "orderasc", Value: Val(varR)},
			{Key: "first", Value: Uint(topK)},
		},
		Filter: filter,
		Body: []Stmt{
			&Field{Alias: "id", Value: Pred(p.parentID)},
			&Field{Alias: "uid", Value: UIDPred()},
			&Field{Alias: "union_size", Value: Math("m1_norm+m2-intersect")},
			&Field{Alias: "intersection_size", Value: Val(varIntersect)},
			&Field{Alias: "jaccard_distance", Value: Val(varR)},
		},
	}

	return &Query{Blocks: []*Block{
		targetBlock(p, id, "", true, onlyMoreChildren),
		result,
	}}, nil
}

// RecommendationQuery is BuildRecommendationQuery before rendering.
func RecommendationQuery(parentID string, topK uint32, spec apptype.SchemaSpec) (*Query, error) {
	p, id, err := prepare(parentID, spec)
	if err != nil {
		return nil, err
	}

	similar := &Block{
		Name: "var",
		Args: []Arg{
			{Key: "func", Value: UID(varR)},
			{Key: "orderasc", Value: Val(varR)},
		},
		Filter: Gt(Val(varDiff), 0),
		Body: []Stmt{
			&Field{As: varScore, Value: Math("1-r")},
			&Block{
				Name:   p.parentChild.name,
				Filter: Not(UID(varItems)),
				Body: []Stmt{
					&Field{As: varItemScore, Value: Math("score")},
				},
			},
		},
	}
	result := &Block{
		Name: ItemsKey,
		Args: []Arg{
			{Key: "func", Value: UID(varItemScore)},
			{Key: "orderdesc", Value: Val(varItemScore)},
			{Key: "first", Value: Uint(topK)},
		},
		Body: []Stmt{
			&Field{Alias: "id", Value: Pred(p.childID)},
			&Field{Alias: "score", Value: Val(varItemScore)},
			&Field{Alias: "uid", Value: UIDPred()},
		},
	}

	return &Query{Blocks: []*Block{
		targetBlock(p, id, varItems, false, true),
		similar,
		result,
	}}, nil
}

func prepare(parentID string, spec apptype.SchemaSpec) (predicates, Literal, error) {
	if strings.TrimSpace(parentID) == "" {
		return predicates{}, Literal{}, apperr.Invalid("parentId", "must not be empty")
	}
	p, err := resolve(spec)
	if err != nil {
		return predicates{}, Literal{}, err
	}
	id, err := NewLiteral("parentId", parentID)
	if err != nil {
		return predicates{}, Literal{}, err
	}
	return p, id, nil
}

// targetBlock walks from the target parent to its children and on to every
// sibling parent, binding the per-sibling distance r.
func targetBlock(p predicates, id Literal, children Var, withIntersect, withDiff bool) *Block {
	sibling := []Stmt{&Field{As: varM1Norm, Value: Math("m1/n")}}
	if withIntersect {
		sibling = append(sibling, &Field{As: varIntersect, Value: Math("n")})
	}
	if withDiff {
		sibling = append(sibling, &Field{As: varDiff, Value: Math("m2-m1_norm")})
	}
	sibling = append(sibling,
		&Field{As: varM2, Value: Count(p.count)},
		&Field{As: varR, Value: Math("1-n/(m2+m1_norm-n)")},
	)

	edge := Edge(p.parentChild, Edge(p.childParent, sibling...))
	edge.As = children

	return &Block{
		Name: "var",
		Args: []Arg{{Key: "func", Value: Eq(p.parentID, id)}},
		Body: []Stmt{
			&Field{As: varN, Alias: "n", Value: Math("1.0")},
			&Field{As: varM1, Value: Count(p.parentChild)},
			edge,
		},
	}
}
