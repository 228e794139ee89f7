package apptype

// SchemaSpec describes how parent and child node types relate in the graph.
// Fields may be fully qualified predicates ("Category.products") or bare
// names ("products") that get qualified with their type.
type SchemaSpec struct {
	ParentType           string `json:"parentType" validate:"required" jsonschema:"Type name of the parent nodes (e.g. Category)."`
	ChildType            string `json:"childType" validate:"required" jsonschema:"Type name of the child nodes (e.g. Product)."`
	ParentIDField        string `json:"parentIdField" validate:"required" jsonschema:"Identifier predicate of parent nodes."`
	ChildIDField         string `json:"childIdField" validate:"required" jsonschema:"Identifier predicate of child nodes."`
	ParentChildPredicate string `json:"parentChildPredicate" validate:"required" jsonschema:"Edge from a parent to its children."`
	ChildParentPredicate string `json:"childParentPredicate" validate:"required" jsonschema:"Edge from a child to the parents it belongs to."`
	// CountPredicate is counted on sibling parents to size their child set.
	// Empty means the parent-to-child predicate.
	CountPredicate string `json:"countPredicate,omitempty" jsonschema:"Optional predicate counted on sibling parents (defaults to parentChildPredicate)."`
}

// SimilarityNode is one row of a Jaccard similarity result.
type SimilarityNode struct {
	ID               string  `json:"id"`
	UID              string  `json:"uid"`
	JaccardDistance  float64 `json:"jaccard_distance"`
	UnionSize        float64 `json:"union_size"`
	IntersectionSize float64 `json:"intersection_size"`
}

// RecommendedItem is one row of a Jaccard recommendation result.
type RecommendedItem struct {
	ID    string  `json:"id"`
	UID   string  `json:"uid"`
	Score float64 `json:"score"`
}

// SimilarityResult is the data payload of a similarity query.
type SimilarityResult struct {
	SimilarNodes []SimilarityNode `json:"similarNodes"`
}

// RecommendationResult is the data payload of a recommendation query.
type RecommendationResult struct {
	Items []RecommendedItem `json:"items"`
}

// MutationResult is the data payload of a DQL mutation.
type MutationResult struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Queries map[string]any    `json:"queries,omitempty"`
	UIDs    map[string]string `json:"uids,omitempty"`
}

// ClassificationProbability is a single label score.
type ClassificationProbability struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// ClassificationResult holds all label scores for one input text.
type ClassificationResult struct {
	Probabilities []ClassificationProbability `json:"probabilities"`
}
