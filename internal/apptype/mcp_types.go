package apptype

// JaccardSimilarArgs represents the arguments for the jaccard_similar_parents tool
type JaccardSimilarArgs struct {
	ParentID         string     `json:"parentId" jsonschema:"Identifier value of the target parent node."`
	TopK             uint32     `json:"topK,omitempty" jsonschema:"Maximum number of similar parents to return (default 10)."`
	Spec             SchemaSpec `json:"spec" jsonschema:"How parent and child types relate in the graph."`
	OnlyMoreChildren bool       `json:"onlyMoreChildren,omitempty" jsonschema:"Only return parents with more children than the target."`
}

// JaccardRecommendArgs represents the arguments for the jaccard_recommended_items tool
type JaccardRecommendArgs struct {
	ParentID string     `json:"parentId" jsonschema:"Identifier value of the target parent node."`
	TopK     uint32     `json:"topK,omitempty" jsonschema:"Maximum number of items to return (default 10)."`
	Spec     SchemaSpec `json:"spec" jsonschema:"How parent and child types relate in the graph."`
}

// BuildQueryArgs represents the arguments for the build_jaccard_query tool.
// Kind is "similarity" or "recommendation".
type BuildQueryArgs struct {
	Kind             string     `json:"kind" jsonschema:"similarity|recommendation"`
	ParentID         string     `json:"parentId" jsonschema:"Identifier value of the target parent node."`
	TopK             uint32     `json:"topK,omitempty" jsonschema:"Result limit rendered into the query (default 10)."`
	Spec             SchemaSpec `json:"spec" jsonschema:"How parent and child types relate in the graph."`
	OnlyMoreChildren bool       `json:"onlyMoreChildren,omitempty" jsonschema:"Similarity only: restrict to parents with more children."`
}

// QueryTextResult carries a rendered query.
type QueryTextResult struct {
	Kind  string `json:"kind"`
	Query string `json:"query"`
}

// DQLQueryArgs represents the arguments for the dql_query tool
type DQLQueryArgs struct {
	Query     string            `json:"query" jsonschema:"DQL query text."`
	Variables map[string]string `json:"variables,omitempty" jsonschema:"Query variables, keys including the leading $."`
}

// DQLMutateArgs represents the arguments for the dql_mutate tool
type DQLMutateArgs struct {
	Mutation string `json:"mutation" jsonschema:"Mutation in the /mutate body format: { set { ... } delete { ... } }, an upsert block, or {\"set\": [...], \"delete\": [...]}. Committed immediately."`
}

// GraphQLArgs represents the arguments for the graphql_execute tool
type GraphQLArgs struct {
	Query     string            `json:"query" jsonschema:"GraphQL statement."`
	Variables map[string]string `json:"variables,omitempty" jsonschema:"Statement variables."`
}

// EngineResult is the decoded data and extensions of an engine response.
type EngineResult struct {
	Data       map[string]any `json:"data"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// CollectionUpsertArgs represents the arguments for the collection_upsert tool
type CollectionUpsertArgs struct {
	Collection string `json:"collection" jsonschema:"Collection name."`
	Key        string `json:"key,omitempty" jsonschema:"Text key. A UUID is generated when omitted."`
	Text       string `json:"text" jsonschema:"Text to store and index."`
}

// CollectionKeyArgs addresses one text of a collection.
type CollectionKeyArgs struct {
	Collection string `json:"collection" jsonschema:"Collection name."`
	Key        string `json:"key" jsonschema:"Text key."`
}

// CollectionSearchArgs represents the arguments for the collection_search tool
type CollectionSearchArgs struct {
	Collection   string `json:"collection" jsonschema:"Collection name."`
	SearchMethod string `json:"searchMethod,omitempty" jsonschema:"Search method (embedding model) name (default 'default')."`
	Text         string `json:"text" jsonschema:"Query text."`
	Limit        int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 5)."`
	ReturnText   bool   `json:"returnText,omitempty" jsonschema:"Include stored texts in the results."`
}

// CollectionRecomputeArgs represents the arguments for the collection_recompute_search_method tool
type CollectionRecomputeArgs struct {
	Collection   string `json:"collection" jsonschema:"Collection name."`
	SearchMethod string `json:"searchMethod,omitempty" jsonschema:"Search method to rebuild (default 'default')."`
}

// CollectionSimilarityArgs represents the arguments for the collection_compute_similarity tool
type CollectionSimilarityArgs struct {
	Collection   string `json:"collection" jsonschema:"Collection name."`
	SearchMethod string `json:"searchMethod,omitempty" jsonschema:"Search method whose vectors are compared (default 'default')."`
	Key1         string `json:"key1" jsonschema:"First text key."`
	Key2         string `json:"key2" jsonschema:"Second text key."`
}

// CollectionArgs names a collection.
type CollectionArgs struct {
	Collection string `json:"collection" jsonschema:"Collection name."`
}

type TextResult struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

type TextsResult struct {
	Collection string            `json:"collection"`
	Texts      map[string]string `json:"texts"`
}

// ClassifyTextArgs represents the arguments for the classify_text tool
type ClassifyTextArgs struct {
	ModelID   string  `json:"modelId" jsonschema:"Classifier model id."`
	Text      string  `json:"text" jsonschema:"Text to classify."`
	Threshold float64 `json:"threshold,omitempty" jsonschema:"Minimum probability for the top label; below it the label is UNCERTAIN."`
}

type ClassifyTextResult struct {
	Probabilities []ClassificationProbability `json:"probabilities"`
	Top           *ClassificationProbability  `json:"top,omitempty"`
}

// EmbedTextArgs represents the arguments for the embed_text tool
type EmbedTextArgs struct {
	ModelID string `json:"modelId,omitempty" jsonschema:"Embedding model name (default 'default')."`
	Text    string `json:"text" jsonschema:"Text to embed."`
}

type EmbedTextResult struct {
	ModelID   string    `json:"modelId"`
	Embedding []float32 `json:"embedding"`
}

// Health
type HealthArgs struct{}

type HealthResult struct {
	Name            string   `json:"name"`
	Version         string   `json:"version"`
	Revision        string   `json:"revision"`
	BuildDate       string   `json:"buildDate"`
	GraphTransport  string   `json:"graphTransport"`
	Collections     bool     `json:"collections"`
	EmbeddingDims   int      `json:"embeddingDims,omitempty"`
	SearchMethods   []string `json:"searchMethods,omitempty"`
	Classifier      bool     `json:"classifier"`
	CollectionsPing string   `json:"collectionsPing,omitempty"`
}
