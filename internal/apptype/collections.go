package apptype

// StatusSuccess marks a successful collection operation.
const StatusSuccess = "success"

// CollectionMutationResult is returned by upsert and remove.
type CollectionMutationResult struct {
	Collection string `json:"collection"`
	Operation  string `json:"operation"`
	Status     string `json:"status"`
	Key        string `json:"key"`
	Error      string `json:"error,omitempty"`
}

// SearchMethodMutationResult is returned when a search method is recomputed.
type SearchMethodMutationResult struct {
	Collection   string `json:"collection"`
	SearchMethod string `json:"searchMethod"`
	Operation    string `json:"operation"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
}

// CollectionSearchResult is returned by a collection search.
type CollectionSearchResult struct {
	Collection   string                         `json:"collection"`
	SearchMethod string                         `json:"searchMethod"`
	Status       string                         `json:"status"`
	Objects      []CollectionSearchResultObject `json:"objects"`
	Error        string                         `json:"error,omitempty"`
}

// CollectionSearchResultObject is a scored hit. Score is a cosine similarity.
type CollectionSearchResultObject struct {
	Key   string  `json:"key"`
	Text  string  `json:"text,omitempty"`
	Score float64 `json:"score"`
}
