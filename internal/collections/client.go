package collections

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/apperr"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/apptype"
)

// Host is the collection service as seen by callers. Mutating and search
// operations report failure through the result status rather than an error.
type Host interface {
	UpsertToCollection(ctx context.Context, collection, key, text string) apptype.CollectionMutationResult
	DeleteFromCollection(ctx context.Context, collection, key string) apptype.CollectionMutationResult
	SearchCollection(ctx context.Context, collection, searchMethod, text string, limit int, returnText bool) apptype.CollectionSearchResult
	RecomputeSearchMethod(ctx context.Context, collection, searchMethod string) apptype.SearchMethodMutationResult
	ComputeSimilarity(ctx context.Context, collection, searchMethod, key1, key2 string) (apptype.CollectionSearchResultObject, error)
	GetText(ctx context.Context, collection, key string) (string, error)
	GetTexts(ctx context.Context, collection string) (map[string]string, error)
}

var _ Host = (*Store)(nil)

// Client validates inputs and turns any status other than "success" into a
// *apperr.StatusError.
type Client struct {
	host     Host
	validate *validator.Validate
}

// NewClient wraps host.
func NewClient(host Host) *Client {
	return &Client{host: host, validate: validator.New()}
}

type collectionInput struct {
	Collection string `validate:"required"`
}

type keyInput struct {
	Collection string `validate:"required"`
	Key        string `validate:"required"`
}

type searchInput struct {
	Collection string `validate:"required"`
	Limit      int    `validate:"gt=0"`
}

type similarityInput struct {
	Collection string `validate:"required"`
	Key1       string `validate:"required"`
	Key2       string `validate:"required"`
}

func (c *Client) check(v any) error {
	if err := c.validate.Struct(v); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return &apperr.ValidationError{Field: fe.Field(), Reason: fmt.Sprintf("failed %q check", fe.Tag()), Err: err}
		}
		return &apperr.ValidationError{Reason: err.Error(), Err: err}
	}
	return nil
}

// Upsert stores text under key; an empty key lets the host generate one.
func (c *Client) Upsert(ctx context.Context, collection, key, text string) (apptype.CollectionMutationResult, error) {
	if err := c.check(collectionInput{Collection: collection}); err != nil {
		return apptype.CollectionMutationResult{}, err
	}
	res := c.host.UpsertToCollection(ctx, collection, key, text)
	if res.Status != apptype.StatusSuccess {
		return res, &apperr.StatusError{Op: OpUpsert, Collection: collection, Status: res.Status, Message: "Error upserting to Text index."}
	}
	return res, nil
}

// Remove deletes key from collection.
func (c *Client) Remove(ctx context.Context, collection, key string) (apptype.CollectionMutationResult, error) {
	if err := c.check(keyInput{Collection: collection, Key: key}); err != nil {
		return apptype.CollectionMutationResult{}, err
	}
	res := c.host.DeleteFromCollection(ctx, collection, key)
	if res.Status != apptype.StatusSuccess {
		return res, &apperr.StatusError{Op: OpDelete, Collection: collection, Status: res.Status, Message: "Error deleting from Text index."}
	}
	return res, nil
}

// Search returns up to limit texts similar to text under searchMethod.
func (c *Client) Search(ctx context.Context, collection, searchMethod, text string, limit int, returnText bool) (apptype.CollectionSearchResult, error) {
	if err := c.check(searchInput{Collection: collection, Limit: limit}); err != nil {
		return apptype.CollectionSearchResult{}, err
	}
	res := c.host.SearchCollection(ctx, collection, searchMethod, text, limit, returnText)
	if res.Status != apptype.StatusSuccess {
		return res, &apperr.StatusError{Op: OpSearch, Collection: collection, Status: res.Status, Message: "Error searching Text index."}
	}
	return res, nil
}

// RecomputeSearchMethod re-embeds collection with searchMethod.
func (c *Client) RecomputeSearchMethod(ctx context.Context, collection, searchMethod string) (apptype.SearchMethodMutationResult, error) {
	if err := c.check(collectionInput{Collection: collection}); err != nil {
		return apptype.SearchMethodMutationResult{}, err
	}
	res := c.host.RecomputeSearchMethod(ctx, collection, searchMethod)
	if res.Status != apptype.StatusSuccess {
		return res, &apperr.StatusError{Op: OpRecompute, Collection: collection, Status: res.Status, Message: "Error recomputing Text index."}
	}
	return res, nil
}

// ComputeSimilarity compares two stored texts.
func (c *Client) ComputeSimilarity(ctx context.Context, collection, searchMethod, key1, key2 string) (apptype.CollectionSearchResultObject, error) {
	if err := c.check(similarityInput{Collection: collection, Key1: key1, Key2: key2}); err != nil {
		return apptype.CollectionSearchResultObject{}, err
	}
	return c.host.ComputeSimilarity(ctx, collection, searchMethod, key1, key2)
}

// GetText returns the text stored under key.
func (c *Client) GetText(ctx context.Context, collection, key string) (string, error) {
	if err := c.check(keyInput{Collection: collection, Key: key}); err != nil {
		return "", err
	}
	return c.host.GetText(ctx, collection, key)
}

// GetTexts returns all texts of collection by key.
func (c *Client) GetTexts(ctx context.Context, collection string) (map[string]string, error) {
	if err := c.check(collectionInput{Collection: collection}); err != nil {
		return nil, err
	}
	return c.host.GetTexts(ctx, collection)
}
