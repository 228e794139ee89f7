package dql

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/apperr"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/apptype"
)

func categorySpec() apptype.SchemaSpec {
	return apptype.SchemaSpec{
		ParentType:           "Category",
		ChildType:            "Product",
		ParentIDField:        "Category.id",
		ChildIDField:         "Product.id",
		ParentChildPredicate: "Category.products",
		ChildParentPredicate: "Product.categories",
	}
}

const wantSimilarity = `{
  var(func:eq(Category.id,"cat-1")) {
    n as n:math(1.0)
    m1 as count(Category.products)
    Category.products {
      Product.categories {
        m1_norm as math(m1/n)
        intersect as math(n)
        m2 as count(Category.products)
        r as math(1-n/(m2+m1_norm-n))
      }
    }
  }
  similarNodes(func:uid(r),orderasc:val(r),first:3) @filter(NOT uid(m1)) {
    id:Category.id
    uid:uid
    union_size:math(m1_norm+m2-intersect)
    intersection_size:val(intersect)
    jaccard_distance:val(r)
  }
}
`

const wantRecommendation = `{
  var(func:eq(Category.id,"cat-1")) {
    n as n:math(1.0)
    m1 as count(Category.products)
    items as Category.products {
      Product.categories {
        m1_norm as math(m1/n)
        diff as math(m2-m1_norm)
        m2 as count(Category.products)
        r as math(1-n/(m2+m1_norm-n))
      }
    }
  }
  var(func:uid(r),orderasc:val(r)) @filter(gt(val(diff),0)) {
    score as math(1-r)
    Category.products @filter(NOT uid(items)) {
      item_score as math(score)
    }
  }
  items(func:uid(item_score),orderdesc:val(item_score),first:5) {
    id:Product.id
    score:val(item_score)
    uid:uid
  }
}
`

func TestBuildSimilarityQuery(t *testing.T) {
	q, err := BuildSimilarityQuery("cat-1", 3, categorySpec(), false)
	require.NoError(t, err)
	assert.Equal(t, wantSimilarity, q)
	assert.Contains(t, q, `eq(Category.id,"cat-1")`)
	assert.Contains(t, q, "first:3")
	assert.Contains(t, q, "@filter(NOT uid(m1))")
}

func TestBuildRecommendationQuery(t *testing.T) {
	q, err := BuildRecommendationQuery("cat-1", 5, categorySpec())
	require.NoError(t, err)
	assert.Equal(t, wantRecommendation, q)
}

func TestBuildersAreDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		a, err := BuildSimilarityQuery("cat-1", 3, categorySpec(), true)
		require.NoError(t, err)
		b, err := BuildSimilarityQuery("cat-1", 3, categorySpec(), true)
		require.NoError(t, err)
		assert.Equal(t, a, b)

		c, err := BuildRecommendationQuery("cat-1", 3, categorySpec())
		require.NoError(t, err)
		d, err := BuildRecommendationQuery("cat-1", 3, categorySpec())
		require.NoError(t, err)
		assert.Equal(t, c, d)
	}
}

func TestOnlyMoreChildrenChangesDiffAndFilterOnly(t *testing.T) {
	plain, err := BuildSimilarityQuery("cat-1", 3, categorySpec(), false)
	require.NoError(t, err)
	more, err := BuildSimilarityQuery("cat-1", 3, categorySpec(), true)
	require.NoError(t, err)

	plainLines := strings.Split(plain, "\n")
	var moreLines []string
	diffLines := 0
	for _, l := range strings.Split(more, "\n") {
		if strings.TrimSpace(l) == "diff as math(m2-m1_norm)" {
			diffLines++
			continue
		}
		moreLines = append(moreLines, l)
	}
	require.Equal(t, 1, diffLines)
	require.Len(t, moreLines, len(plainLines))

	var changed []int
	for i := range plainLines {
		if plainLines[i] != moreLines[i] {
			changed = append(changed, i)
		}
	}
	require.Len(t, changed, 1)
	line := moreLines[changed[0]]
	assert.Contains(t, line, "@filter(gt(val(diff),0))")
	assert.Equal(t,
		strings.Replace(plainLines[changed[0]], "NOT uid(m1)", "gt(val(diff),0)", 1),
		line)
}

func TestTopKZeroIsNotAnError(t *testing.T) {
	q, err := BuildSimilarityQuery("cat-1", 0, categorySpec(), false)
	require.NoError(t, err)
	assert.Contains(t, q, "first:0")

	q, err = BuildRecommendationQuery("cat-1", 0, categorySpec())
	require.NoError(t, err)
	assert.Contains(t, q, "first:0")
}

func TestBareFieldsAreQualified(t *testing.T) {
	spec := apptype.SchemaSpec{
		ParentType:           "Thing",
		ChildType:            "Item",
		ParentIDField:        "id",
		ChildIDField:         "name",
		ParentChildPredicate: "items",
		ChildParentPredicate: "~Thing.items",
	}
	q, err := BuildRecommendationQuery("t1", 2, spec)
	require.NoError(t, err)
	assert.Contains(t, q, `eq(Thing.id,"t1")`)
	assert.Contains(t, q, "m1 as count(Thing.items)")
	assert.Contains(t, q, "      ~Thing.items {")
	assert.Contains(t, q, "id:Item.name")
}

func TestCountPredicateOverride(t *testing.T) {
	spec := categorySpec()
	spec.CountPredicate = "Category.tags"
	q, err := BuildSimilarityQuery("cat-1", 3, spec, false)
	require.NoError(t, err)
	assert.Contains(t, q, "m1 as count(Category.products)")
	assert.Contains(t, q, "m2 as count(Category.tags)")
}

func TestParentIDIsEscaped(t *testing.T) {
	q, err := BuildSimilarityQuery(`x") { evil }`+`\`, 3, categorySpec(), false)
	require.NoError(t, err)
	assert.Contains(t, q, `eq(Category.id,"x\") { evil }\\")`)
}

func TestValidationErrors(t *testing.T) {
	cases := map[string]struct {
		parentID string
		mutate   func(*apptype.SchemaSpec)
		field    string
		sentinel error
	}{
		"empty parent id":       {parentID: "", field: "parentId"},
		"blank parent id":       {parentID: "   ", field: "parentId"},
		"control char in id":    {parentID: "a\nb", field: "parentId", sentinel: apperr.ErrInvalidLiteral},
		"missing parent type":   {parentID: "p", mutate: func(s *apptype.SchemaSpec) { s.ParentType = "" }, field: "parentType"},
		"missing child pred":    {parentID: "p", mutate: func(s *apptype.SchemaSpec) { s.ChildParentPredicate = "" }, field: "childParentPredicate"},
		"quote in predicate":    {parentID: "p", mutate: func(s *apptype.SchemaSpec) { s.ParentChildPredicate = `a"b` }, field: "parentChildPredicate", sentinel: apperr.ErrInvalidIdentifier},
		"brace in id field":     {parentID: "p", mutate: func(s *apptype.SchemaSpec) { s.ParentIDField = "id}" }, field: "parentIdField", sentinel: apperr.ErrInvalidIdentifier},
		"space in child id":     {parentID: "p", mutate: func(s *apptype.SchemaSpec) { s.ChildIDField = "Product id" }, field: "childIdField", sentinel: apperr.ErrInvalidIdentifier},
		"paren in count":        {parentID: "p", mutate: func(s *apptype.SchemaSpec) { s.CountPredicate = "count(x)" }, field: "countPredicate", sentinel: apperr.ErrInvalidIdentifier},
		"dotted type name":      {parentID: "p", mutate: func(s *apptype.SchemaSpec) { s.ChildType = "Prod.uct" }, field: "childType", sentinel: apperr.ErrInvalidIdentifier},
		"reverse edge as type":  {parentID: "p", mutate: func(s *apptype.SchemaSpec) { s.ParentType = "~Category" }, field: "parentType", sentinel: apperr.ErrInvalidIdentifier},
		"dash in predicate":     {parentID: "p", mutate: func(s *apptype.SchemaSpec) { s.ParentChildPredicate = "has-dash" }, field: "parentChildPredicate", sentinel: apperr.ErrInvalidIdentifier},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			spec := categorySpec()
			if tc.mutate != nil {
				tc.mutate(&spec)
			}
			for _, build := range []func() (string, error){
				func() (string, error) { return BuildSimilarityQuery(tc.parentID, 3, spec, false) },
				func() (string, error) { return BuildRecommendationQuery(tc.parentID, 3, spec) },
			} {
				q, err := build()
				require.Error(t, err)
				assert.Empty(t, q)

				var ve *apperr.ValidationError
				require.True(t, errors.As(err, &ve))
				assert.Equal(t, tc.field, ve.Field)
				if tc.sentinel != nil {
					assert.ErrorIs(t, err, tc.sentinel)
				}
			}
		})
	}
}

func TestValidateSchema(t *testing.T) {
	require.NoError(t, ValidateSchema(categorySpec()))
	err := ValidateSchema(apptype.SchemaSpec{})
	assert.True(t, apperr.IsValidation(err))
}

func TestMathRejectsForeignCharacters(t *testing.T) {
	assert.Panics(t, func() { Math("1-r) } { x") })
	assert.Panics(t, func() { MustVar("a b") })
	assert.NotPanics(t, func() { Math("1-n/(m2+m1_norm-n)") })
}

func FuzzNewLiteral(f *testing.F) {
	for _, seed := range []string{"cat-1", `a"b`, `a\b`, "", "é", "\x00", `\"`} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, s string) {
		lit, err := NewLiteral("v", s)
		if err != nil {
			require.True(t, apperr.IsValidation(err))
			return
		}
		out := lit.String()
		require.True(t, len(out) >= 2 && out[0] == '"' && out[len(out)-1] == '"')

		// unescape the body; an unescaped quote would end the literal early
		body := out[1 : len(out)-1]
		var b strings.Builder
		for i := 0; i < len(body); i++ {
			switch body[i] {
			case '\\':
				require.Less(t, i+1, len(body))
				i++
				b.WriteByte(body[i])
			case '"':
				t.Fatalf("unescaped quote in %q", out)
			default:
				b.WriteByte(body[i])
			}
		}
		require.Equal(t, s, b.String())
	})
}

func FuzzParseIdent(f *testing.F) {
	for _, seed := range []string{"Category.products", "~Thing.items", "a b", "x)", `"`, "_"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, s string) {
		id, err := ParseIdent("f", s)
		if err != nil {
			require.ErrorIs(t, err, apperr.ErrInvalidIdentifier)
			return
		}
		require.NotContainsf(t, id.String(), " ", "ident %q", s)
		require.False(t, strings.ContainsAny(id.String(), `"(){}@,:\`))
	})
}

func BenchmarkBuildRecommendationQuery(b *testing.B) {
	spec := categorySpec()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := BuildRecommendationQuery("cat-1", 10, spec); err != nil {
			b.Fatal(err)
		}
	}
}
