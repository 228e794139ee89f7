package dql

import (
	"reflect"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/apperr"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/apptype"
)

var (
	predicatePattern = regexp.MustCompile(`^~?[A-Za-z_][A-Za-z0-9_.]*$`)
	typePattern      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	validate         = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	// report json names so errors match what callers send
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Ident is a predicate name that is safe to place into a query.
type Ident struct{ name string }

// ParseIdent validates s as a predicate name. field names the input for
// error reporting.
func ParseIdent(field, s string) (Ident, error) {
	if !predicatePattern.MatchString(s) {
		return Ident{}, &apperr.ValidationError{
			Field:  field,
			Reason: "is not a valid predicate name: " + strconvQuote(s),
			Err:    apperr.ErrInvalidIdentifier,
		}
	}
	return Ident{name: s}, nil
}

func (i Ident) String() string { return i.name }

// Literal is a quoted and escaped string value.
type Literal struct{ quoted string }

// NewLiteral quotes s as a query string literal. Backslashes and double
// quotes are escaped; control characters and invalid UTF-8 are rejected.
func NewLiteral(field, s string) (Literal, error) {
	if !utf8.ValidString(s) {
		return Literal{}, &apperr.ValidationError{Field: field, Reason: "is not valid UTF-8", Err: apperr.ErrInvalidLiteral}
	}
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case unicode.IsControl(r):
			return Literal{}, &apperr.ValidationError{Field: field, Reason: "contains control characters", Err: apperr.ErrInvalidLiteral}
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return Literal{quoted: b.String()}, nil
}

func (l Literal) String() string { return l.quoted }

// predicates is a SchemaSpec resolved into query-safe identifiers.
type predicates struct {
	parentID    Ident
	childID     Ident
	parentChild Ident
	childParent Ident
	count       Ident
}

// ValidateSchema checks that every required field is present and that each
// field resolves to a valid predicate name.
func ValidateSchema(spec apptype.SchemaSpec) error {
	_, err := resolve(spec)
	return err
}

func resolve(spec apptype.SchemaSpec) (predicates, error) {
	if err := validate.Struct(spec); err != nil {
		return predicates{}, translate(err)
	}
	if !typePattern.MatchString(spec.ParentType) {
		return predicates{}, &apperr.ValidationError{Field: "parentType", Reason: "is not a valid type name: " + strconvQuote(spec.ParentType), Err: apperr.ErrInvalidIdentifier}
	}
	if !typePattern.MatchString(spec.ChildType) {
		return predicates{}, &apperr.ValidationError{Field: "childType", Reason: "is not a valid type name: " + strconvQuote(spec.ChildType), Err: apperr.ErrInvalidIdentifier}
	}

	var (
		p   predicates
		err error
	)
	if p.parentID, err = ParseIdent("parentIdField", qualify(spec.ParentType, spec.ParentIDField)); err != nil {
		return predicates{}, err
	}
	if p.childID, err = ParseIdent("childIdField", qualify(spec.ChildType, spec.ChildIDField)); err != nil {
		return predicates{}, err
	}
	if p.parentChild, err = ParseIdent("parentChildPredicate", qualify(spec.ParentType, spec.ParentChildPredicate)); err != nil {
		return predicates{}, err
	}
	if p.childParent, err = ParseIdent("childParentPredicate", qualify(spec.ChildType, spec.ChildParentPredicate)); err != nil {
		return predicates{}, err
	}
	p.count = p.parentChild
	if spec.CountPredicate != "" {
		if p.count, err = ParseIdent("countPredicate", qualify(spec.ParentType, spec.CountPredicate)); err != nil {
			return predicates{}, err
		}
	}
	return p, nil
}

// qualify prefixes a bare field with its type. Dotted names and reverse
// edges are taken as already qualified.
func qualify(typ, field string) string {
	if strings.HasPrefix(field, "~") || strings.Contains(field, ".") {
		return field
	}
	return typ + "." + field
}

func translate(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return &apperr.ValidationError{Reason: err.Error(), Err: err}
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return &apperr.ValidationError{Field: fe.Field(), Reason: "is required", Err: err}
	default:
		return &apperr.ValidationError{Field: fe.Field(), Reason: "is invalid", Err: err}
	}
}

// strconvQuote keeps error messages readable for hostile input.
func strconvQuote(s string) string {
	if len(s) > 64 {
		s = s[:64] + "..."
	}
	return "'" + strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return '?'
		}
		return r
	}, s) + "'"
}
