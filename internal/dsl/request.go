package dsl

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"martianoff/flowc/flowerr"
)

// ValidateRequest checks that text is a syntactically valid GraphQL
// document with at least one operation.
func ValidateRequest(file, text string) error {
	if strings.TrimSpace(text) == "" {
		return flowerr.NewGenerationInputError("request() needs a GraphQL document")
	}
	doc, err := parser.ParseQuery(&ast.Source{Name: file, Input: text})
	if err != nil {
		return flowerr.NewGenerationInputError(fmt.Sprintf("invalid request in %s: %v", file, err))
	}
	if len(doc.Operations) == 0 {
		return flowerr.NewGenerationInputError(fmt.Sprintf("request in %s has no operation", file))
	}
	return nil
}
