package graphql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/graphql-go/graphql/language/parser"
	"github.com/graphql-go/graphql/language/source"
)

var disallowedChars = regexp.MustCompile(`[^a-zA-Z0-9:_\-./]`)

// Sanitize strips everything outside the address/token id alphabet before a
// value is interpolated into a document.
func Sanitize(s string) string {
	return disallowedChars.ReplaceAllString(s, "")
}

// Arg is a string argument interpolated into an aliased field.
type Arg struct {
	Name  string
	Value string
}

// Alias returns the alias of the i-th entry in an aliased query.
func Alias(i int) string {
	return fmt.Sprintf("t%d", i)
}

// AliasedQuery builds one document addressing many entities:
//
//	query Op {
//	t0: field(k:"v", ...){ selection }
//	t1: ...
//	}
func AliasedQuery(operation, field string, args [][]Arg, selection string) string {
	var b strings.Builder
	b.WriteString("query ")
	b.WriteString(operation)
	b.WriteString(" {\n")
	for i, fieldArgs := range args {
		b.WriteString(Alias(i))
		b.WriteString(": ")
		b.WriteString(field)
		if len(fieldArgs) > 0 {
			b.WriteString("(")
			for j, a := range fieldArgs {
				if j > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "%s:%q", a.Name, Sanitize(a.Value))
			}
			b.WriteString(")")
		}
		b.WriteString("{ ")
		b.WriteString(selection)
		b.WriteString(" }\n")
	}
	b.WriteString("}")
	return b.String()
}

// Validate parses document and reports syntax errors. It does not check the
// document against any schema.
func Validate(document string) error {
	_, err := parser.Parse(parser.ParseParams{
		Source: source.NewSource(&source.Source{Body: []byte(document), Name: "GraphQL request"}),
	})
	return err
}
