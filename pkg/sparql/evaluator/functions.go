package evaluator

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
	"github.com/aleksaelezovic/rdfixture/pkg/sparql/parser"
	"github.com/aleksaelezovic/rdfixture/pkg/store"
)

// evaluateFunctionCall evaluates a function call expression
func (e *Evaluator) evaluateFunctionCall(expr *parser.FunctionCallExpression, binding *store.Binding) (rdf.Term, error) {
	name := expr.Function

	// Functions that do not evaluate all of their arguments eagerly
	switch name {
	case "BOUND":
		return e.evaluateBound(expr.Arguments, binding)
	case "IF":
		return e.evaluateIf(expr.Arguments, binding)
	case "COALESCE":
		return e.evaluateCoalesce(expr.Arguments, binding)
	}

	args := make([]rdf.Term, len(expr.Arguments))
	for i, argExpr := range expr.Arguments {
		arg, err := e.Evaluate(argExpr, binding)
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}

	fn, ok := builtins[name]
	if !ok {
		if strings.HasPrefix(name, xsd) {
			return evaluateTypeCast(name, args)
		}
		return nil, fmt.Errorf("unsupported function: %s", name)
	}
	if len(args) < fn.minArgs || (fn.maxArgs >= 0 && len(args) > fn.maxArgs) {
		return nil, fmt.Errorf("wrong number of arguments for %s: %d", name, len(args))
	}
	return fn.call(e, args)
}

type builtin struct {
	minArgs int
	maxArgs int // -1 for variadic
	call    func(e *Evaluator, args []rdf.Term) (rdf.Term, error)
}

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		// Type checking functions
		"ISIRI":     {1, 1, isTermType(rdf.TermTypeNamedNode)},
		"ISURI":     {1, 1, isTermType(rdf.TermTypeNamedNode)},
		"ISBLANK":   {1, 1, isTermType(rdf.TermTypeBlankNode)},
		"ISLITERAL": {1, 1, isTermType(rdf.TermTypeLiteral)},
		"ISNUMERIC": {1, 1, evaluateIsNumeric},

		// Value extraction and construction
		"STR":      {1, 1, evaluateStr},
		"LANG":     {1, 1, evaluateLang},
		"DATATYPE": {1, 1, evaluateDatatype},
		"IRI":      {1, 1, evaluateIRI},
		"URI":      {1, 1, evaluateIRI},
		"STRDT":    {2, 2, evaluateStrDT},
		"STRLANG":  {2, 2, evaluateStrLang},
		"SAMETERM": {2, 2, evaluateSameTerm},

		// String functions
		"STRLEN":         {1, 1, evaluateStrLen},
		"SUBSTR":         {2, 3, evaluateSubStr},
		"UCASE":          {1, 1, mapString(strings.ToUpper)},
		"LCASE":          {1, 1, mapString(strings.ToLower)},
		"CONCAT":         {0, -1, evaluateConcat},
		"CONTAINS":       {2, 2, compareStrings(strings.Contains)},
		"STRSTARTS":      {2, 2, compareStrings(strings.HasPrefix)},
		"STRENDS":        {2, 2, compareStrings(strings.HasSuffix)},
		"STRBEFORE":      {2, 2, evaluateStrBefore},
		"STRAFTER":       {2, 2, evaluateStrAfter},
		"ENCODE_FOR_URI": {1, 1, evaluateEncodeForURI},
		"REGEX":          {2, 3, (*Evaluator).evaluateRegex},
		"REPLACE":        {3, 4, (*Evaluator).evaluateReplace},
		"LANGMATCHES":    {2, 2, evaluateLangMatches},

		// Numeric functions
		"ABS":   {1, 1, mapNumber(math.Abs)},
		"CEIL":  {1, 1, mapNumber(math.Ceil)},
		"FLOOR": {1, 1, mapNumber(math.Floor)},
		"ROUND": {1, 1, mapNumber(func(f float64) float64 { return math.Floor(f + 0.5) })},
	}
}

// Functional forms

func (e *Evaluator) evaluateBound(args []parser.Expression, binding *store.Binding) (rdf.Term, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("BOUND requires exactly 1 argument")
	}

	// BOUND checks the variable without evaluating it
	varExpr, ok := args[0].(*parser.VariableExpression)
	if !ok {
		return nil, fmt.Errorf("BOUND requires a variable argument")
	}

	_, exists := binding.Vars[varExpr.Variable.Name]
	return rdf.NewBooleanLiteral(exists), nil
}

func (e *Evaluator) evaluateIf(args []parser.Expression, binding *store.Binding) (rdf.Term, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("IF requires exactly 3 arguments")
	}
	condition, err := e.ebv(args[0], binding)
	if err != nil {
		return nil, err
	}
	if condition {
		return e.Evaluate(args[1], binding)
	}
	return e.Evaluate(args[2], binding)
}

func (e *Evaluator) evaluateCoalesce(args []parser.Expression, binding *store.Binding) (rdf.Term, error) {
	for _, arg := range args {
		term, err := e.Evaluate(arg, binding)
		if err == nil {
			return term, nil
		}
	}
	return nil, fmt.Errorf("COALESCE: no argument could be evaluated")
}

// Type checking functions

func isTermType(want rdf.TermType) func(*Evaluator, []rdf.Term) (rdf.Term, error) {
	return func(_ *Evaluator, args []rdf.Term) (rdf.Term, error) {
		return rdf.NewBooleanLiteral(args[0].Type() == want), nil
	}
}

func evaluateIsNumeric(_ *Evaluator, args []rdf.Term) (rdf.Term, error) {
	_, ok := numericValue(args[0])
	return rdf.NewBooleanLiteral(ok), nil
}

// Value extraction and construction

func evaluateStr(_ *Evaluator, args []rdf.Term) (rdf.Term, error) {
	switch t := args[0].(type) {
	case *rdf.NamedNode:
		return rdf.NewLiteral(t.IRI), nil
	case *rdf.Literal:
		return rdf.NewLiteral(t.Value), nil
	}
	return nil, fmt.Errorf("STR is not defined for %s", args[0])
}

func evaluateLang(_ *Evaluator, args []rdf.Term) (rdf.Term, error) {
	lit, ok := args[0].(*rdf.Literal)
	if !ok {
		return nil, fmt.Errorf("LANG requires a literal")
	}
	return rdf.NewLiteral(lit.Language), nil
}

func evaluateDatatype(_ *Evaluator, args []rdf.Term) (rdf.Term, error) {
	lit, ok := args[0].(*rdf.Literal)
	if !ok {
		return nil, fmt.Errorf("DATATYPE requires a literal")
	}
	return rdf.NewNamedNode(lit.DatatypeIRI()), nil
}

func evaluateIRI(_ *Evaluator, args []rdf.Term) (rdf.Term, error) {
	switch t := args[0].(type) {
	case *rdf.NamedNode:
		return t, nil
	case *rdf.Literal:
		if t.DatatypeIRI() == xsd+"string" {
			return rdf.NewNamedNode(t.Value), nil
		}
	}
	return nil, fmt.Errorf("IRI requires a simple literal or IRI")
}

func evaluateStrDT(_ *Evaluator, args []rdf.Term) (rdf.Term, error) {
	value, err := simpleString(args[0])
	if err != nil {
		return nil, err
	}
	datatype, ok := args[1].(*rdf.NamedNode)
	if !ok {
		return nil, fmt.Errorf("STRDT requires an IRI datatype")
	}
	return rdf.NewLiteralWithDatatype(value, datatype), nil
}

func evaluateStrLang(_ *Evaluator, args []rdf.Term) (rdf.Term, error) {
	value, err := simpleString(args[0])
	if err != nil {
		return nil, err
	}
	lang, err := simpleString(args[1])
	if err != nil || lang == "" {
		return nil, fmt.Errorf("STRLANG requires a language tag")
	}
	return rdf.NewLiteralWithLanguage(value, lang), nil
}

// evaluateSameTerm is strict equality without value comparison
func evaluateSameTerm(_ *Evaluator, args []rdf.Term) (rdf.Term, error) {
	return rdf.NewBooleanLiteral(args[0].Equals(args[1])), nil
}

// String functions

// stringArg returns the lexical value and language of a string literal
func stringArg(term rdf.Term) (string, string, error) {
	lit, ok := term.(*rdf.Literal)
	if !ok {
		return "", "", fmt.Errorf("expected a string literal, got %s", term)
	}
	if lit.Language == "" && lit.DatatypeIRI() != xsd+"string" {
		return "", "", fmt.Errorf("expected a string literal, got %s", term)
	}
	return lit.Value, lit.Language, nil
}

// simpleString accepts only literals without a language tag
func simpleString(term rdf.Term) (string, error) {
	value, lang, err := stringArg(term)
	if err != nil {
		return "", err
	}
	if lang != "" {
		return "", fmt.Errorf("expected a simple literal, got %s", term)
	}
	return value, nil
}

// stringLiteral builds a result that keeps the language of its input
func stringLiteral(value, lang string) *rdf.Literal {
	if lang != "" {
		return rdf.NewLiteralWithLanguage(value, lang)
	}
	return rdf.NewLiteral(value)
}

func evaluateStrLen(_ *Evaluator, args []rdf.Term) (rdf.Term, error) {
	value, _, err := stringArg(args[0])
	if err != nil {
		return nil, err
	}
	return rdf.NewIntegerLiteral(int64(utf8.RuneCountInString(value))), nil
}

// evaluateSubStr uses 1-based character positions
func evaluateSubStr(_ *Evaluator, args []rdf.Term) (rdf.Term, error) {
	value, lang, err := stringArg(args[0])
	if err != nil {
		return nil, err
	}
	start, ok := numericValue(args[1])
	if !ok {
		return nil, fmt.Errorf("SUBSTR requires a numeric start")
	}

	runes := []rune(value)
	from := int(math.Round(start.float()))
	to := len(runes) + 1
	if len(args) == 3 {
		length, ok := numericValue(args[2])
		if !ok {
			return nil, fmt.Errorf("SUBSTR requires a numeric length")
		}
		to = from + int(math.Round(length.float()))
	}
	from = max(from, 1)
	to = min(to, len(runes)+1)
	if from >= to {
		return stringLiteral("", lang), nil
	}
	return stringLiteral(string(runes[from-1:to-1]), lang), nil
}

func mapString(fn func(string) string) func(*Evaluator, []rdf.Term) (rdf.Term, error) {
	return func(_ *Evaluator, args []rdf.Term) (rdf.Term, error) {
		value, lang, err := stringArg(args[0])
		if err != nil {
			return nil, err
		}
		return stringLiteral(fn(value), lang), nil
	}
}

// evaluateConcat keeps a common language tag and drops differing ones
func evaluateConcat(_ *Evaluator, args []rdf.Term) (rdf.Term, error) {
	var sb strings.Builder
	lang := ""
	for i, arg := range args {
		value, argLang, err := stringArg(arg)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			lang = argLang
		} else if lang != argLang {
			lang = ""
		}
		sb.WriteString(value)
	}
	return stringLiteral(sb.String(), lang), nil
}

// compatibleStrings extracts two string arguments whose languages are
// compatible: equal, or the second one without a tag
func compatibleStrings(left, right rdf.Term) (string, string, string, error) {
	a, langA, err := stringArg(left)
	if err != nil {
		return "", "", "", err
	}
	b, langB, err := stringArg(right)
	if err != nil {
		return "", "", "", err
	}
	if langB != "" && langA != langB {
		return "", "", "", fmt.Errorf("incompatible language tags %q and %q", langA, langB)
	}
	return a, b, langA, nil
}

func compareStrings(fn func(string, string) bool) func(*Evaluator, []rdf.Term) (rdf.Term, error) {
	return func(_ *Evaluator, args []rdf.Term) (rdf.Term, error) {
		a, b, _, err := compatibleStrings(args[0], args[1])
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(fn(a, b)), nil
	}
}

func evaluateStrBefore(_ *Evaluator, args []rdf.Term) (rdf.Term, error) {
	a, b, lang, err := compatibleStrings(args[0], args[1])
	if err != nil {
		return nil, err
	}
	idx := strings.Index(a, b)
	if idx < 0 {
		return rdf.NewLiteral(""), nil
	}
	return stringLiteral(a[:idx], lang), nil
}

func evaluateStrAfter(_ *Evaluator, args []rdf.Term) (rdf.Term, error) {
	a, b, lang, err := compatibleStrings(args[0], args[1])
	if err != nil {
		return nil, err
	}
	idx := strings.Index(a, b)
	if idx < 0 {
		return rdf.NewLiteral(""), nil
	}
	return stringLiteral(a[idx+len(b):], lang), nil
}

func evaluateEncodeForURI(_ *Evaluator, args []rdf.Term) (rdf.Term, error) {
	value, _, err := stringArg(args[0])
	if err != nil {
		return nil, err
	}
	// PathEscape leaves a few sub-delimiters alone that must be encoded here
	encoded := url.PathEscape(value)
	replacer := strings.NewReplacer("!", "%21", "$", "%24", "&", "%26", "'", "%27", "(", "%28",
		")", "%29", "*", "%2A", "+", "%2B", ",", "%2C", ";", "%3B", "=", "%3D", ":", "%3A", "@", "%40")
	return rdf.NewLiteral(replacer.Replace(encoded)), nil
}

// regexpFlags translates SPARQL regex flags into a Go pattern
func regexpFlags(pattern, flags string) (string, error) {
	var prefix string
	for _, flag := range flags {
		switch flag {
		case 'i', 'm', 's':
			prefix += string(flag)
		case 'x':
			// Go's RE2 has no extended mode; drop unescaped whitespace
			pattern = strings.Join(strings.Fields(pattern), "")
		case 'q':
			pattern = regexp.QuoteMeta(pattern)
		default:
			return "", fmt.Errorf("unsupported REGEX flag: %c", flag)
		}
	}
	if prefix != "" {
		pattern = "(?" + prefix + ")" + pattern
	}
	return pattern, nil
}

func (e *Evaluator) evaluateRegex(args []rdf.Term) (rdf.Term, error) {
	text, _, err := stringArg(args[0])
	if err != nil {
		return nil, fmt.Errorf("REGEX text argument: %w", err)
	}
	pattern, err := simpleString(args[1])
	if err != nil {
		return nil, fmt.Errorf("REGEX pattern argument: %w", err)
	}
	var flags string
	if len(args) == 3 {
		if flags, err = simpleString(args[2]); err != nil {
			return nil, fmt.Errorf("REGEX flags argument: %w", err)
		}
	}

	pattern, err = regexpFlags(pattern, flags)
	if err != nil {
		return nil, err
	}
	re, err := e.compileRegexp(pattern)
	if err != nil {
		return nil, err
	}
	return rdf.NewBooleanLiteral(re.MatchString(text)), nil
}

func (e *Evaluator) evaluateReplace(args []rdf.Term) (rdf.Term, error) {
	text, lang, err := stringArg(args[0])
	if err != nil {
		return nil, err
	}
	pattern, err := simpleString(args[1])
	if err != nil {
		return nil, err
	}
	replacement, err := simpleString(args[2])
	if err != nil {
		return nil, err
	}
	var flags string
	if len(args) == 4 {
		if flags, err = simpleString(args[3]); err != nil {
			return nil, err
		}
	}

	pattern, err = regexpFlags(pattern, flags)
	if err != nil {
		return nil, err
	}
	re, err := e.compileRegexp(pattern)
	if err != nil {
		return nil, err
	}
	// SPARQL uses $1 for groups like Go, but Go needs ${1} before letters
	replacement = regexp.MustCompile(`\$(\d+)`).ReplaceAllString(replacement, "$${$1}")
	return stringLiteral(re.ReplaceAllString(text, replacement), lang), nil
}

// evaluateLangMatches implements basic language range matching:
// "*" matches any non-empty tag, otherwise an exact or prefix match
func evaluateLangMatches(_ *Evaluator, args []rdf.Term) (rdf.Term, error) {
	tag, err := simpleString(args[0])
	if err != nil {
		return nil, fmt.Errorf("langMatches tag argument: %w", err)
	}
	langRange, err := simpleString(args[1])
	if err != nil {
		return nil, fmt.Errorf("langMatches range argument: %w", err)
	}

	tag = strings.ToLower(tag)
	langRange = strings.ToLower(langRange)

	if langRange == "*" {
		return rdf.NewBooleanLiteral(tag != ""), nil
	}
	return rdf.NewBooleanLiteral(tag == langRange || strings.HasPrefix(tag, langRange+"-")), nil
}

// Numeric functions

func mapNumber(fn func(float64) float64) func(*Evaluator, []rdf.Term) (rdf.Term, error) {
	return func(_ *Evaluator, args []rdf.Term) (rdf.Term, error) {
		n, ok := numericValue(args[0])
		if !ok {
			return nil, fmt.Errorf("numeric argument required, got %s", args[0])
		}
		if n.kind == kindInteger {
			return numericLiteral(numeric{kind: kindInteger, i: int64(fn(float64(n.i)))}), nil
		}
		return numericLiteral(numeric{kind: n.kind, f: fn(n.f)}), nil
	}
}

// Casts

// evaluateTypeCast converts a term to an XSD datatype, validating the
// lexical form for the types it knows
func evaluateTypeCast(datatypeIRI string, args []rdf.Term) (rdf.Term, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("type cast requires exactly 1 argument")
	}

	var value string
	switch t := args[0].(type) {
	case *rdf.Literal:
		value = t.Value
	case *rdf.NamedNode:
		if datatypeIRI != xsd+"string" {
			return nil, fmt.Errorf("cannot cast IRI to %s", datatypeIRI)
		}
		value = t.IRI
	default:
		return nil, fmt.Errorf("cannot cast %s to %s", args[0], datatypeIRI)
	}

	switch datatypeIRI {
	case xsd + "string":
		return rdf.NewLiteral(value), nil
	case xsd + "integer":
		if n, ok := numericValue(args[0]); ok {
			return rdf.NewIntegerLiteral(int64(n.float())), nil
		}
		i, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot cast %q to integer", value)
		}
		return rdf.NewIntegerLiteral(i), nil
	case xsd + "decimal", xsd + "double", xsd + "float":
		f, err := parseDouble(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("cannot cast %q to %s", value, datatypeIRI)
		}
		if datatypeIRI == xsd+"decimal" {
			return numericLiteral(numeric{kind: kindDecimal, f: f}), nil
		}
		return rdf.NewLiteralWithDatatype(strconv.FormatFloat(f, 'E', -1, 64), rdf.NewNamedNode(datatypeIRI)), nil
	case xsd + "boolean":
		if n, ok := numericValue(args[0]); ok {
			return rdf.NewBooleanLiteral(n.float() != 0), nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("cannot cast %q to boolean", value)
		}
		return rdf.NewBooleanLiteral(b), nil
	}
	return rdf.NewLiteralWithDatatype(value, rdf.NewNamedNode(datatypeIRI)), nil
}
