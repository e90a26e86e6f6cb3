package memory

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"restate/internal/backend/model"
	"restate/internal/backend/query"
	apperrors "restate/internal/shared/errors"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
)

// filterEngine turns filter queries into CEL programs evaluated against
// each document. Ordering and paging are applied in Go afterwards.
type filterEngine struct {
	env *cel.Env

	mu       sync.Mutex
	programs map[string]cel.Program
}

func newFilterEngine() (*filterEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("doc", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("args", cel.ListType(cel.DynType)),
		ext.Strings(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &filterEngine{env: env, programs: make(map[string]cel.Program)}, nil
}

// compiledFilter is one CEL program plus the arguments its expression references.
type compiledFilter struct {
	program cel.Program
	expr    string
	args    []interface{}
}

// plan splits queries into a filter, an ordering and paging values.
type plan struct {
	filter *compiledFilter
	orders []query.Query
	limit  int
	offset int
}

func (e *filterEngine) plan(queries []query.Query) (*plan, error) {
	p := &plan{limit: -1}
	var clauses []string
	var args []interface{}

	for _, q := range queries {
		switch q.Method {
		case query.MethodOrderAsc, query.MethodOrderDesc:
			if q.Attribute == "" {
				return nil, fmt.Errorf("%s: %w", q.Method, apperrors.ErrInvalidQueryAttribute)
			}
			p.orders = append(p.orders, q)
		case query.MethodLimit:
			n, err := q.IntValue()
			if err != nil {
				return nil, apperrors.NewValidationError(err.Error()).WithCause(apperrors.ErrInvalidInput)
			}
			p.limit = n
		case query.MethodOffset:
			n, err := q.IntValue()
			if err != nil {
				return nil, apperrors.NewValidationError(err.Error()).WithCause(apperrors.ErrInvalidInput)
			}
			p.offset = n
		default:
			clause, err := translate(q, &args)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, clause)
		}
	}

	if len(clauses) == 0 {
		return p, nil
	}
	expr := strings.Join(clauses, " && ")
	program, err := e.program(expr)
	if err != nil {
		return nil, err
	}
	p.filter = &compiledFilter{program: program, expr: expr, args: args}
	return p, nil
}

// translate renders q as a CEL expression. Values are appended to args and
// referenced by index so user input never becomes CEL source.
func translate(q query.Query, args *[]interface{}) (string, error) {
	switch q.Method {
	case query.MethodEqual, query.MethodNotEqual:
		if q.Attribute == "" {
			return "", fmt.Errorf("%s: %w", q.Method, apperrors.ErrInvalidQueryAttribute)
		}
		idx := len(*args)
		*args = append(*args, normalizeValues(q.Values))
		attr := strconv.Quote(q.Attribute)
		if q.Method == query.MethodEqual {
			return fmt.Sprintf("(%s in doc && doc[%s] in args[%d])", attr, attr, idx), nil
		}
		return fmt.Sprintf("(!(%s in doc) || !(doc[%s] in args[%d]))", attr, attr, idx), nil

	case query.MethodSearch:
		if q.Attribute == "" {
			return "", fmt.Errorf("%s: %w", q.Method, apperrors.ErrInvalidQueryAttribute)
		}
		term := ""
		if len(q.Values) > 0 {
			term = strings.ToLower(fmt.Sprint(q.Values[0]))
		}
		idx := len(*args)
		*args = append(*args, term)
		attr := strconv.Quote(q.Attribute)
		return fmt.Sprintf("(%s in doc && string(doc[%s]).lowerAscii().contains(args[%d]))", attr, attr, idx), nil

	case query.MethodOr, query.MethodAnd:
		operands := q.Operands()
		if len(operands) == 0 {
			return "", apperrors.NewValidationError(q.Method + " requires at least one query").WithCause(apperrors.ErrInvalidInput)
		}
		parts := make([]string, 0, len(operands))
		for _, operand := range operands {
			part, err := translate(operand, args)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		}
		sep := " || "
		if q.Method == query.MethodAnd {
			sep = " && "
		}
		return "(" + strings.Join(parts, sep) + ")", nil
	}
	return "", fmt.Errorf("%q: %w", q.Method, apperrors.ErrUnsupportedQueryMethod)
}

// normalizeValues widens integers to float64 so they compare equal to JSON numbers.
func normalizeValues(values []interface{}) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		switch n := v.(type) {
		case int:
			out[i] = float64(n)
		case int32:
			out[i] = float64(n)
		case int64:
			out[i] = float64(n)
		case float32:
			out[i] = float64(n)
		default:
			out[i] = v
		}
	}
	return out
}

func (e *filterEngine) program(expr string) (cel.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, ok := e.programs[expr]; ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error: %w", issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}
	e.programs[expr] = prg
	return prg, nil
}

// matches evaluates the filter; evaluation errors count as no match.
func (f *compiledFilter) matches(doc model.Document) bool {
	if f == nil {
		return true
	}
	out, _, err := f.program.Eval(map[string]interface{}{
		"doc":  activation(doc),
		"args": f.args,
	})
	if err != nil {
		return false
	}
	result, ok := out.Value().(bool)
	return ok && result
}

func activation(doc model.Document) map[string]interface{} {
	vars := make(map[string]interface{}, len(doc.Data)+5)
	for k, v := range doc.Data {
		vars[k] = v
	}
	vars[model.AttrID] = doc.ID
	vars[model.AttrCollectionID] = doc.CollectionID
	vars[model.AttrDatabaseID] = doc.DatabaseID
	vars[model.AttrCreatedAt] = doc.CreatedAt.UTC().Format(time.RFC3339Nano)
	vars[model.AttrUpdatedAt] = doc.UpdatedAt.UTC().Format(time.RFC3339Nano)
	return vars
}

// apply filters, orders and pages docs. The input slice is not modified.
func (p *plan) apply(docs []model.Document) []model.Document {
	out := make([]model.Document, 0, len(docs))
	for _, d := range docs {
		if p.filter.matches(d) {
			out = append(out, d)
		}
	}

	if len(p.orders) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, o := range p.orders {
				c := compareField(out[i], out[j], o.Attribute)
				if c == 0 {
					continue
				}
				if o.Method == query.MethodOrderDesc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if p.offset > 0 {
		if p.offset >= len(out) {
			return []model.Document{}
		}
		out = out[p.offset:]
	}
	if p.limit >= 0 && p.limit < len(out) {
		out = out[:p.limit]
	}
	return out
}

func compareField(a, b model.Document, attr string) int {
	av, aok := a.Field(attr)
	bv, bok := b.Field(attr)
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}

	switch x := av.(type) {
	case time.Time:
		if y, ok := bv.(time.Time); ok {
			return x.Compare(y)
		}
	case float64:
		if y, ok := bv.(float64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	case string:
		if y, ok := bv.(string); ok {
			return strings.Compare(x, y)
		}
	}
	return strings.Compare(fmt.Sprint(av), fmt.Sprint(bv))
}
