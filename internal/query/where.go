package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"skytrack/internal/model"
)

var ErrBadFilter = errors.New("bad filter expression")

// Where keeps the records for which src evaluates to true. Records expose
// their JSON field names, e.g. `status == "pending" && classID == "c1"` or
// `len(attachments) > 0`. Unknown names fail to compile. An empty src keeps
// everything.
func Where[T model.Record](items []T, src string) ([]T, error) {
	if strings.TrimSpace(src) == "" {
		return items, nil
	}
	var zero T
	program, err := compile(src, env(zero))
	if err != nil {
		return nil, err
	}
	var out []T
	for _, it := range items {
		res, err := expr.Run(program, env(it))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadFilter, err)
		}
		if keep, _ := res.(bool); keep {
			out = append(out, it)
		}
	}
	return out, nil
}

// compile checks src against the field set of one record type, so field
// names shadow builtins such as type().
func compile(src string, fields map[string]any) (*vm.Program, error) {
	program, err := expr.Compile(src, expr.Env(fields), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFilter, err)
	}
	return program, nil
}

func env(r model.Record) map[string]any {
	switch v := r.(type) {
	case model.Class:
		return map[string]any{"id": v.ID, "name": v.Name, "color": v.Color, "createdAt": v.CreatedAt}
	case model.Task:
		return map[string]any{
			"id": v.ID, "classID": v.ClassID, "title": v.Title, "description": v.Description,
			"dueDate": v.DueDate, "status": string(v.Status), "createdAt": v.CreatedAt,
		}
	case model.Note:
		return map[string]any{
			"id": v.ID, "classID": v.ClassID, "title": v.Title, "content": v.Content,
			"attachments": v.Attachments, "createdAt": v.CreatedAt,
		}
	case model.Contact:
		return map[string]any{
			"id": v.ID, "name": v.Name, "type": string(v.Type), "email": v.Email,
			"phone": v.Phone, "createdAt": v.CreatedAt,
		}
	case model.Event:
		return map[string]any{
			"id": v.ID, "classID": v.ClassID, "title": v.Title, "description": v.Description,
			"date": v.Date, "createdAt": v.CreatedAt,
		}
	default:
		return map[string]any{"id": r.RecordID()}
	}
}
