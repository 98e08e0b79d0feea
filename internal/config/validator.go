package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ErrInvalidConfig wraps every error returned by Validate.
var ErrInvalidConfig = errors.New("config validation errors")

// Validate checks the config for:
//   - field constraints declared in struct tags (ranges, required ids)
//   - duplicate network ids and duplicate node ids within a network
//   - links or matrix rows that reference unknown nodes
//   - networks that declare both links and a matrix
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	var errs []string
	if err := validate.Struct(cfg); err != nil {
		errs = append(errs, fieldErrors(err)...)
	}

	networks := make(map[string]int)
	for i, nw := range cfg.Networks {
		loc := fmt.Sprintf("networks[%d]", i)
		if nw.ID != "" {
			loc = fmt.Sprintf("network %s", nw.ID)
			if prev, ok := networks[nw.ID]; ok {
				errs = append(errs, fmt.Sprintf("duplicate network id %q (networks[%d] and networks[%d])", nw.ID, prev, i))
			} else {
				networks[nw.ID] = i
			}
		}
		validateNetwork(nw, loc, &errs)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidConfig, strings.Join(errs, "\n  - "))
	}
	return nil
}

// ValidateNetwork checks a single network definition, e.g. one posted over the API.
func ValidateNetwork(nw NetworkDef) error {
	var errs []string
	if err := validate.Struct(nw); err != nil {
		errs = append(errs, fieldErrors(err)...)
	}
	validateNetwork(nw, "network", &errs)
	if len(errs) > 0 {
		return fmt.Errorf("network validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateNetwork(nw NetworkDef, loc string, errs *[]string) {
	nodes := make(map[string]struct{}, len(nw.Nodes))
	for _, n := range nw.Nodes {
		if n.ID == "" {
			continue
		}
		if _, dup := nodes[n.ID]; dup {
			*errs = append(*errs, fmt.Sprintf("%s: duplicate node id %q", loc, n.ID))
		}
		nodes[n.ID] = struct{}{}
	}

	if len(nw.Links) > 0 && len(nw.Matrix) > 0 {
		*errs = append(*errs, fmt.Sprintf("%s: only one of links/matrix may be set", loc))
	}
	for j, link := range nw.Links {
		for _, end := range []string{link.Source, link.Target} {
			if end == "" {
				continue
			}
			if _, ok := nodes[end]; !ok {
				*errs = append(*errs, fmt.Sprintf("%s.links[%d]: unknown node %q", loc, j, end))
			}
		}
	}

	if len(nw.Matrix) == 0 {
		return
	}
	if len(nw.Matrix) != len(nw.Nodes) {
		*errs = append(*errs, fmt.Sprintf("%s.matrix: %d rows for %d nodes", loc, len(nw.Matrix), len(nw.Nodes)))
	}
	for r, row := range nw.Matrix {
		if len(row) != len(nw.Nodes) {
			*errs = append(*errs, fmt.Sprintf("%s.matrix[%d]: %d columns for %d nodes", loc, r, len(row), len(nw.Nodes)))
		}
		for c, v := range row {
			if v != 0 && v != 1 {
				*errs = append(*errs, fmt.Sprintf("%s.matrix[%d][%d]: must be 0 or 1, got %d", loc, r, c, v))
			}
		}
	}
}

// fieldErrors renders struct-tag violations one line per field.
func fieldErrors(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.TrimPrefix(e.Namespace(), "Config.")
		switch e.Tag() {
		case "required":
			out = append(out, fmt.Sprintf("%s: field is required", field))
		case "gte":
			out = append(out, fmt.Sprintf("%s: must be at least %s", field, e.Param()))
		case "lte":
			out = append(out, fmt.Sprintf("%s: must not exceed %s", field, e.Param()))
		case "oneof":
			out = append(out, fmt.Sprintf("%s: must be one of [%s]", field, e.Param()))
		default:
			out = append(out, fmt.Sprintf("%s: validation failed (%s)", field, e.Tag()))
		}
	}
	return out
}
