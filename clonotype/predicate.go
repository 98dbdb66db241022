package clonotype

import (
	"sort"
	"strconv"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/vm"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// Metadata holds named per-cell values, e.g. from a barcode-indexed side
// table.
type Metadata struct {
	values map[CellKey]map[string]string
}

// NewMetadata creates an empty Metadata.
func NewMetadata() *Metadata {
	return &Metadata{values: map[CellKey]map[string]string{}}
}

// Set sets field of the cell to value.
func (m *Metadata) Set(dataset int, barcode, field, value string) {
	k := CellKey{dataset, barcode}
	fields := m.values[k]
	if fields == nil {
		fields = map[string]string{}
		m.values[k] = fields
	}
	fields[field] = value
}

// Get returns field of the cell.
func (m *Metadata) Get(dataset int, barcode, field string) (string, bool) {
	v, ok := m.values[CellKey{dataset, barcode}][field]
	return v, ok
}

// Predicate is a compiled boolean expression over cell metadata fields.
type Predicate struct {
	src  string
	prog *vm.Program
	// vars lists the identifiers of the expression.
	vars []string
}

type identVisitor struct {
	vars map[string]bool
}

func (v *identVisitor) Visit(node *ast.Node) {
	if n, ok := (*node).(*ast.IdentifierNode); ok {
		v.vars[n.Value] = true
	}
}

// CompilePredicate parses src.
func CompilePredicate(src string) (*Predicate, error) {
	prog, err := expr.Compile(src, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, errors.E(errors.Invalid, err, "predicate", src)
	}
	v := &identVisitor{vars: map[string]bool{}}
	node := prog.Node()
	ast.Walk(&node, v)
	p := &Predicate{src: src, prog: prog}
	for name := range v.vars {
		p.vars = append(p.vars, name)
	}
	sort.Strings(p.vars)
	return p, nil
}

// String returns the source of the expression.
func (p *Predicate) String() string { return p.src }

// parseValue converts a metadata string to int64 or float64 if possible.
func parseValue(s string) interface{} {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// Eval evaluates the expression for the cell.  Missing fields are empty
// strings.  An expression that fails to evaluate is false.
func (p *Predicate) Eval(meta *Metadata, dataset int, barcode string) bool {
	env := make(map[string]interface{}, len(p.vars))
	for _, name := range p.vars {
		var v string
		if meta != nil {
			v, _ = meta.Get(dataset, barcode, name)
		}
		env[name] = parseValue(v)
	}
	out, err := expr.Run(p.prog, env)
	if err != nil {
		log.Debug.Printf("predicate %q, cell %d:%s: %v", p.src, dataset, barcode, err)
		return false
	}
	b, ok := out.(bool)
	return ok && b
}

// FilterByPredicates removes from orbits the cells that fail any of preds.
// Removed cells are recorded in d.Fate.  Subclonotypes left without cells
// are deleted from d, and orbits left without join units are dropped.  It
// returns the new orbits and the # of cells removed.
func FilterByPredicates(d *Dataset, orbits []Orbit, meta *Metadata, preds []*Predicate) ([]Orbit, int) {
	if len(preds) == 0 {
		return orbits, 0
	}
	inOrbit := make([]bool, len(d.Exacts))
	for _, o := range orbits {
		for _, s := range d.orbitExacts(o) {
			inOrbit[s] = true
		}
	}
	var (
		removed int
		del     = make([]bool, len(d.Exacts))
		ndel    int
	)
	for s := range d.Exacts {
		if !inOrbit[s] {
			continue
		}
		ex := &d.Exacts[s]
		kept := ex.Cells[:0:0]
		for _, c := range ex.Cells {
			keep := true
			for _, p := range preds {
				if !p.Eval(meta, c.Dataset, c.Barcode) {
					keep = false
					break
				}
			}
			if keep {
				kept = append(kept, c)
				continue
			}
			removed++
			d.Fate.Record(c.Dataset, c.Barcode, FateFCell)
		}
		if len(kept) == len(ex.Cells) {
			continue
		}
		ex.Cells = kept
		if len(kept) == 0 {
			del[s] = true
			ndel++
		}
	}
	for i := range d.Infos {
		if s := d.Infos[i].Subclonotype; !del[s] {
			d.Infos[i].Origin = d.Exacts[s].Datasets()
		}
	}
	log.Printf("predicate filter: removed %d cells, %d subclonotypes", removed, ndel)
	if ndel == 0 {
		return orbits, removed
	}
	return d.deleteExacts(orbits, del), removed
}
