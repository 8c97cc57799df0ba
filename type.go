package record

import (
	"context"
	"slices"

	"github.com/go-openapi/inflect"
	"github.com/iancoleman/strcase"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultPrimaryKey is the primary key column used when a type does not name one.
const DefaultPrimaryKey = "id"

var (
	rules = inflect.NewDefaultRuleset()
	lower = cases.Lower(language.Und)
)

// tableize returns the conventional table name of a type name:
// "User" becomes "users", "BlogPost" becomes "blog_posts".
func tableize(name string) string {
	return rules.Pluralize(strcase.ToSnake(name))
}

// ValidateFunc is the custom validation hook of a type. It reports
// failures with Record.AddError and returns an error only for problems
// that should abort the save.
type ValidateFunc func(ctx context.Context, r *Record) error

// TypeConfig holds the declarative description of a record type.
type TypeConfig struct {
	// Name is the entity name, e.g. "User". Required.
	Name string
	// Table overrides the table name derived from Name.
	Table string
	// PrimaryKey overrides DefaultPrimaryKey.
	PrimaryKey string
	// Accessible lists the attributes that Bind may assign.
	Accessible []string
	// Columns declares the table columns and skips schema discovery.
	Columns []string
	// Validators run in order during validation.
	Validators []Validator
	// Validate runs before Validators.
	Validate ValidateFunc
	// Hooks are the lifecycle callbacks of the type.
	Hooks Hooks
}

// Type is the immutable per-entity configuration shared by every record
// of that entity. Create it once with Define and pass it around.
type Type struct {
	name       string
	table      string
	pk         string
	accessible []string
	allowed    map[string]struct{}
	columns    []string
	validators []Validator
	validate   ValidateFunc
	hooks      Hooks
}

// Define builds a Type from cfg, filling in the naming conventions.
func Define(cfg TypeConfig) *Type {
	t := &Type{
		name:       cfg.Name,
		table:      cfg.Table,
		pk:         cfg.PrimaryKey,
		accessible: slices.Clone(cfg.Accessible),
		allowed:    make(map[string]struct{}, len(cfg.Accessible)),
		columns:    slices.Clone(cfg.Columns),
		validators: slices.Clone(cfg.Validators),
		validate:   cfg.Validate,
		hooks:      cfg.Hooks,
	}
	if t.table == "" {
		t.table = tableize(cfg.Name)
	}
	if t.pk == "" {
		t.pk = DefaultPrimaryKey
	}
	for _, a := range cfg.Accessible {
		t.allowed[a] = struct{}{}
	}
	return t
}

// Name returns the entity name.
func (t *Type) Name() string { return t.name }

// Table returns the table name.
func (t *Type) Table() string { return t.table }

// PrimaryKey returns the primary key column. It is empty for pivot types.
func (t *Type) PrimaryKey() string { return t.pk }

// ForeignKey returns the column other tables use to reference this type,
// e.g. "user_id" for "User".
func (t *Type) ForeignKey() string {
	return strcase.ToSnake(rules.Singularize(t.name)) + "_" + t.pk
}

// Accessible returns a copy of the bulk assignment allow-list.
func (t *Type) Accessible() []string { return slices.Clone(t.accessible) }

// IsAccessible reports whether attr may be assigned by Bind.
func (t *Type) IsAccessible(attr string) bool {
	_, ok := t.allowed[attr]
	return ok
}

// Validators returns a copy of the registered validators.
func (t *Type) Validators() []Validator { return slices.Clone(t.validators) }

// belongsToKey is the conventional column a record uses to reference t.
func (t *Type) belongsToKey() string {
	return lower.String(t.name) + "_id"
}
