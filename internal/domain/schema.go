package domain

// Sheet identifies which roster sheet a field or row belongs to.
type Sheet string

const (
	SheetActive     Sheet = "재직자" // active employees
	SheetRetired    Sheet = "퇴직자" // departed employees
	SheetSupplement Sheet = "추가"  // supplementary records
	SheetAll        Sheet = "all"
)

// Matches reports whether a field declared with affinity `s` applies to
// rows drawn from sheet `target`.
func (s Sheet) Matches(target Sheet) bool {
	return s == SheetAll || s == target
}

// DataType is the declared type of a standard schema field.
type DataType string

const (
	TypeString   DataType = "string"
	TypeNumber   DataType = "number"
	TypeDate     DataType = "date"
	TypeCategory DataType = "category"
)

// FieldDescriptor is one entry in the Standard Schema registry (C1).
// Canonical names are globally unique; an alias never collides with
// another field's canonical name (enforced at registry construction).
type FieldDescriptor struct {
	Canonical string
	Type      DataType
	Required  bool
	Affinity  Sheet
	Aliases   []string
	Examples  []string
}
