package inventory

// ItemPatch lists the optional fields an item update may carry. Nil fields
// are left untouched. ClearCategory removes the category link; it wins over
// CategoryID when both are set.
type ItemPatch struct {
	Name          *string
	SKU           *string
	CategoryID    *string
	ClearCategory bool
	Quantity      *int64
	UnitPrice     *float64
	Notes         *string
}

// Assignment is a single column update derived from a patch.
type Assignment struct {
	Column string
	Value  any
}

// Assignments maps the patch to its column assignments in a fixed order.
// It is a pure function of the patch, so update construction is testable
// without a database.
func (p ItemPatch) Assignments() []Assignment {
	var out []Assignment
	if p.Name != nil {
		out = append(out, Assignment{Column: "name", Value: *p.Name})
	}
	if p.SKU != nil {
		out = append(out, Assignment{Column: "sku", Value: *p.SKU})
	}
	switch {
	case p.ClearCategory:
		out = append(out, Assignment{Column: "category_id", Value: nil})
	case p.CategoryID != nil:
		out = append(out, Assignment{Column: "category_id", Value: *p.CategoryID})
	}
	if p.Quantity != nil {
		out = append(out, Assignment{Column: "quantity", Value: *p.Quantity})
	}
	if p.UnitPrice != nil {
		out = append(out, Assignment{Column: "unit_price", Value: *p.UnitPrice})
	}
	if p.Notes != nil {
		out = append(out, Assignment{Column: "notes", Value: *p.Notes})
	}
	return out
}

// IsEmpty reports whether the patch changes nothing.
func (p ItemPatch) IsEmpty() bool {
	return len(p.Assignments()) == 0
}
