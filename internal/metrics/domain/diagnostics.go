package domain

import "fmt"

// DiagnosticCode classifies a non-fatal data-quality finding.
type DiagnosticCode string

const (
	DiagNullOrderAttribute     DiagnosticCode = "null_order_attribute"
	DiagReconciliationConflict DiagnosticCode = "reconciliation_conflict"
	DiagInconsistentField      DiagnosticCode = "inconsistent_order_field"
	DiagUndatedOrder           DiagnosticCode = "undated_order_excluded"
	DiagMissingDimension       DiagnosticCode = "missing_dimension"
)

// Diagnostic is one finding about one order.
type Diagnostic struct {
	Code    DiagnosticCode
	OrderID string
	Field   string
	Detail  string
	// Sector is the canonical label of an order that never became an event.
	Sector  string
}

func (d Diagnostic) key() string {
	return fmt.Sprintf("%s|%s|%s", d.Code, d.OrderID, d.Field)
}

// Diagnostics collects findings for one request. A nil *Diagnostics discards
// everything, so callers that do not care can pass nil.
// Repeated findings for the same (code, order, field) are recorded once.
type Diagnostics struct {
	items []Diagnostic
	seen  map[string]int
}

// NewDiagnostics returns an empty collector.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{seen: make(map[string]int)}
}

// Add records a finding.
func (d *Diagnostics) Add(diag Diagnostic) {
	if d == nil {
		return
	}
	if d.seen == nil {
		d.seen = make(map[string]int)
	}
	k := diag.key()
	if idx, ok := d.seen[k]; ok {
		// keep the most detailed message for the same finding
		if diag.Detail != "" && d.items[idx].Detail == "" {
			d.items[idx].Detail = diag.Detail
		}
		return
	}
	d.seen[k] = len(d.items)
	d.items = append(d.items, diag)
}

// Merge appends every finding of other.
func (d *Diagnostics) Merge(other *Diagnostics) {
	if d == nil || other == nil {
		return
	}
	for _, item := range other.items {
		d.Add(item)
	}
}

// Items returns the findings in insertion order.
func (d *Diagnostics) Items() []Diagnostic {
	if d == nil {
		return nil
	}
	return append([]Diagnostic(nil), d.items...)
}

// Len returns the number of findings.
func (d *Diagnostics) Len() int {
	if d == nil {
		return 0
	}
	return len(d.items)
}

// Has reports whether any finding carries code.
func (d *Diagnostics) Has(code DiagnosticCode) bool {
	if d == nil {
		return false
	}
	for _, item := range d.items {
		if item.Code == code {
			return true
		}
	}
	return false
}

// ForOrder returns the findings recorded for orderID.
func (d *Diagnostics) ForOrder(orderID string) []Diagnostic {
	if d == nil {
		return nil
	}
	var out []Diagnostic
	for _, item := range d.items {
		if item.OrderID == orderID {
			out = append(out, item)
		}
	}
	return out
}

// Summary counts findings per code.
func (d *Diagnostics) Summary() map[string]int {
	counts := make(map[string]int)
	if d == nil {
		return counts
	}
	for _, item := range d.items {
		counts[string(item.Code)]++
	}
	return counts
}
