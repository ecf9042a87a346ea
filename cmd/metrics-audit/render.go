package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"

	"ops_reporting_backend/internal/metrics/transport"
)

func render(w io.Writer, r transport.AuditResponse) error {
	fmt.Fprintf(w, "Year %d: %d source rows, %d orders\n\n", r.Year, r.RawRows, r.Orders)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "measure\tkind\tnaive sum\treconciled\tover-count\t")
	for _, m := range r.Measures {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", m.Measure, m.Kind, num(m.Naive), num(m.Reconciled), num(m.OverCount))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.TopFanOut) > 0 {
		fmt.Fprintln(w, "\nOrders spread over several rows:")
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "order\trows\tpabellones\tinflation\t")
		for _, o := range r.TopFanOut {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t\n", o.OrderID, o.Rows, num(o.Pabellones), num(o.Inflation))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(r.Conflicts) > 0 {
		fmt.Fprintln(w, "\nConflicting order values (max kept):")
		for _, c := range r.Conflicts {
			fmt.Fprintf(w, "  %s %s: %s\n", c.OrderID, c.Field, c.Detail)
		}
	}

	if len(r.Summary) > 0 {
		codes := make([]string, 0, len(r.Summary))
		for code := range r.Summary {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		fmt.Fprintln(w, "\nDiagnostics:")
		for _, code := range codes {
			fmt.Fprintf(w, "  %s: %d\n", code, r.Summary[code])
		}
	}
	return nil
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
