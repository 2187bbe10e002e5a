package confusion

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// Report writes the evaluation summary as text: the confusion matrix, its
// row normalized form and per class precision and recall.  The Unmatched
// row and column are always part of the text output, only the figure hides
// them by default.
func Report(w io.Writer, m *Matrix) error {

	labels := append(m.Classes(), Unmatched)

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintln(tw, "Confusion matrix (rows: ground truth, columns: predicted)")
	fmt.Fprintln(tw)

	for _, label := range labels {
		fmt.Fprintf(tw, "\t%s", label)
	}

	fmt.Fprint(tw, "\tTotal\t\n")

	for i := range labels {

		fmt.Fprintf(tw, "%s", labels[i])

		for j := range labels {
			fmt.Fprintf(tw, "\t%.0f", m.At(i, j))
		}

		fmt.Fprintf(tw, "\t%.0f\t\n", m.TruthTotal(i))
	}

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "Row normalized confusion matrix (%)")
	fmt.Fprintln(tw)

	for _, label := range labels {
		fmt.Fprintf(tw, "\t%s", label)
	}

	fmt.Fprint(tw, "\t\n")

	norm := m.Normalized()

	for i := range labels {

		fmt.Fprintf(tw, "%s", labels[i])

		for j := range labels {
			fmt.Fprintf(tw, "\t%.2f", norm.At(i, j))
		}

		fmt.Fprint(tw, "\t\n")
	}

	fmt.Fprintln(tw)
	fmt.Fprint(tw, "Class\tPrecision\tRecall\t\n")

	for i, class := range m.Classes() {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t\n", class, m.Precision(i), m.Recall(i))
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("error writing report: %w", err)
	}

	return nil
}
