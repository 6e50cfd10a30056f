package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/kursadbilgin/feedback-batch/internal/domain"
)

const csvHeader = "Index,Feedback,Prediction,Confidence"

// WriteCSV writes one row per success outcome. The feedback field is always
// quoted with embedded quotes doubled.
func WriteCSV(w io.Writer, outcomes []domain.Outcome) error {
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintln(bw, csvHeader); err != nil {
		return err
	}
	for _, o := range domain.Successes(outcomes) {
		feedback := `"` + strings.ReplaceAll(o.Feedback, `"`, `""`) + `"`
		if _, err := fmt.Fprintf(bw, "%d,%s,%s,%s%%\n", o.Index, feedback, o.Prediction, formatNumber(o.Confidence)); err != nil {
			return err
		}
	}

	return bw.Flush()
}
