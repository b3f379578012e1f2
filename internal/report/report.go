// Package report renders evaluation results for people and spreadsheets.
package report

import (
	"bufio"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/Heidric/queueing/internal/model"
)

func pretty(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func plain(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Text writes one "label: value" line per field of m. Derived values use six
// decimals; fields the model does not produce are left out.
func Text(w io.Writer, m model.Metrics) error {
	bw := bufio.NewWriter(w)
	line := func(label, value string) {
		bw.WriteString(label)
		bw.WriteString(": ")
		bw.WriteString(value)
		bw.WriteByte('\n')
	}

	line("Model", m.Model)
	line("λ (arrival rate)", plain(m.Lambda))
	line("μ (service rate)", plain(m.Mu))
	if m.C != nil {
		line("servers c", strconv.Itoa(*m.C))
	}
	if m.R != nil {
		line("r = λ/μ", pretty(*m.R))
	}
	line("ρ (utilization)", pretty(m.Rho))
	if m.P0 != nil {
		line("p0 (idle prob)", pretty(*m.P0))
	}
	if m.Pw != nil {
		line("Pw (prob. must wait)", pretty(*m.Pw))
	}
	line("Lq (avg # in queue)", pretty(m.Lq))
	line("L (avg # in system)", pretty(m.L))
	line("Wq (avg waiting time)", pretty(m.Wq))
	line("W (avg time in system)", pretty(m.W))

	return errors.Wrap(bw.Flush(), "write text report")
}

// TextError writes the single line shown in place of a result.
func TextError(w io.Writer, err error) error {
	_, werr := io.WriteString(w, "Error: "+err.Error()+"\n")
	return errors.Wrap(werr, "write text report")
}

// Rows returns the field/value pairs of m in record order.
func Rows(m model.Metrics) [][2]string {
	rows := [][2]string{
		{"model", m.Model},
		{"lambda", plain(m.Lambda)},
		{"mu", plain(m.Mu)},
	}
	if m.C != nil {
		rows = append(rows, [2]string{"servers", strconv.Itoa(*m.C)})
	}
	if m.R != nil {
		rows = append(rows, [2]string{"r", plain(*m.R)})
	}
	rows = append(rows, [2]string{"rho", plain(m.Rho)})
	if m.P0 != nil {
		rows = append(rows, [2]string{"p0", plain(*m.P0)})
	}
	if m.Pw != nil {
		rows = append(rows, [2]string{"Pw", plain(*m.Pw)})
	}
	return append(rows,
		[2]string{"Lq", plain(m.Lq)},
		[2]string{"L", plain(m.L)},
		[2]string{"Wq", plain(m.Wq)},
		[2]string{"W", plain(m.W)},
	)
}

// CSV writes m as two-column field,value records.
func CSV(w io.Writer, m model.Metrics) error {
	cw := csv.NewWriter(w)
	for _, row := range Rows(m) {
		if err := cw.Write(row[:]); err != nil {
			return errors.Wrap(err, "write csv report")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "write csv report")
}

// ErrorCSV writes the single error,<message> record.
func ErrorCSV(w io.Writer, msg string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"error", msg}); err != nil {
		return errors.Wrap(err, "write csv report")
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "write csv report")
}

// SweepCSV writes a lambda,<metric> table. Unstable points get an empty cell
// so a plot shows a gap there.
func SweepCSV(w io.Writer, metric string, points []model.SweepPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"lambda", metric}); err != nil {
		return errors.Wrap(err, "write sweep csv")
	}

	for _, p := range points {
		value := ""
		if !p.Unstable() {
			value = plain(*p.Value)
		}
		if err := cw.Write([]string{plain(p.Lambda), value}); err != nil {
			return errors.Wrap(err, "write sweep csv")
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "write sweep csv")
}
