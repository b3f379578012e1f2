package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Heidric/queueing/internal/customerrors"
	"github.com/Heidric/queueing/internal/model"
	"github.com/Heidric/queueing/internal/queue"
	"github.com/Heidric/queueing/internal/report"
)

type format string

const (
	formatText format = "text"
	formatJSON format = "json"
	formatYAML format = "yaml"
	formatCSV  format = "csv"
)

func parseFormat(s string) (format, error) {
	switch f := format(s); f {
	case formatText, formatJSON, formatYAML, formatCSV:
		return f, nil
	default:
		return "", errors.Errorf("unknown output format %q (text, json, yaml, csv)", s)
	}
}

type errorOutput struct {
	Error string `json:"error" yaml:"error"`
	Kind  string `json:"kind,omitempty" yaml:"kind,omitempty"`
}

type sweepOutput struct {
	Metric string             `json:"metric" yaml:"metric"`
	Model  model.ModelKind    `json:"model" yaml:"model"`
	Mu     float64            `json:"mu" yaml:"mu"`
	C      int                `json:"c,omitempty" yaml:"c,omitempty"`
	Points []model.SweepPoint `json:"points" yaml:"points"`
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		// NaN and Inf are the only values our records cannot encode.
		return errors.Wrap(customerrors.ErrNotFinite, "json output")
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "yaml output")
	}
	return enc.Close()
}

func writeMetrics(w io.Writer, f format, m model.Metrics) error {
	switch f {
	case formatJSON:
		return writeJSON(w, m)
	case formatYAML:
		return writeYAML(w, m)
	case formatCSV:
		return report.CSV(w, m)
	default:
		return report.Text(w, m)
	}
}

func writeError(w io.Writer, f format, merr *queue.ModelError) error {
	out := errorOutput{Error: merr.Message}
	if merr.Kind != 0 {
		out.Kind = merr.Kind.String()
	}

	switch f {
	case formatJSON:
		return writeJSON(w, out)
	case formatYAML:
		return writeYAML(w, out)
	case formatCSV:
		return report.ErrorCSV(w, merr.Message)
	default:
		return report.TextError(w, merr)
	}
}

func writeSweep(w io.Writer, f format, req *model.SweepRequest, points []model.SweepPoint) error {
	switch f {
	case formatJSON, formatYAML:
		out := sweepOutput{Metric: req.Metric, Model: req.Model, Mu: req.Mu, Points: points}
		if req.Model == model.ModelMMC {
			out.C = req.C
		}
		if f == formatJSON {
			return writeJSON(w, out)
		}
		return writeYAML(w, out)
	case formatCSV:
		return report.SweepCSV(w, req.Metric, points)
	default:
		if _, err := fmt.Fprintf(w, "%-14s %s\n", "λ", req.Metric); err != nil {
			return err
		}
		for _, p := range points {
			value := "unstable"
			if !p.Unstable() {
				value = strconv.FormatFloat(*p.Value, 'f', 6, 64)
			}
			if _, err := fmt.Fprintf(w, "%-14s %s\n", strconv.FormatFloat(p.Lambda, 'f', 6, 64), value); err != nil {
				return err
			}
		}
		return nil
	}
}
