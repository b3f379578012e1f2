package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Heidric/queueing/internal/customerrors"
	"github.com/Heidric/queueing/internal/model"
	"github.com/Heidric/queueing/internal/queue"
	"github.com/Heidric/queueing/internal/server"
	"github.com/Heidric/queueing/internal/services"
)

// reportedError is a failure already written to the output; main only sets
// the exit code for it.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// newRootCmd builds the command tree on its own viper instance. Every flag
// can also come from the config file or from QUEUECALC_<FLAG> variables.
func newRootCmd(out io.Writer) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("QUEUECALC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "queuecalc",
		Short: "Steady-state metrics of M/M/1 and M/M/c queues",
		Long: `queuecalc evaluates the classic Markovian queues: utilization, idle and
waiting probabilities, mean queue and system lengths and times. It can also
sample one metric across a range of arrival rates.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			if file := v.GetString("config"); file != "" {
				v.SetConfigFile(file)
				if err := v.ReadInConfig(); err != nil {
					return errors.Wrap(err, "read config")
				}
			}
			if _, err := parseFormat(v.GetString("output")); err != nil {
				return err
			}
			return nil
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringP("output", "o", string(formatText), "output format: text, json, yaml or csv")
	root.PersistentFlags().String("config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().String("server", "", "evaluate on a queue server (host:port) and record the result there")

	root.AddCommand(newMM1Cmd(v), newMMCCmd(v), newSweepCmd(v))
	return root
}

func newMM1Cmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mm1",
		Short: "Evaluate a single-server queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return evaluate(cmd, v, &model.EvaluationRequest{
				Model:  model.ModelMM1,
				Lambda: v.GetFloat64("lambda"),
				Mu:     v.GetFloat64("mu"),
			})
		},
	}
	rateFlags(cmd.Flags())
	return cmd
}

func newMMCCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mmc",
		Short: "Evaluate a multi-server queue (Erlang C)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return evaluate(cmd, v, &model.EvaluationRequest{
				Model:  model.ModelMMC,
				Lambda: v.GetFloat64("lambda"),
				Mu:     v.GetFloat64("mu"),
				C:      v.GetInt("servers"),
			})
		},
	}
	rateFlags(cmd.Flags())
	cmd.Flags().IntP("servers", "c", 1, "number of servers c")
	return cmd
}

func newSweepCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Sample one metric over arrival rates from 0 to --lambda-max",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &model.SweepRequest{
				Metric:    v.GetString("metric"),
				Model:     model.ModelKind(v.GetString("model")),
				Mu:        v.GetFloat64("mu"),
				C:         v.GetInt("servers"),
				LambdaMax: v.GetFloat64("lambda-max"),
				Points:    v.GetInt("points"),
			}

			// Nothing is recorded for a sweep, so the service runs without storage.
			points, err := services.NewQueueService(nil, 1).Sweep(cmd.Context(), req)
			if err != nil {
				return err
			}

			format, _ := parseFormat(v.GetString("output"))
			return writeSweep(cmd.OutOrStdout(), format, req, points)
		},
	}
	cmd.Flags().String("metric", "Lq", "metric to sample: "+metricList())
	cmd.Flags().String("model", string(model.ModelMM1), "queue model: mm1 or mmc")
	cmd.Flags().Float64("mu", 1, "service rate μ per server")
	cmd.Flags().IntP("servers", "c", 1, "number of servers c (mmc only)")
	cmd.Flags().Float64("lambda-max", 1, "largest arrival rate sampled")
	cmd.Flags().Int("points", services.DefaultSweepPoints, "number of samples")
	return cmd
}

func rateFlags(fs *pflag.FlagSet) {
	fs.Float64P("lambda", "l", 0, "arrival rate λ")
	fs.Float64P("mu", "m", 0, "service rate μ per server")
}

func metricList() string {
	names := make([]string, 0, len(queue.Metrics()))
	for _, m := range queue.Metrics() {
		names = append(names, m.String())
	}
	return strings.Join(names, ", ")
}

func evaluate(cmd *cobra.Command, v *viper.Viper, req *model.EvaluationRequest) error {
	format, _ := parseFormat(v.GetString("output"))
	out := cmd.OutOrStdout()

	var (
		res *model.Metrics
		err error
	)
	if addr := v.GetString("server"); addr != "" {
		res, err = evaluateRemote(cmd.Context(), addr, req)
	} else {
		var m model.Metrics
		m, err = queue.Evaluate(req.Model, req.Lambda, req.Mu, req.C)
		res = &m
	}

	if err != nil {
		var merr *queue.ModelError
		if !errors.As(err, &merr) {
			return err
		}
		if werr := writeError(out, format, merr); werr != nil {
			return werr
		}
		return &reportedError{err: err}
	}

	return writeMetrics(out, format, *res)
}

// evaluateRemote posts req to a queue server. Model rejections come back as
// *queue.ModelError so they render the same way as local ones.
func evaluateRemote(ctx context.Context, addr string, req *model.EvaluationRequest) (*model.Metrics, error) {
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+"/evaluate/", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(server.SourceHeader, model.SourceCLI)

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "post evaluation")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var e model.Evaluation
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
			return nil, errors.Wrap(err, "decode evaluation")
		}
		if e.Metrics == nil {
			return nil, errors.Errorf("evaluation %d has no metrics", e.ID)
		}
		return e.Metrics, nil
	case http.StatusUnprocessableEntity:
		var problem customerrors.CommonError
		if err := json.NewDecoder(resp.Body).Decode(&problem); err != nil {
			return nil, errors.Wrap(err, "decode problem")
		}
		return nil, &queue.ModelError{Message: problem.Details}
	default:
		var problem customerrors.CommonError
		_ = json.NewDecoder(resp.Body).Decode(&problem)
		return nil, errors.Errorf("server answered %d: %s", resp.StatusCode, problem.Details)
	}
}
