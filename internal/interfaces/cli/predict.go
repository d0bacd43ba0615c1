package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/turtacn/SumFormula-Intelligence/internal/application/sumformula"
	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

type predictOptions struct {
	tolerance  float64
	charge     int
	maxResults int
	onlyValid  bool
	batchFile  string
}

// NewPredictCmd creates the predict command.
func NewPredictCmd() *cobra.Command {
	opts := &predictOptions{}

	cmd := &cobra.Command{
		Use:   "predict [mass...]",
		Short: "Enumerate sum formulas for an accurate mass",
		Long: "Enumerate every sum formula whose monoisotopic mass lies within the\n" +
			"tolerance of the given mass, and score each candidate with the active rules.\n" +
			"Several masses, or --batch with a YAML/JSON list of requests, run as a batch.",
		Example: "  sumformula predict 78.04695 --tolerance 0.001\n" +
			"  sumformula predict 180.06339 --only-valid -o json\n" +
			"  sumformula predict --batch masses.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&opts.tolerance, "tolerance", 0, "absolute mass tolerance in Da (0 uses the configured default)")
	f.IntVar(&opts.charge, "charge", 0, "net charge of the ion")
	f.IntVar(&opts.maxResults, "max-results", 0, "maximum number of candidates (0 uses the configured default)")
	f.BoolVar(&opts.onlyValid, "only-valid", false, "return only candidates accepted by the rules")
	f.StringVar(&opts.batchFile, "batch", "", "file with a list of requests, or - for stdin")
	return cmd
}

func runPredict(cmd *cobra.Command, args []string, opts *predictOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	reqs, err := buildPredictRequests(cmd, args, opts)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	if len(reqs) == 1 && opts.batchFile == "" {
		pred, err := cliCtx.Service.Predict(ctx, reqs[0])
		if err != nil {
			return err
		}
		return PrintResult(cmd, predictionView{pred})
	}

	res, err := cliCtx.Service.PredictBatch(ctx, reqs)
	if err != nil {
		return err
	}
	return PrintResult(cmd, batchView{res})
}

func buildPredictRequests(cmd *cobra.Command, args []string, opts *predictOptions) ([]*sumformula.PredictRequest, error) {
	if opts.batchFile != "" {
		if len(args) > 0 {
			return nil, errors.InvalidParam("masses and --batch are mutually exclusive")
		}
		return readBatchFile(cmd, opts.batchFile)
	}
	if len(args) == 0 {
		return nil, errors.InvalidParam("at least one mass is required")
	}

	reqs := make([]*sumformula.PredictRequest, 0, len(args))
	for _, a := range args {
		mass, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
		if err != nil {
			return nil, errors.New(errors.ErrCodeMassInvalid, "mass is not a number").WithDetail(a)
		}
		reqs = append(reqs, &sumformula.PredictRequest{
			Mass:       mass,
			Tolerance:  opts.tolerance,
			Charge:     opts.charge,
			MaxResults: opts.maxResults,
			OnlyValid:  opts.onlyValid,
		})
	}
	return reqs, nil
}

// readBatchFile decodes a YAML or JSON list of requests.
func readBatchFile(cmd *cobra.Command, path string) ([]*sumformula.PredictRequest, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "reading batch file").WithDetail(path)
	}

	var reqs []*sumformula.PredictRequest
	if err := yaml.Unmarshal(data, &reqs); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "batch file must be a list of requests").WithDetail(path)
	}
	if len(reqs) == 0 {
		return nil, errors.InvalidParam("batch file contains no requests").WithDetail(path)
	}
	return reqs, nil
}

// verdict renders a colored PASS/FAIL marker.
func verdict(ok bool) string {
	if ok {
		return color.GreenString("PASS")
	}
	return color.RedString("FAIL")
}

type predictionView struct {
	p *sumformula.Prediction
}

func (v predictionView) Raw() interface{} { return v.p }

func (v predictionView) TableHeaders() []string {
	return []string{"FORMULA", "MASS", "ERROR (ppm)", "RDBE", "SCORE", "VERDICT", "FAILED"}
}

func (v predictionView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.p.Candidates))
	for _, c := range v.p.Candidates {
		rows = append(rows, []string{
			c.Formula,
			strconv.FormatFloat(c.Mass, 'f', 5, 64),
			strconv.FormatFloat(c.ErrorPPM, 'f', 2, 64),
			strconv.FormatFloat(c.RDBE, 'f', 1, 64),
			strconv.FormatFloat(c.Score, 'f', 2, 64),
			verdict(c.Valid),
			strings.Join(c.Failed, ","),
		})
	}
	return rows
}

func (v predictionView) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "mass %.5f ± %g Da, charge %d: %d generated, %d accepted\n",
		v.p.Mass, v.p.Tolerance, v.p.Charge, v.p.Generated, v.p.Accepted)
	if len(v.p.Candidates) == 0 {
		sb.WriteString("no candidates\n")
		return sb.String()
	}
	sb.WriteString(FormatTable(v.TableHeaders(), v.TableRows()))
	return sb.String()
}

type batchView struct {
	r *sumformula.BatchResult
}

func (v batchView) Raw() interface{} { return v.r }

func (v batchView) TableHeaders() []string {
	return []string{"#", "MASS", "GENERATED", "ACCEPTED", "BEST", "ERROR"}
}

func (v batchView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.r.Items))
	for _, it := range v.r.Items {
		mass := ""
		if it.Request != nil {
			mass = strconv.FormatFloat(it.Request.Mass, 'f', 5, 64)
		}
		if it.Error != nil {
			rows = append(rows, []string{strconv.Itoa(it.Index), mass, "-", "-", "-",
				color.RedString("%s: %s", it.Error.Code, it.Error.Message)})
			continue
		}
		best := "-"
		if p := it.Prediction; p != nil {
			if c := bestCandidate(p); c != nil {
				best = c.Formula
			}
			rows = append(rows, []string{strconv.Itoa(it.Index), mass,
				strconv.Itoa(p.Generated), strconv.Itoa(p.Accepted), best, ""})
		}
	}
	return rows
}

func (v batchView) Text() string {
	return FormatTable(v.TableHeaders(), v.TableRows()) +
		fmt.Sprintf("%d succeeded, %d failed\n", v.r.Succeeded, v.r.Failed)
}

// bestCandidate is the first valid candidate, candidates being ordered by
// mass error.
func bestCandidate(p *sumformula.Prediction) *sumformula.Candidate {
	for _, c := range p.Candidates {
		if c.Valid {
			return c
		}
	}
	return nil
}

//Personal.AI order the ending
