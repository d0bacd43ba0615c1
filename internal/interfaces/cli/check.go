package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/SumFormula-Intelligence/internal/application/sumformula"
	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check <formula>...",
		Short: "Score sum formulas against the active rules",
		Example: "  sumformula check C6H6 C6H12O6\n" +
			"  sumformula check '[C6H7N]+' --strict",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			results := make([]*sumformula.CheckResult, 0, len(args))
			rejected := 0
			for _, a := range args {
				res, err := cliCtx.Service.Check(ctx, a)
				if err != nil {
					return err
				}
				if !res.Valid {
					rejected++
				}
				results = append(results, res)
			}

			if err := PrintResult(cmd, checkView{results}); err != nil {
				return err
			}
			if strict && rejected > 0 {
				return errors.New(errors.ErrCodeValidation, "formulas rejected by rules").
					WithDetail(fmt.Sprintf("%d of %d", rejected, len(results)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any formula is rejected")
	return cmd
}

type checkView struct {
	results []*sumformula.CheckResult
}

func (v checkView) Raw() interface{} { return v.results }

func (v checkView) TableHeaders() []string {
	return []string{"FORMULA", "MASS", "NOMINAL", "RDBE", "SCORE", "VERDICT", "FAILED"}
}

func (v checkView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.results))
	for _, r := range v.results {
		rows = append(rows, []string{
			r.Formula,
			strconv.FormatFloat(r.Mass, 'f', 5, 64),
			strconv.Itoa(r.NominalMass),
			strconv.FormatFloat(r.RDBE, 'f', 1, 64),
			strconv.FormatFloat(r.Score, 'f', 2, 64),
			verdict(r.Valid),
			strings.Join(r.Failed, ","),
		})
	}
	return rows
}

//Personal.AI order the ending
