package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/SumFormula-Intelligence/internal/application/sumformula"
)

// NewRulesCmd creates the rules command.
func NewRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Show the active rule set and element-ratio bounds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return PrintResult(cmd, rulesView{cliCtx.Service.Rules()})
		},
	}
}

type rulesView struct {
	s *sumformula.RuleSummary
}

func (v rulesView) Raw() interface{} { return v.s }

func (v rulesView) TableHeaders() []string { return []string{"RULE", "PARAMETERS"} }

func (v rulesView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.s.Rules))
	for _, r := range v.s.Rules {
		rows = append(rows, []string{r.Name, strings.Join(r.Parameters, ", ")})
	}
	return rows
}

func (v rulesView) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "aggregation: %s, threshold: %g\n\n", v.s.Aggregation, v.s.Threshold)
	sb.WriteString(FormatTable(v.TableHeaders(), v.TableRows()))
	if len(v.s.RatioBounds) > 0 {
		fmt.Fprintf(&sb, "\nelement ratio bounds (%s, %s):\n", v.s.RatioType, v.s.RatioRange)
		rows := make([][]string, 0, len(v.s.RatioBounds))
		for _, b := range v.s.RatioBounds {
			rows = append(rows, []string{b.Element + "/C", b.Bound})
		}
		sb.WriteString(FormatTable([]string{"RATIO", "BOUND"}, rows))
	}
	return sb.String()
}

//Personal.AI order the ending
