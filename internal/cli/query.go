package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/causalhub/pkg/citest"
	"github.com/matzehuels/causalhub/pkg/dag/separation"
	errs "github.com/matzehuels/causalhub/pkg/errors"
	cio "github.com/matzehuels/causalhub/pkg/io"
	"github.com/matzehuels/causalhub/pkg/stats"
)

// testCommand creates the test command for a single independence test.
func (c *CLI) testCommand() *cobra.Command {
	var (
		family string
		name   string
		given  []string
		alpha  float64
	)

	cmd := &cobra.Command{
		Use:   "test <data.csv> <X> <Y>",
		Short: "Test whether two variables are conditionally independent",
		Example: `  causalhub test survey.csv smoker cancer --given age
  causalhub test sensors.csv --family gaussian --test studentst t1 t2 -z t3,t4`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := cio.ReadDatasetFile(args[0], familyOrDefault(family))
			if err != nil {
				return err
			}
			if name == "" {
				name = "chi2"
				if familyOrDefault(family) != "categorical" {
					name = "fisherz"
				}
			}
			t, err := citest.New(name, d, alpha, citest.UseRidge(stats.Ridge{Logger: c.Logger}))
			if err != nil {
				return err
			}
			labels := d.Labels()
			ids, err := indices(labels, append([]string{args[1], args[2]}, given...))
			if err != nil {
				return err
			}
			res, err := t.Test(ids[0], ids[1], ids[2:])
			if err != nil {
				return err
			}
			c.Logger.Debug("independence test", "test", name, "x", args[1], "y", args[2], "z", given, "alpha", alpha)

			query := fmt.Sprintf("%s ⊥ %s", args[1], args[2])
			if len(given) > 0 {
				query += " | " + strings.Join(given, ", ")
			}
			printTestResult(query, res)
			return nil
		},
	}

	cmd.Flags().StringVar(&family, "family", "", "data family: categorical, gaussian (default categorical)")
	cmd.Flags().StringVarP(&name, "test", "t", "", "test: chi2, fisherz, studentst (default by family)")
	cmd.Flags().StringSliceVarP(&given, "given", "z", nil, "conditioning variables")
	cmd.Flags().Float64Var(&alpha, "alpha", citest.DefaultAlpha, "significance level")

	completeFlags(cmd)
	return cmd
}

// dsepCommand creates the dsep command for separation queries on a graph.
func (c *CLI) dsepCommand() *cobra.Command {
	var (
		xs, ys, zs []string
		blanket    bool
	)

	cmd := &cobra.Command{
		Use:   "dsep <graph.json>",
		Short: "Check d-separation in a DAG",
		Long: `Check whether the sets X and Y are d-separated by Z in a DAG read from a
graph JSON file, as written by "causalhub fit".`,
		Example: `  causalhub dsep dag.json -x smoker -y age -z cancer
  causalhub dsep dag.json -x smoker --blanket`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := cio.ReadGraphFile(args[0])
			if err != nil {
				return err
			}
			labels := g.Labels()
			x, err := indices(labels, xs)
			if err != nil {
				return err
			}

			if blanket {
				if len(x) != 1 {
					return errs.New(errs.ErrCodeInvalidInput, "--blanket needs exactly one -x variable")
				}
				mb := separation.MarkovBlanket(g, x[0])
				printKeyValue("markov blanket", formatSet(names(labels, mb)))
				if len(ys) == 0 {
					return nil
				}
			}

			y, err := indices(labels, ys)
			if err != nil {
				return err
			}
			z, err := indices(labels, zs)
			if err != nil {
				return err
			}
			sep, err := separation.DSeparated(g, x, y, z)
			if err != nil {
				return err
			}
			query := fmt.Sprintf("%s ⊥ %s | %s", formatSet(xs), formatSet(ys), formatSet(zs))
			if sep {
				printSuccess("%s: d-separated", query)
			} else {
				printWarning("%s: d-connected", query)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&xs, "x", "x", nil, "first variable set")
	cmd.Flags().StringSliceVarP(&ys, "y", "y", nil, "second variable set")
	cmd.Flags().StringSliceVarP(&zs, "given", "z", nil, "conditioning set")
	cmd.Flags().BoolVar(&blanket, "blanket", false, "print the Markov blanket of the single -x variable")
	_ = cmd.MarkFlagRequired("x")

	completeFlags(cmd)
	return cmd
}

// indices resolves labels against the sorted label list of a dataset or
// graph.
func indices(labels, want []string) ([]int, error) {
	out := make([]int, len(want))
	for i, w := range want {
		j := slices.Index(labels, w)
		if j < 0 {
			return nil, errs.New(errs.ErrCodeUnknownVertex, "unknown variable %q", w)
		}
		out[i] = j
	}
	return out, nil
}

func names(labels []string, ids []int) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = labels[id]
	}
	return out
}
