package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/noah-isme/hazmat-api/internal/compatibility"
)

// EvaluateCmd runs the compatibility engine offline.
func EvaluateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate <classA> <classB> <distance>",
		Short: "Evaluate a hazard class pair at a distance in meters",
		Example: `  hazmatctl evaluate 3 5.1 2
  hazmatctl evaluate 2.1 8 12.5`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			distance, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("distance must be a number: %w", err)
			}
			a, b := compatibility.ClassCode(args[0]), compatibility.ClassCode(args[1])
			result, err := compatibility.NewEngine(nil).Evaluate(a, b, distance)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Pair:\t%s + %s\n", a, b)
			fmt.Fprintf(w, "Distance:\t%s m\n", strconv.FormatFloat(distance, 'f', -1, 64))
			fmt.Fprintf(w, "Action:\t%s\n", result.Action)
			fmt.Fprintf(w, "Status:\t%s\n", statusColor(result.Status).Sprint(result.Status))
			fmt.Fprintf(w, "Isolated:\t%t\n", result.Isolated)
			fmt.Fprintf(w, "Required:\t%s\n", result.MinRequiredDistance)
			if result.Defaulted {
				fmt.Fprintln(w, "Note:\tno table entry, default rule applied")
			}
			return w.Flush()
		},
	}
}

func statusColor(status compatibility.Status) *color.Color {
	switch status {
	case compatibility.StatusSafe:
		return color.New(color.FgHiGreen)
	case compatibility.StatusCaution:
		return color.New(color.FgYellow)
	case compatibility.StatusDanger:
		return color.New(color.FgRed, color.Bold)
	}
	return color.New(color.Reset)
}
