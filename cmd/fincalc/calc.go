package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cloud-ru/sky-financial-go/internal/calculations"
	"github.com/cloud-ru/sky-financial-go/internal/tools"
	"github.com/cloud-ru/sky-financial-go/internal/validators"
	"github.com/cloud-ru/sky-financial-go/pkg/format"
)

var shortByKind = map[calculations.Kind]string{
	calculations.KindSIP:     "Ежемесячные взносы (SIP)",
	calculations.KindLumpsum: "Единовременное вложение",
	calculations.KindEMI:     "Ежемесячный платеж по кредиту (EMI)",
	calculations.KindPPF:     "Public Provident Fund, ежегодные взносы",
	calculations.KindTax:     "Сравнение старого и нового налогового режима",
}

func newCalcCmd(a *app, kind calculations.Kind) *cobra.Command {
	in := calculations.Defaults(kind)
	var (
		output   string
		schedule bool
	)

	cmd := &cobra.Command{
		Use:   strings.ToLower(string(kind)),
		Short: shortByKind[kind],
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validators.CheckInput(a.cfg, kind, in); err != nil {
				return fmt.Errorf("неверные параметры: %w", err)
			}

			a.logger.Debug("calculation",
				zap.String("kind", string(kind)),
				zap.Float64("amount", in.Amount),
				zap.Float64("annual_rate_percent", in.Rate),
				zap.Int("years", in.Duration),
				zap.Float64("deductions", in.Deductions),
			)

			out := cmd.OutOrStdout()
			if schedule {
				entries, err := calculations.Schedule(kind, in)
				if err != nil {
					return err
				}
				resp := tools.ScheduleResponse{Kind: kind, Input: in, Schedule: entries}
				if output == "table" {
					return writeScheduleTable(out, kind, entries)
				}
				return encode(out, output, resp)
			}

			result, err := calculations.Calculate(kind, in)
			if err != nil {
				return err
			}
			resp := tools.NewCalculationResponse(kind, in, result)
			if output == "table" {
				return writeResultTable(out, resp)
			}
			return encode(out, output, resp)
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&in.Amount, "amount", in.Amount, amountUsage(kind))
	if kind == calculations.KindTax {
		flags.Float64Var(&in.Deductions, "deductions", in.Deductions, "вычеты (учитываются только в старом режиме)")
	} else {
		flags.Float64Var(&in.Rate, "rate", in.Rate, "годовая ставка, %")
		flags.IntVar(&in.Duration, "years", in.Duration, "срок в годах")
		flags.BoolVar(&schedule, "schedule", false, "вывести погодовой график")
	}
	flags.StringVarP(&output, "output", "o", "table", "формат вывода: table, json или yaml")

	return cmd
}

func amountUsage(kind calculations.Kind) string {
	switch kind {
	case calculations.KindSIP:
		return "ежемесячный взнос"
	case calculations.KindPPF:
		return "ежегодный взнос"
	case calculations.KindEMI:
		return "сумма кредита"
	case calculations.KindTax:
		return "годовой доход"
	}
	return "сумма вложения"
}

func encode(w io.Writer, output string, v interface{}) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	}
	return fmt.Errorf("unknown output format: %s", output)
}

func writeResultTable(w io.Writer, resp tools.CalculationResponse) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Calculator\t%s\n", resp.Kind)
	for _, item := range resp.Result.Breakdown() {
		fmt.Fprintf(tw, "%s\t%s\t(%s)\n", item.Label, format.INR(item.Value), format.Lakhs(item.Value))
	}
	if resp.Kind != calculations.KindTax {
		fmt.Fprintf(tw, "Total\t%s\t(%s)\n", format.INR(resp.Record.TotalValue), format.Lakhs(resp.Record.TotalValue))
	}
	if resp.Record.MonthlyPayment != nil {
		fmt.Fprintf(tw, "Monthly EMI\t%s\n", format.INR(*resp.Record.MonthlyPayment))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, resp.Summary)
	return err
}

func writeScheduleTable(w io.Writer, kind calculations.Kind, entries []calculations.ScheduleEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	if kind == calculations.KindEMI {
		fmt.Fprintln(tw, "Year\tPayment\tPrincipal\tInterest\tRemaining\t")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", strconv.Itoa(e.Year),
				format.INR(e.Payment), format.INR(e.PrincipalComponent),
				format.INR(e.InterestEarned), format.INR(e.RemainingPrincipal))
		}
		return tw.Flush()
	}

	fmt.Fprintln(tw, "Year\tContribution\tInvested\tInterest\tBalance\t")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", strconv.Itoa(e.Year),
			format.INR(e.Contribution), format.INR(e.CumulativeContributions),
			format.INR(e.InterestEarned), format.INR(e.EndingBalance))
	}
	return tw.Flush()
}
