package report

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"FinFolio/internal/domain/models"
)

const closingDisclaimer = "**Disclaimer:** This report is generated by an AI system for informational purposes only. " +
	"It does not constitute financial advice. Consult with a qualified financial advisor before making investment decisions.\n"

// Input is everything a report can show. Any field may be empty.
type Input struct {
	Profile    models.Profile
	Allocation models.Allocation
	Metrics    *models.Bundle
	Validation *models.ValidationResult
	News       string
	Commentary string
	Reasoning  string
	Error      string
}

// Builder renders Markdown portfolio reports.
type Builder struct {
	riskFree     float64
	marketReturn float64
	printer      *message.Printer
}

func NewBuilder(riskFree, marketReturn float64) *Builder {
	return &Builder{
		riskFree:     riskFree,
		marketReturn: marketReturn,
		printer:      message.NewPrinter(language.English),
	}
}

// ErrorReport is the document produced when a run fails.
func ErrorReport(msg string) string {
	if strings.TrimSpace(msg) == "" {
		msg = "An unspecified error occurred."
	}
	return "# Portfolio Generation Failed\n\nAn error occurred during the process:\n\n```\n" + msg +
		"\n```\n\nPlease review the input or contact support."
}

// Markdown renders the full report.
func (b *Builder) Markdown(in Input) string {
	var sb strings.Builder
	sb.WriteString("# Financial Portfolio Report\n\n")
	if in.Error != "" {
		sb.WriteString("## Execution Error\n")
		fmt.Fprintf(&sb, "An error occurred during processing: %s\n\n", in.Error)
	}

	b.writeProfile(&sb, in.Profile)
	if strings.TrimSpace(in.News) != "" {
		fmt.Fprintf(&sb, "## Recent Market News Context\n%s\n\n", in.News)
	}
	b.writeAllocation(&sb, in.Allocation)
	b.writePortfolioMetrics(&sb, in.Allocation, in.Metrics)
	if in.Metrics != nil && len(in.Allocation) > 0 {
		b.writeAssetMetrics(&sb, in.Allocation, in.Metrics)
	}
	b.writeValidation(&sb, in.Validation)

	commentary := in.Commentary
	if strings.TrimSpace(commentary) == "" {
		commentary = in.Reasoning
	}
	if strings.TrimSpace(commentary) == "" {
		commentary = "No commentary generated."
	}
	fmt.Fprintf(&sb, "## LLM Commentary & Reasoning\n%s\n\n", commentary)
	sb.WriteString("---\n")
	sb.WriteString(closingDisclaimer)
	return sb.String()
}

func (b *Builder) writeProfile(sb *strings.Builder, p models.Profile) {
	sb.WriteString("## User Profile Summary\n")
	fmt.Fprintf(sb, "- **Goal:** %s\n", orNA(p.Goal))
	fmt.Fprintf(sb, "- **Risk Tolerance:** %s\n", orNA(p.RiskTolerance))
	fmt.Fprintf(sb, "- **Time Horizon:** %s\n", orNA(string(p.TimeHorizon)))
	if p.InitialCapital != nil && *p.InitialCapital != 0 {
		fmt.Fprintf(sb, "- **Initial Capital:** $%s\n", b.printer.Sprintf("%.2f", *p.InitialCapital))
	}
	if prefs := p.PreferencesText(); prefs != "" {
		fmt.Fprintf(sb, "- **Preferences:** %s\n", prefs)
	}
	sb.WriteString("\n")
}

func (b *Builder) writeAllocation(sb *strings.Builder, alloc models.Allocation) {
	sb.WriteString("## Proposed Portfolio Allocation\n")
	if len(alloc) == 0 {
		sb.WriteString("- No valid portfolio allocation was proposed.\n\n")
		return
	}
	sb.WriteString("| Asset | Weight |\n")
	sb.WriteString("|-------|--------|\n")
	for _, sym := range alloc.Symbols() {
		fmt.Fprintf(sb, "| %s | %s |\n", strings.ToUpper(sym), pct(alloc[sym]))
	}
	sb.WriteString("\n")
}

func (b *Builder) writePortfolioMetrics(sb *strings.Builder, alloc models.Allocation, bundle *models.Bundle) {
	sb.WriteString("## Portfolio Performance Metrics (Based on Proposed Allocation)\n")
	var pm *models.PortfolioMetrics
	var pmErr string
	if bundle != nil {
		pm, pmErr = bundle.Portfolio, bundle.PortfolioError
	}

	switch {
	case pm != nil && len(alloc) > 0:
		included := pm.IncludedAssets
		if len(included) == 0 {
			included = alloc.Symbols()
		}
		fmt.Fprintf(sb, "- **Included Assets:** %s\n", strings.Join(included, ", "))
		fmt.Fprintf(sb, "- **Calculation Period Days:** %d\n", pm.PeriodDays)
		sb.WriteString("| Metric                         | Value      |\n")
		sb.WriteString("|--------------------------------|------------|\n")
		fmt.Fprintf(sb, "| Total Return                   | %s |\n", pct(float64(pm.TotalReturn)))
		fmt.Fprintf(sb, "| Annualized Return              | %s |\n", pct(float64(pm.AnnualizedReturn)))
		fmt.Fprintf(sb, "| Annualized Volatility          | %s |\n", pct(float64(pm.AnnualizedVolatility)))
		fmt.Fprintf(sb, "| Sharpe Ratio                   | %s |\n", fixed(float64(pm.SharpeRatio)))
		fmt.Fprintf(sb, "| Max Drawdown                   | %s |\n", pct(float64(pm.MaxDrawdown)))
		fmt.Fprintf(sb, "| Expected Return (CAPM)       | %s |\n", pctPtr(pm.ExpectedReturnCAPM))
		fmt.Fprintf(sb, "| Momentum Outlook (SMA)       | %s |\n", orNA(pm.MomentumOutlook))
		fmt.Fprintf(sb, "*CAPM Expected Return calculated assuming Risk-Free Rate = %.1f%% and Expected Market Return = %.1f%%.*\n",
			b.riskFree*100, b.marketReturn*100)
		fmt.Fprintf(sb, "*Portfolio CAPM calculation includes assets covering %.1f%% of the portfolio weight (assets without beta are excluded).*\n",
			float64(pm.CAPMWeightCoverage)*100)
	case pmErr != "":
		fmt.Fprintf(sb, "- **Metrics Calculation Error:** %s\n", pmErr)
	case len(alloc) == 0:
		sb.WriteString("- Portfolio metrics not calculated as no valid portfolio was proposed.\n")
	default:
		sb.WriteString("- Portfolio metrics are unavailable.\n")
	}
	sb.WriteString("\n")
}

func (b *Builder) writeAssetMetrics(sb *strings.Builder, alloc models.Allocation, bundle *models.Bundle) {
	sb.WriteString("## Individual Asset Metrics (for assets in proposed portfolio)\n")

	var rows strings.Builder
	for _, sym := range alloc.Symbols() {
		m, ok := bundle.Asset(strings.ToUpper(sym))
		if !ok {
			continue
		}
		fmt.Fprintf(&rows, "| **%s** | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			strings.ToUpper(sym),
			pct(float64(m.AnnualizedReturn)),
			pct(float64(m.AnnualizedVolatility)),
			fixed(float64(m.SharpeRatio)),
			pct(float64(m.MaxDrawdown)),
			pctPtr(m.ExpectedReturnCAPM),
			fixedPtr(m.Beta),
			fixedPtr(m.SMA50),
			fixedPtr(m.SMA200),
		)
	}
	if rows.Len() == 0 {
		sb.WriteString("- No individual metrics available for the assets in the proposed portfolio.\n\n")
		return
	}

	fmt.Fprintf(sb, "*Expected Return (CAPM) calculated assuming Rf=%.1f%%, E(Rm)=%.1f%%.*\n", b.riskFree*100, b.marketReturn*100)
	sb.WriteString("| Asset | Ann. Return | Volatility | Sharpe | Max Drawdown | Exp. Return (CAPM) | Beta | SMA 50 | SMA 200 |\n")
	sb.WriteString("|-------|-------------|------------|--------|--------------|--------------------|------|--------|---------|\n")
	sb.WriteString(rows.String())
	sb.WriteString("\n")
}

func (b *Builder) writeValidation(sb *strings.Builder, v *models.ValidationResult) {
	sb.WriteString("## Validation Status\n")
	if v == nil {
		sb.WriteString("- Validation did not run or failed.\n\n")
		return
	}
	status := strings.ToUpper(string(v.Status))
	if status == "" {
		status = "N/A"
	}
	fmt.Fprintf(sb, "- **Status:** %s\n", status)
	if len(v.Errors) > 0 {
		sb.WriteString("- **Issues Found:**\n")
		for _, e := range v.Errors {
			fmt.Fprintf(sb, "  - %s\n", e)
		}
	}
	sb.WriteString("\n")
}

func pct(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

func pctPtr(v models.NullableFloat) string {
	if v == nil {
		return "N/A"
	}
	return pct(float64(*v))
}

func fixed(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", v)
}

func fixedPtr(v models.NullableFloat) string {
	if v == nil {
		return "N/A"
	}
	return fixed(float64(*v))
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
