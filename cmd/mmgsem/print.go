package main

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/katalvlaran/mmgsem/inference"
	"github.com/katalvlaran/mmgsem/selection"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	markStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
)

// render draws a bordered table; rows listed in marked are emphasized.
func render(w io.Writer, title string, headers []string, rows [][]string, marked map[int]bool) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case marked[row]:
				return markStyle
			}

			return cellStyle
		})
	fmt.Fprintln(w, titleStyle.Render(title))
	fmt.Fprintln(w, t.Render())
}

func num(x float64) string {
	switch {
	case math.IsInf(x, 1) || x == math.MaxFloat64:
		return "Inf"
	case math.IsNaN(x):
		return "-"
	}

	return strconv.FormatFloat(x, 'f', 3, 64)
}

func pval(p float64) string {
	if p < 1e-4 {
		return "<.0001"
	}

	return strconv.FormatFloat(p, 'f', 4, 64)
}

func criteriaTable(w io.Writer, tab []selection.Row, best int) {
	headers := []string{"K", "LL", "npar", "BIC", "BIC_G", "AIC", "AIC3", "AICc", "ICL", "R2_ent", "hull", "scree", "conv"}
	rows := make([][]string, 0, len(tab))
	marked := map[int]bool{}
	for i, r := range tab {
		hull, conv := "", "yes"
		if r.OnHull {
			hull = "*"
		}
		if !r.Converged {
			conv = "NO"
		}
		scree := ""
		if r.ScreeRatio > 0 {
			scree = num(r.ScreeRatio)
		}
		rows = append(rows, []string{
			strconv.Itoa(r.K), num(r.LogLik), strconv.Itoa(r.Params),
			num(r.BIC), num(r.BICG), num(r.AIC), num(r.AIC3), num(r.AICc), num(r.ICL),
			num(r.R2Entropy), hull, scree, conv,
		})
		if r.K == best {
			marked[i] = true
		}
	}
	render(w, "Model selection", headers, rows, marked)
}

func coefficientTable(w io.Writer, names []string, coef [][]float64, weights []float64) {
	headers := append([]string{"cluster", "weight"}, names...)
	rows := make([][]string, len(coef))
	for k, b := range coef {
		row := []string{strconv.Itoa(k + 1), num(weights[k])}
		for _, v := range b {
			row = append(row, num(v))
		}
		rows[k] = row
	}
	render(w, "Structural coefficients", headers, rows, nil)
}

func assignmentTable(w io.Writer, ids []string, posterior [][]float64) {
	headers := []string{"group", "cluster"}
	for k := range posterior[0] {
		headers = append(headers, "z"+strconv.Itoa(k+1))
	}
	rows := make([][]string, len(ids))
	for g, id := range ids {
		best := 0
		for k, z := range posterior[g] {
			if z > posterior[g][best] {
				best = k
			}
		}
		row := []string{id, strconv.Itoa(best + 1)}
		for _, z := range posterior[g] {
			row = append(row, num(z))
		}
		rows[g] = row
	}
	render(w, "Group assignments", headers, rows, nil)
}

func estimateTable(w io.Writer, se *inference.StandardErrors) {
	headers := []string{"cluster", "parameter", "estimate", "se", "z"}
	var rows [][]string
	for _, e := range se.Table() {
		rows = append(rows, []string{
			strconv.Itoa(e.Cluster + 1), e.Name, num(e.Value), num(e.SE), num(e.Value / e.SE),
		})
	}
	title := "Estimates (full information"
	switch {
	case se.Naive:
		title = "Estimates (naive"
	case se.Corrected:
		title += ", two-step corrected"
	}
	render(w, title+")", headers, rows, nil)
}

func testTable(w io.Writer, res *inference.TestResult) {
	headers := []string{"test", "chi2", "df", "p", "p_adj"}
	row := func(t inference.WaldTest) []string {
		return []string{t.Name, num(t.Statistic), strconv.Itoa(t.DF), pval(t.PValue), pval(t.Adjusted)}
	}
	rows := [][]string{row(res.Omnibus)}
	for _, t := range res.Parameters {
		rows = append(rows, row(t))
	}
	for _, t := range res.Pairwise {
		rows = append(rows, row(t))
	}
	render(w, "Wald tests ("+res.Correction.String()+")", headers, rows, map[int]bool{0: true})
}
